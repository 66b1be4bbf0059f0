// Package bdm implements the typed BDM command set and
// the target bring-up sequencer on top of pkg/usbchan.
package bdm

// Register indices in GDB's fixed register order:
// D0..D7, A0..A7, SR, PC — 18 registers total.
const (
	RegD0 = iota
	RegD1
	RegD2
	RegD3
	RegD4
	RegD5
	RegD6
	RegD7
	RegA0
	RegA1
	RegA2
	RegA3
	RegA4
	RegA5
	RegA6
	RegA7
	RegSR
	RegPC
	NumRegisters
)

// bdmReadWindow returns the `07 13` window address for a D/A register:
// D0-D7 at 0x2180+n, A0-A7 at 0x2188+n.
func bdmReadWindow(reg int) (uint16, bool) {
	switch {
	case reg >= RegD0 && reg <= RegD7:
		return 0x2180 + uint16(reg-RegD0), true
	case reg >= RegA0 && reg <= RegA7:
		return 0x2188 + uint16(reg-RegA0), true
	default:
		return 0, false
	}
}

// bdmWriteReg returns the `07 14` register code for a D/A/SR/PC register:
// PC is 0x080F, SR 0x080E, A7 0x018F, D0-D7 0x0080+n and A0-A6 0x0088+n.
// These codes differ from the `07 13` read windows.
func bdmWriteReg(reg int) (uint16, bool) {
	switch {
	case reg == RegPC:
		return 0x080F, true
	case reg == RegSR:
		return 0x080E, true
	case reg == RegA7:
		return 0x018F, true
	case reg >= RegD0 && reg <= RegD7:
		return 0x0080 + uint16(reg-RegD0), true
	case reg >= RegA0 && reg <= RegA7:
		return 0x0088 + uint16(reg-RegA0), true
	default:
		return 0, false
	}
}

// WDMREG DRc codes for the write-only debug module registers.
const (
	DRcTDR  = 0x07
	DRcPBR0 = 0x08
	DRcPBR1 = 0x18
	DRcPBR2 = 0x1A
	DRcPBR3 = 0x1B
	DRcABLR = 0x0D
	DRcABHR = 0x0C
)
