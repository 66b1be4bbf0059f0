package debugger

import "fmt"

// hwBreakpointSlot is one of the four PC hardware-breakpoint slots.
type hwBreakpointSlot struct {
	address uint32
	used    bool
}

// swBreakpoint shadows a patched instruction so it can be restored.
type swBreakpoint struct {
	address     uint32
	originalU16 uint16
	active      bool
}

// WatchKind selects the access type an address-range watchpoint traps.
type WatchKind int

const (
	WatchWrite WatchKind = iota
	WatchRead
	WatchAccess
)

type watchpoint struct {
	addr   uint32
	length uint32
	kind   WatchKind
	active bool
}

// BreakpointTable is breakpoint/watchpoint state: four
// hardware PC slots, up to 32 software breakpoints, and one
// address-range watchpoint.
type BreakpointTable struct {
	hw [4]hwBreakpointSlot
	sw [32]swBreakpoint
	wp watchpoint
}

// TDR bit positions for the ColdFire Revision C debug module: the
// trigger-enable and access-qualifier bits, carried from the chip's
// debug-module reference rather than re-derived here.
const (
	tdrTRCHalt   = 1 << 20 // TRC field: halt on trigger
	tdrEBL1      = 1 << 19 // enable breakpoint logic, level 1
	tdrEPC1      = 1 << 18 // enable PC breakpoint comparison, level 1
	tdrEAR1      = 1 << 17 // enable address register 1 comparison
	tdrEALInside = 1 << 9  // address comparison: inside range
	tdrDRWWrite  = 1 << 10
	tdrDRWRead   = 1 << 11
	tdrDRWRW     = tdrDRWWrite | tdrDRWRead
)

// tdrPBRSlotBit returns the TDR bit that enables PBR slot n's own
// comparator (bits 24-27, one per slot).
func tdrPBRSlotBit(n int) uint32 { return 1 << (24 + n) }

// haltOpcode is the ColdFire HALT instruction used to implement software
// breakpoints.
const haltOpcode = 0x4AC8

// SetBreakpointPreferHW implements GDB's `Z0` (software breakpoint
// request): it uses a free hardware PBR slot when one is available, and
// falls back to a software-patched breakpoint only once all four slots
// are in use.
func (c *Coordinator) SetBreakpointPreferHW(addr uint32) error {
	err := c.setHardwareBreakpointSlot(addr)
	if err == errNoFreeHWSlot {
		return c.SetSoftwareBreakpoint(addr)
	}
	return err
}

// SetHardwareBreakpoint implements GDB's `Z1` (explicit hardware
// breakpoint request): it only ever uses a PBR slot, returning an error
// rather than falling back to software once all four are in use.
func (c *Coordinator) SetHardwareBreakpoint(addr uint32) error {
	return c.setHardwareBreakpointSlot(addr)
}

var errNoFreeHWSlot = fmt.Errorf("debugger: no free hardware breakpoint slot")

// setHardwareBreakpointSlot programs the first free PBR slot with addr
// and arms its comparator in the shadow TDR (TRC_HALT|EBL1|EPC1 plus the
// slot's own enable bit).
func (c *Coordinator) setHardwareBreakpointSlot(addr uint32) error {
	for i := range c.bps.hw {
		if !c.bps.hw[i].used {
			if err := c.cmds.WritePBR(&c.shadow, i, addr); err != nil {
				return err
			}
			tdr := c.shadow.TDR | tdrTRCHalt | tdrEBL1 | tdrEPC1 | tdrPBRSlotBit(i)
			if err := c.cmds.WriteTDR(&c.shadow, tdr); err != nil {
				return err
			}
			c.bps.hw[i] = hwBreakpointSlot{address: addr, used: true}
			return nil
		}
	}
	return errNoFreeHWSlot
}

// RemoveHardwareBreakpoint clears the PBR slot holding addr, if any,
// and its slot-enable bit. If no PC breakpoint remains armed it also
// clears EPC1, and EBL1/TRC_HALT too unless the watchpoint still needs
// them. If addr was never placed in hardware, it tries the software
// table.
func (c *Coordinator) RemoveHardwareBreakpoint(addr uint32) error {
	for i := range c.bps.hw {
		if c.bps.hw[i].used && c.bps.hw[i].address == addr {
			if err := c.cmds.WritePBR(&c.shadow, i, 0); err != nil {
				return err
			}
			c.bps.hw[i] = hwBreakpointSlot{}

			tdr := c.shadow.TDR &^ tdrPBRSlotBit(i)
			stillArmed := false
			for _, s := range c.bps.hw {
				if s.used {
					stillArmed = true
					break
				}
			}
			if !stillArmed {
				tdr &^= tdrEPC1
				if !c.bps.wp.active {
					tdr &^= tdrEBL1 | tdrTRCHalt
				}
			}
			if err := c.cmds.WriteTDR(&c.shadow, tdr); err != nil {
				return err
			}
			return nil
		}
	}
	return c.RemoveSoftwareBreakpoint(addr)
}

// SetSoftwareBreakpoint patches the instruction at addr with the HALT
// opcode, saving the original 16 bits for later removal. The low-level
// memory writer is 32-bit-wide, so the next two bytes are read, merged
// with the new opcode, and written back as one word.
func (c *Coordinator) SetSoftwareBreakpoint(addr uint32) error {
	slot := -1
	for i := range c.bps.sw {
		if !c.bps.sw[i].active {
			slot = i
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("debugger: no free software breakpoint slot")
	}

	block, err := c.cmds.ReadMemoryBlock(addr, 4)
	if err != nil {
		return err
	}
	if len(block) < 4 {
		return fmt.Errorf("debugger: short memory read while setting breakpoint at %#x", addr)
	}
	original := uint16(block[0])<<8 | uint16(block[1])
	word := uint32(haltOpcode)<<16 | uint32(block[2])<<8 | uint32(block[3])
	if err := c.cmds.WriteMemLong(addr, word); err != nil {
		return err
	}
	c.bps.sw[slot] = swBreakpoint{address: addr, originalU16: original, active: true}
	return nil
}

// RemoveSoftwareBreakpoint restores the saved instruction bytes.
func (c *Coordinator) RemoveSoftwareBreakpoint(addr uint32) error {
	for i := range c.bps.sw {
		if c.bps.sw[i].active && c.bps.sw[i].address == addr {
			block, err := c.cmds.ReadMemoryBlock(addr, 4)
			if err != nil {
				return err
			}
			if len(block) < 4 {
				return fmt.Errorf("debugger: short memory read while clearing breakpoint at %#x", addr)
			}
			word := uint32(c.bps.sw[i].originalU16)<<16 | uint32(block[2])<<8 | uint32(block[3])
			if err := c.cmds.WriteMemLong(addr, word); err != nil {
				return err
			}
			c.bps.sw[i] = swBreakpoint{}
			return nil
		}
	}
	return nil
}

// SetWatchpoint programs the single address-range watchpoint slot via
// ABLR/ABHR and updates the shadow TDR.
func (c *Coordinator) SetWatchpoint(addr uint32, length uint32, kind WatchKind) error {
	if err := c.cmds.WriteABLR(&c.shadow, addr); err != nil {
		return err
	}
	if err := c.cmds.WriteABHR(&c.shadow, addr+length-1); err != nil {
		return err
	}
	tdr := c.shadow.TDR | tdrTRCHalt | tdrEBL1 | tdrEAR1 | tdrEALInside
	switch kind {
	case WatchWrite:
		tdr |= tdrDRWWrite
	case WatchRead:
		tdr |= tdrDRWRead
	case WatchAccess:
		tdr |= tdrDRWRW
	}
	if err := c.cmds.WriteTDR(&c.shadow, tdr); err != nil {
		return err
	}
	c.bps.wp = watchpoint{addr: addr, length: length, kind: kind, active: true}
	return nil
}

// RemoveWatchpoint clears the address-range bits and R/W bits; if no
// other triggers remain it also clears TRC_HALT|EBL1.
func (c *Coordinator) RemoveWatchpoint() error {
	if !c.bps.wp.active {
		return nil
	}
	tdr := c.shadow.TDR &^ (tdrEAR1 | tdrEALInside | tdrDRWRW)
	hasHWBreakpoints := false
	for _, s := range c.bps.hw {
		if s.used {
			hasHWBreakpoints = true
			break
		}
	}
	if !hasHWBreakpoints {
		tdr &^= tdrTRCHalt | tdrEBL1
	}
	if err := c.cmds.WriteTDR(&c.shadow, tdr); err != nil {
		return err
	}
	c.bps.wp = watchpoint{}
	return nil
}

// watchpointHit reports whether the shadow TDR currently indicates an
// armed watchpoint, and its tracked address, for the stop-reply
// `T05watch:<addr>;` path.
func (c *Coordinator) watchpointHit() (uint32, bool) {
	if c.bps.wp.active && c.shadow.TDR&(tdrEAR1|tdrTRCHalt) == (tdrEAR1|tdrTRCHalt) {
		return c.bps.wp.addr, true
	}
	return 0, false
}
