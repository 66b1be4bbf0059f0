package bdm

import (
	"fmt"
	"time"

	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// TargetInfo is what bring-up learns about the attached chip.
type TargetInfo struct {
	PartID      uint8
	Revision    uint8
	PartNumber  string // e.g. "MCF52233"
	FlashSizeKB int
}

// BringupError wraps a bring-up failure with the phase it occurred in.
type BringupError struct {
	Phase int
	Name  string
	Err   error
}

func (e *BringupError) Error() string {
	return fmt.Sprintf("bring-up phase %d (%s): %v", e.Phase, e.Name, e.Err)
}
func (e *BringupError) Unwrap() error { return e.Err }

// known PIN→part mapping, consulted during chip identification.
var partNames = map[uint8]string{
	0x48: "MCF52230",
	0x49: "MCF52231",
	0x4A: "MCF52232",
	0x4B: "MCF52233",
	0x4C: "MCF52235",
}

// Bringup runs the nine-phase target initialization sequence in order,
// aborting on the first error.
func Bringup(sess *usbchan.Session) (*TargetInfo, error) {
	c := New(sess)

	phase := func(n int, name string, fn func() error) error {
		if err := fn(); err != nil {
			return &BringupError{Phase: n, Name: name, Err: err}
		}
		sess.Logf("bring-up phase %d (%s) ok", n, name)
		return nil
	}

	if err := phase(1, "identify", func() error { return identify(c) }); err != nil {
		return nil, err
	}
	if err := phase(2, "enter-bdm", func() error { return enterBDM(c) }); err != nil {
		return nil, err
	}
	if err := phase(3, "window-primer", func() error { return windowPrimer(c) }); err != nil {
		return nil, err
	}
	if err := phase(4, "chip-id-setup", func() error { return chipIDSetup(c) }); err != nil {
		return nil, err
	}
	if err := phase(5, "system-config", func() error { return systemConfig(c) }); err != nil {
		return nil, err
	}
	// Phase 6: a readback mismatch is only a warning; a transport error
	// still aborts bring-up.
	if err := ramSelfTest(c, sess); err != nil {
		return nil, &BringupError{Phase: 6, Name: "ram-self-test", Err: err}
	}
	if err := phase(7, "bdm-re-resume", func() error { return enterBDM(c) }); err != nil {
		return nil, err
	}
	if err := phase(8, "window-full-sequence", func() error { return windowFullSequence(c, sess) }); err != nil {
		return nil, err
	}
	var info *TargetInfo
	if err := phase(9, "chip-identification", func() error {
		i, err := chipIdentify(c)
		info = i
		return err
	}); err != nil {
		return nil, err
	}

	return info, nil
}

// Phase 1: two `01 0B` "get device info" probes, content ignored.
func identify(c *Commands) error {
	for i := 0; i < 2; i++ {
		if _, err := c.sess.SendAA([]byte{0x01, 0x0B}, true); err != nil {
			return err
		}
	}
	return nil
}

// Phase 2 (and phase 7's re-resume): the BDM-entry command tail.
func enterBDM(c *Commands) error {
	if err := c.EnterMode(0xFC); err != nil {
		return err
	}
	if _, err := c.sess.SendAA([]byte{0x07, 0xA2, 0x01}, true); err != nil {
		return err
	}
	if err := c.Cmd0440(0x58, 0x04); err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if _, err := c.FreezeCheck(); err != nil {
			return err
		}
	}
	if _, err := c.sess.SendAA([]byte{0x07, 0x95}, true); err != nil {
		return err
	}
	if err := c.Cmd0440(0x00, 0x02); err != nil {
		return err
	}
	for i := 0; i < 2; i++ {
		if err := c.EnableMemoryAccess(0x00); err != nil {
			return err
		}
	}
	return c.EnterMode(0xFC)
}

// Phase 3: nine-step window primer, `07 10 0x0000` nine times.
func windowPrimer(c *Commands) error {
	for i := 0; i < 9; i++ {
		if err := c.SetupMemoryWindow(0x0000); err != nil {
			return err
		}
	}
	return nil
}

// Phase 4: chip ID setup — BDM CSR read twice (first discarded), RAMBAR,
// status register, FLASHBAR.
func chipIDSetup(c *Commands) error {
	if _, err := c.ReadRegisterWindow(0x2D80); err != nil {
		return err
	}
	if _, err := c.ReadRegisterWindow(0x2D80); err != nil {
		return err
	}
	if err := writeBDMReg(c, 0x0C05, 0x20000221); err != nil { // RAMBAR
		return err
	}
	if err := writeBDMReg(c, 0x080E, 0x2700); err != nil { // status register
		return err
	}
	if err := writeBDMReg(c, 0x0C04, 0x00000061); err != nil { // FLASHBAR
		return err
	}
	return nil
}

// writeBDMReg issues the raw `07 14 2880 0000 <reg:2> <val:4>` window
// write used throughout bring-up for registers that are not GDB-visible
// D/A registers.
func writeBDMReg(c *Commands, reg uint16, value uint32) error {
	payload := []byte{
		0x07, 0x14, 0x28, 0x80, 0x00, 0x00,
		byte(reg >> 8), byte(reg),
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
	}
	_, err := c.sess.SendAA(payload, true)
	return err
}

// systemConfigRegs is the clock/system configuration register set
// written during phase 5: vendor reference defaults for the MCF5223x
// system clock module running from the on-chip relaxation oscillator
// at its documented reset configuration.
var systemConfigRegs = []struct {
	reg   uint16
	value uint32
}{
	{0x0110, 0x0000003F}, // SCM base + MPARK: fixed priority, park on last bus owner
	{0x0114, 0x00000000}, // SCM base + MPR: all masters priority 0
	{0x0120, 0x00000000}, // SCM base + PACR0: no access protection
	{0x0013, 0x00000001}, // CCM: limp mode disabled, normal clock mode
}

// Phase 5: system configuration register writes via the raw window
// writer.
func systemConfig(c *Commands) error {
	for _, r := range systemConfigRegs {
		if err := writeBDMReg(c, r.reg, r.value); err != nil {
			return err
		}
	}
	return nil
}

// Phase 6: RAM self-test. A readback mismatch is logged as a warning
// and does not abort bring-up
func ramSelfTest(c *Commands, sess *usbchan.Session) error {
	const testAddr = 0x00002088
	for _, pattern := range []uint32{0x12345678, 0x40000C08} {
		if err := c.WriteMemLong(testAddr, pattern); err != nil {
			return err
		}
		got, err := c.ReadVerifyLongword(testAddr)
		if err != nil {
			return err
		}
		if got != pattern {
			sess.Logf("ram self-test mismatch at %#x: wrote %#x, read %#x", testAddr, pattern, got)
		}
	}
	return nil
}

// Phase 8: the full memory-window sequence that makes 16-bit-addressed
// SRAM writes begin working, with ~300us settle delays between steps.
// Verified by a write/read round-trip that is logged, not fatal, on
// mismatch.
func windowFullSequence(c *Commands, sess *usbchan.Session) error {
	windows := []uint16{0x2088, 0x2188, 0x2288, 0x2388, 0x2488, 0x2588, 0x2688, 0x2788, 0x2888}
	for _, w := range windows {
		if err := c.SetupMemoryWindow(w); err != nil {
			return err
		}
		time.Sleep(300 * time.Microsecond)
	}

	const verifyShort = 0x2088
	const verifyLong = 0x2188
	if err := c.WriteMemShort(verifyShort, 0x200000B8); err != nil {
		return err
	}
	got, err := c.ReadRegisterWindow(verifyLong)
	if err != nil {
		return err
	}
	if got != 0x200000B8 {
		sess.Logf("window full-sequence verify mismatch: wrote %#x to %#x, read %#x from %#x",
			uint32(0x200000B8), verifyShort, got, verifyLong)
	}
	return nil
}

// EnterBDM re-runs bring-up phase 2's BDM-entry sequence. The vFlash
// flow requires re-running phases 2 and 8 after a flash session ends
// before debugging can resume.
func (c *Commands) EnterBDM() error {
	return enterBDM(c)
}

// WindowFullSequence re-runs bring-up phase 8's memory-window sequence.
// The flashloader RPC requires this before every operation, not just once at startup.
func (c *Commands) WindowFullSequence(sess *usbchan.Session) error {
	return windowFullSequence(c, sess)
}

// Phase 9: chip identification readout at IPSBAR+0x110008.
func chipIdentify(c *Commands) (*TargetInfo, error) {
	const cirAddr = 0x40110008
	v, err := c.ReadVerifyLongword(cirAddr)
	if err == nil && v != 0 {
		// Bits 15..6 carry the Part ID; known PIN values all fit in the
		// low 8 bits of that field, so truncate to uint8.
		pin := uint8((v >> 6) & 0xFF)
		rev := uint8(v & 0x3F)
		info := &TargetInfo{PartID: pin, Revision: rev}
		if name, ok := partNames[pin]; ok {
			info.PartNumber = name
		} else {
			info.PartNumber = fmt.Sprintf("MCF5223x(pin=%#02x)", pin)
		}
		if pin == 0x48 || pin == 0x49 {
			info.FlashSizeKB = 64
		} else {
			info.FlashSizeKB = 256
		}
		return info, nil
	}

	// CIR unavailable: fall back to CSR-based identification, 256 KB.
	_, csrErr := c.ReadRegisterWindow(0x2D80)
	if csrErr != nil {
		if err != nil {
			return nil, err
		}
		return nil, csrErr
	}
	return &TargetInfo{PartNumber: "MCF5223x(unidentified)", FlashSizeKB: 256}, nil
}
