package bdm

import (
	"fmt"

	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// Commands is the typed BDM command set, built directly on top of a
// usbchan.Session. One method per wire primitive; nothing here knows
// about register caches, breakpoints or GDB — that lives in
// pkg/debugger.
type Commands struct {
	sess *usbchan.Session
}

// New wraps an open session in the typed BDM command set.
func New(sess *usbchan.Session) *Commands {
	return &Commands{sess: sess}
}

// EnterMode issues `07 01 <mode>`.
func (c *Commands) EnterMode(mode byte) error {
	_, err := c.sess.SendAA([]byte{0x07, 0x01, mode}, true)
	return err
}

// EnableMemoryAccess issues `07 0A <param>`.
func (c *Commands) EnableMemoryAccess(param byte) error {
	_, err := c.sess.SendAA([]byte{0x07, 0x0A, param}, true)
	return err
}

// Cmd0440 issues the generic `04 40 <a> <b>` shape used for BDM mode
// entry and halt requests.
func (c *Commands) Cmd0440(a, b byte) error {
	_, err := c.sess.SendAA([]byte{0x04, 0x40, a, b}, true)
	return err
}

// Halt issues `04 40 00 01`.
func (c *Commands) Halt() error {
	return c.Cmd0440(0x00, 0x01)
}

// SetupMemoryWindow issues `07 10 00 <win:2>` and unconditionally drains
// the response without validating it
func (c *Commands) SetupMemoryWindow(window uint16) error {
	payload := []byte{0x07, 0x10, 0x00, byte(window >> 8), byte(window)}
	return c.sess.Channel.SendAADrain(payload)
}

// ReadRegisterWindow issues `07 13 <window:2>` and returns the 4-byte
// register value embedded at payload offsets 0-3 of the standard
// response.
func (c *Commands) ReadRegisterWindow(window uint16) (uint32, error) {
	resp, err := c.sess.SendAA([]byte{0x07, 0x13, byte(window >> 8), byte(window)}, true)
	if err != nil {
		return 0, err
	}
	return payloadUint32(resp.Payload)
}

// ReadRegister reads a D/A register by GDB register index.
func (c *Commands) ReadRegister(reg int) (uint32, error) {
	win, ok := bdmReadWindow(reg)
	if !ok {
		return 0, fmt.Errorf("bdm: register %d has no 07/13 read window", reg)
	}
	return c.ReadRegisterWindow(win)
}

// readSpecial codes for the `07 11` PC/SR path.
const (
	specialPC = 0x0F
	specialSR = 0x0E
)

// ReadPC issues `07 11 29 80 00 00 08 0F`.
func (c *Commands) ReadPC() (uint32, error) {
	return c.readSpecial(specialPC)
}

// ReadSR issues `07 11 29 80 00 00 08 0E`.
func (c *Commands) ReadSR() (uint32, error) {
	return c.readSpecial(specialSR)
}

func (c *Commands) readSpecial(which byte) (uint32, error) {
	resp, err := c.sess.SendAA([]byte{0x07, 0x11, 0x29, 0x80, 0x00, 0x00, 0x08, which}, true)
	if err != nil {
		return 0, err
	}
	return payloadUint32(resp.Payload)
}

// WriteRegister issues `07 14 28 80 00 00 <reg:2> <val:4>` for a D/A/PC
// register. Writing the PC requires a follow-up Sync call; callers that
// write PC must call Sync themselves (pkg/debugger does this as part of
// its register-write flow).
func (c *Commands) WriteRegister(reg int, value uint32) error {
	code, ok := bdmWriteReg(reg)
	if !ok {
		return fmt.Errorf("bdm: register %d has no 07/14 write code", reg)
	}
	payload := []byte{
		0x07, 0x14, 0x28, 0x80, 0x00, 0x00,
		byte(code >> 8), byte(code),
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
	}
	_, err := c.sess.SendAA(payload, true)
	return err
}

// WriteWindowRegister issues the raw `07 14 28 80 00 00 <reg:2> <val:4>`
// write for a window-addressed register that has no GDB register index
// of its own (e.g. the BDM CSR at window 0x2D80), mirroring the shape
// WriteRegister uses for D/A/PC/SR.
func (c *Commands) WriteWindowRegister(reg uint16, value uint32) error {
	payload := []byte{
		0x07, 0x14, 0x28, 0x80, 0x00, 0x00,
		byte(reg >> 8), byte(reg),
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
	}
	_, err := c.sess.SendAA(payload, true)
	return err
}

// WriteDebugModuleRegister issues the WDMREG shape
// `07 14 2C <0x42|DRc> 00 00 00 <DRc> <val:4>` for one of the write-only
// debug registers (TDR, PBRn, ABLR, ABHR). Callers must update the
// corresponding Shadow field themselves — these registers cannot be
// read back.
func (c *Commands) WriteDebugModuleRegister(drc byte, value uint32) error {
	payload := []byte{
		0x07, 0x14, 0x2C, 0x42 | drc, 0x00, 0x00, 0x00, drc,
		byte(value >> 24), byte(value >> 16), byte(value >> 8), byte(value),
	}
	_, err := c.sess.SendAA(payload, true)
	return err
}

// Sync issues the post-PC-write `07 12` sync command. The
// pod's declared length for this command is 2 (cmd+sub only); the two
// FFFF bytes the protocol name implies sit at buffer offsets 6-7,
// outside the declared length, and are read by the pod firmware anyway
// — a legacy quirk of the persistent-buffer design, not a framing bug.
func (c *Commands) Sync() error {
	c.sess.Buffer.SetAt(6, []byte{0xFF, 0xFF})
	_, err := c.sess.SendAA([]byte{0x07, 0x12}, true)
	return err
}

// WriteMemShort issues `07 16 <addr:2> <data:4>`: the window-relative
// 16-bit-address memory writer.
func (c *Commands) WriteMemShort(addr uint16, data uint32) error {
	payload := []byte{
		0x07, 0x16, byte(addr >> 8), byte(addr),
		byte(data >> 24), byte(data >> 16), byte(data >> 8), byte(data),
	}
	_, err := c.sess.SendAA(payload, true)
	return err
}

// WriteMemLong issues `07 16 <addr:4> <data:4>`: the full 32-bit-address
// memory writer.
func (c *Commands) WriteMemLong(addr uint32, data uint32) error {
	payload := []byte{
		0x07, 0x16,
		byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr),
		byte(data >> 24), byte(data >> 16), byte(data >> 8), byte(data),
	}
	_, err := c.sess.SendAA(payload, true)
	return err
}

// WriteWord0719 issues the single-SRAM-word writer
// `07 19 00 04 <addr:4> <data:4>`, followed by the 02-pattern padding
// required from buffer offset 16 onward.
func (c *Commands) WriteWord0719(addr uint32, data uint32) error {
	payload := []byte{
		0x07, 0x19, 0x00, 0x04,
		byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr),
		byte(data >> 24), byte(data >> 16), byte(data >> 8), byte(data),
	}
	c.sess.Buffer.FillPattern(16)
	_, err := c.sess.SendAA(payload, true)
	return err
}

// ReadMemoryBlock issues `07 17 <addr:4> <raw:2>`, where raw is the
// ceil(count/4)*6 bytes the pod returns for count data bytes, and
// de-interleaves the 6-byte groups into a contiguous byte slice.
func (c *Commands) ReadMemoryBlock(addr uint32, count uint16) ([]byte, error) {
	raw := (int(count) + 3) / 4 * 6
	payload := []byte{
		0x07, 0x17,
		byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr),
		byte(raw >> 8), byte(raw),
	}
	resp, err := c.sess.SendAA(payload, true)
	if err != nil {
		return nil, err
	}
	return usbchan.ExtractBulkGroups(resp.Payload, int(count)), nil
}

// ReadVerifyLongword issues `07 1B <addr:4>` and extracts the
// non-contiguous 32-bit value from offsets {0,7,9,11} of the response
// payload.
func (c *Commands) ReadVerifyLongword(addr uint32) (uint32, error) {
	payload := []byte{0x07, 0x1B, byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
	resp, err := c.sess.SendAA(payload, true)
	if err != nil {
		return 0, err
	}
	v, ok := usbchan.ExtractSRAMLongword(resp.Payload)
	if !ok {
		return 0, fmt.Errorf("bdm: 07/1B response too short for SRAM longword extraction")
	}
	return v, nil
}

// Go issues `07 02 FC 0C 00`, which expects no response.
func (c *Commands) Go() error {
	_, err := c.sess.SendAA([]byte{0x07, 0x02, 0xFC, 0x0C, 0x00}, false)
	return err
}

// FreezeCheck issues `04 7F FE 02` with the 500ms freeze-check timeout.
// It returns (true, nil) if the target reports frozen (status 0x00/0x01,
// or an empty payload), (false, nil) if the read timed out or the status
// byte is 0x88 or any undocumented value, or an error for a transport or
// framing failure.
func (c *Commands) FreezeCheck() (frozen bool, err error) {
	resp, err := c.sess.Channel.FreezeCheck([]byte{0x04, 0x7F, 0xFE, 0x02})
	if err == usbchan.ErrStillRunning {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(resp.Payload) == 0 {
		return true, nil
	}
	status := resp.Payload[0]
	switch status {
	case 0x88:
		return false, nil
	case 0x00, 0x01:
		return true, nil
	default:
		// Undocumented status byte: treat as running rather than halted.
		c.sess.Logf("freeze-check: undocumented status byte %#02x, treating as running", status)
		return false, nil
	}
}

// BulkDownloadChunk sends one 1192-byte-or-smaller chunk of a BB-66
// chunked bulk download at the given SRAM address, expecting no
// response.
func (c *Commands) BulkDownloadChunk(addr uint32, data []byte) error {
	dlen := len(data)
	payload := make([]byte, 0, 8+dlen)
	payload = append(payload, 0x07, 0x19, byte(dlen>>8), byte(dlen))
	payload = append(payload, byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
	payload = append(payload, data...)
	return c.sess.Channel.SendBBChunk(payload)
}

// BulkDownloadSingle sends an entire image in one BB-66 transfer and
// drains its short acknowledgement.
func (c *Commands) BulkDownloadSingle(addr uint32, data []byte) error {
	dlen := len(data)
	payload := make([]byte, 0, 8+dlen)
	payload = append(payload, 0x07, 0x19, byte(dlen>>8), byte(dlen))
	payload = append(payload, byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
	payload = append(payload, data...)
	return c.sess.Channel.SendBBSingle(payload)
}

func payloadUint32(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("bdm: response payload too short for a 32-bit value: %d bytes", len(payload))
	}
	return uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]), nil
}
