// Package flash implements the flash programming engine: sector erase
// bookkeeping, chunked program/verify, blank-check, all riding on top
// of the flashloader RPC.
package flash

import (
	"fmt"

	"github.com/openlink-tools/cf5223dbg/pkg/flashloader"
	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// Total flash size and logical sector size GDB sees.
const (
	TotalSize  = 256 * 1024
	SectorSize = 2 * 1024
	NumSectors = TotalSize / SectorSize
)

// programChunkSize bounds a single program/verify RPC to the
// flashloader's 1024-byte data buffer.
const programChunkSize = 1024

// FlashMap tracks which logical sectors are known-erased within the
// current vFlash cycle, so erase_range can skip redundant erases.
type FlashMap struct {
	erased [NumSectors]bool
}

func (m *FlashMap) markErased(sector int) { m.erased[sector] = true }
func (m *FlashMap) isErased(sector int) bool {
	return sector >= 0 && sector < NumSectors && m.erased[sector]
}

// Reset clears the erased-sector bitmap, used at the start of a new
// vFlash session.
func (m *FlashMap) Reset() {
	for i := range m.erased {
		m.erased[i] = false
	}
}

// Engine exposes the flash operations GDB's vFlash* packets need,
// backed by a single flashloader.Loader instance.
type Engine struct {
	loader *flashloader.Loader
	sess   *usbchan.Session
	Map    FlashMap
}

// New wraps a flashloader.Loader in a flash Engine.
func New(ld *flashloader.Loader, sess *usbchan.Session) *Engine {
	return &Engine{loader: ld, sess: sess}
}

// Init runs the flashloader's one-time init operation.
func (e *Engine) Init() error {
	return e.loader.Exec(e.sess, flashloader.OpInit, 0, 0)
}

// MassErase erases the entire flash device.
func (e *Engine) MassErase() error {
	if err := e.loader.Exec(e.sess, flashloader.OpMassErase, 0, TotalSize); err != nil {
		return err
	}
	for i := range e.Map.erased {
		e.Map.markErased(i)
	}
	return nil
}

// EraseSector erases logical sector n (2 KB), skipping the call if the
// map already marks it erased.
func (e *Engine) EraseSector(n int) error {
	if e.Map.isErased(n) {
		return nil
	}
	addr := uint32(n * SectorSize)
	if err := e.loader.Exec(e.sess, flashloader.OpSectorErase, addr, SectorSize); err != nil {
		return err
	}
	e.Map.markErased(n)
	return nil
}

// EraseRange erases every 2 KB-aligned sector overlapping [addr, addr+len).
func (e *Engine) EraseRange(addr, length uint32) error {
	if length == 0 {
		return nil
	}
	start := int(addr / SectorSize)
	end := int((addr + length + SectorSize - 1) / SectorSize)
	for n := start; n < end; n++ {
		if err := e.EraseSector(n); err != nil {
			return fmt.Errorf("flash: erase sector %d: %w", n, err)
		}
	}
	return nil
}

// Program writes data at addr in ≤1024-byte chunks via the flashloader's
// data buffer. The final partial chunk is padded with 0xFF.
func (e *Engine) Program(addr uint32, data []byte) error {
	for off := 0; off < len(data); off += programChunkSize {
		end := off + programChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		if len(chunk)%4 != 0 {
			padded := make([]byte, (len(chunk)+3)&^3)
			copy(padded, chunk)
			for i := len(chunk); i < len(padded); i++ {
				padded[i] = 0xFF
			}
			chunk = padded
		}
		if err := e.loader.WriteDataBuffer(chunk); err != nil {
			return fmt.Errorf("flash: stage chunk at %#x: %w", addr+uint32(off), err)
		}
		chunkAddr := addr + uint32(off)
		if err := e.loader.Exec(e.sess, flashloader.OpProgram, chunkAddr, uint32(len(chunk))); err != nil {
			return fmt.Errorf("flash: program chunk at %#x: %w", chunkAddr, err)
		}
	}
	return nil
}

// BlankCheck asks the flashloader whether [addr, addr+len) is erased.
func (e *Engine) BlankCheck(addr, length uint32) error {
	return e.loader.Exec(e.sess, flashloader.OpBlankCheck, addr, length)
}

// VerifyMismatchError reports a verify-chunk content mismatch, distinct
// from a hard RPC error
type VerifyMismatchError struct {
	Addr uint32
}

func (e *VerifyMismatchError) Error() string {
	return fmt.Sprintf("flash: verify mismatch at %#x", e.Addr)
}

// Verify checks data against flash contents in ≤1024-byte chunks; data
// need not be contiguous in flash across calls.
func (e *Engine) Verify(addr uint32, data []byte) error {
	for off := 0; off < len(data); off += programChunkSize {
		end := off + programChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		if err := e.loader.WriteDataBuffer(chunk); err != nil {
			return err
		}
		chunkAddr := addr + uint32(off)
		if err := e.loader.Exec(e.sess, flashloader.OpVerify, chunkAddr, uint32(len(chunk))); err != nil {
			var ferr *flashloader.FlashError
			if asFlashError(err, &ferr) && ferr.Result == flashloader.ResultVerifyFail {
				return &VerifyMismatchError{Addr: chunkAddr}
			}
			return err
		}
	}
	return nil
}

func asFlashError(err error, target **flashloader.FlashError) bool {
	fe, ok := err.(*flashloader.FlashError)
	if ok {
		*target = fe
	}
	return ok
}

// ProgramBinary is the all-in-one entry point the CLI's program
// subcommand uses: erase the covering range, program, and optionally
// verify.
func (e *Engine) ProgramBinary(data []byte, baseAddr uint32, verify bool) error {
	if err := e.EraseRange(baseAddr, uint32(len(data))); err != nil {
		return err
	}
	if err := e.Program(baseAddr, data); err != nil {
		return err
	}
	if verify {
		if err := e.Verify(baseAddr, data); err != nil {
			return err
		}
	}
	return nil
}
