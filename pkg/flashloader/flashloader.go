// Package flashloader uploads the on-target flashloader ELF stub to
// SRAM and drives it through its fixed parameter-block RPC.
package flashloader

import (
	"fmt"
	"time"

	"github.com/openlink-tools/cf5223dbg/pkg/bdm"
	"github.com/openlink-tools/cf5223dbg/pkg/loader"
	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// Fixed SRAM parameter-block layout.
const (
	paramOperation = 0x20000000
	paramFlashAddr = 0x20000004
	paramLength    = 0x20000008
	paramResult    = 0x2000000C
	paramStatus    = 0x20000010
	paramDataBuf   = 0x20000100
)

// FlashOp identifies one flashloader RPC operation.
type FlashOp uint32

const (
	OpInit        FlashOp = 0
	OpMassErase   FlashOp = 1
	OpSectorErase FlashOp = 2
	OpProgram     FlashOp = 3
	OpBlankCheck  FlashOp = 4
	OpVerify      FlashOp = 5
)

// Result codes the loader reports back in its parameter block.
const (
	ResultSuccess    = 0
	ResultAccErr     = 1
	ResultPViol      = 2
	ResultNotBlank   = 3
	ResultVerifyFail = 4
	ResultTimeout    = 5
	ResultUnknownOp  = 0xFF
)

// timeouts per operation; erases take longer than other RPCs.
var opTimeouts = map[FlashOp]time.Duration{
	OpSectorErase: 10 * time.Second,
	OpMassErase:   30 * time.Second,
}

const defaultOpTimeout = 5 * time.Second

// FlashError reports a non-success result from the flashloader stub,
// including the raw CFMUSTAT status byte for diagnostics.
type FlashError struct {
	Op       FlashOp
	Result   uint32
	CFMUStat uint8
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("flashloader op %d failed: result=%d cfmustat=%#02x", e.Op, e.Result, e.CFMUStat)
}

// chunkSize is the bulk-download chunk size used while uploading the
// loader image.
const chunkSize = 1192

// Loader owns the parsed ELF image and tracks whether it has already
// been uploaded this process, so Exec can be called repeatedly without
// re-uploading.
type Loader struct {
	cmds     *bdm.Commands
	loadAddr uint32
	entry    uint32
	image    []byte
	loaded   bool
}

// New parses the flashloader ELF at path and returns a Loader ready to
// Upload against the given BDM command set.
func New(cmds *bdm.Commands, path string) (*Loader, error) {
	img, err := loader.Load(path, 0)
	if err != nil {
		return nil, fmt.Errorf("flashloader: parse %s: %w", path, err)
	}
	// Gaps between the ELF's ALLOC+PROGBITS sections are alignment
	// padding that must read back as zero in SRAM, unlike the 0xFF fill
	// correct for loading a flash image.
	contiguous := loader.ContiguousImageZeroFilled(img)
	return &Loader{
		cmds:     cmds,
		loadAddr: img.MinAddr,
		entry:    img.Entry,
		image:    contiguous,
	}, nil
}

// Upload uploads the loader image to SRAM once per process lifetime.
func (l *Loader) Upload(sess *usbchan.Session) error {
	if l.loaded {
		return nil
	}
	addr := l.loadAddr
	data := l.image
	for len(data) > 0 {
		n := chunkSize
		if n > len(data) {
			n = len(data)
		}
		if err := l.cmds.BulkDownloadChunk(addr, data[:n]); err != nil {
			return fmt.Errorf("flashloader: upload chunk at %#x: %w", addr, err)
		}
		addr += uint32(n)
		data = data[n:]
	}
	l.loaded = true
	sess.Logf("flashloader: uploaded %d bytes at %#x, entry %#x", len(l.image), l.loadAddr, l.entry)
	return nil
}

// Exec runs one flashloader operation through the full per-operation RPC:
// window setup, parameter-block write, PC/SR seed, GO, poll-for-halt,
// result readback, and mode re-entry.
func (l *Loader) Exec(sess *usbchan.Session, op FlashOp, addr, length uint32) error {
	if !l.loaded {
		if err := l.Upload(sess); err != nil {
			return err
		}
	}

	if err := l.cmds.WindowFullSequence(sess); err != nil {
		return fmt.Errorf("flashloader: window setup: %w", err)
	}

	if err := l.cmds.WriteWord0719(paramOperation, uint32(op)); err != nil {
		return err
	}
	if err := l.cmds.WriteWord0719(paramFlashAddr, addr); err != nil {
		return err
	}
	if err := l.cmds.WriteWord0719(paramLength, length); err != nil {
		return err
	}
	if err := l.cmds.WriteWord0719(paramResult, 0xFFFFFFFF); err != nil {
		return err
	}
	if err := l.cmds.WriteWord0719(paramStatus, 0); err != nil {
		return err
	}

	if err := l.cmds.WriteRegister(bdm.RegPC, l.entry); err != nil {
		return err
	}
	if err := l.cmds.Sync(); err != nil {
		return err
	}
	if err := l.cmds.WriteRegister(bdm.RegSR, 0x2700); err != nil {
		return err
	}

	if err := l.cmds.Go(); err != nil {
		return err
	}

	timeout, ok := opTimeouts[op]
	if !ok {
		timeout = defaultOpTimeout
	}
	if err := l.pollHalted(sess, timeout); err != nil {
		return err
	}

	result, err := l.cmds.ReadVerifyLongword(paramResult)
	if err != nil {
		return err
	}
	if result != ResultSuccess {
		status, _ := l.cmds.ReadVerifyLongword(paramStatus)
		if err := l.cmds.EnterMode(0xF8); err != nil {
			sess.Logf("flashloader: re-enter mode after failed op %d: %v", op, err)
		}
		return &FlashError{Op: op, Result: result, CFMUStat: uint8(status)}
	}

	return l.cmds.EnterMode(0xF8)
}

// pollHalted polls BDM CSR bit 14 ("halted") once per second, up to
// timeout.
func (l *Loader) pollHalted(sess *usbchan.Session, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		csr, err := l.cmds.ReadRegisterWindow(0x2D80)
		if err != nil {
			return err
		}
		if csr&(1<<14) != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("flashloader: timed out waiting for halt after %s", timeout)
		}
		time.Sleep(1 * time.Second)
	}
}

// WriteDataBuffer writes up to 1024 bytes of chunk data into the
// parameter block's data buffer at 0x20000100 via the 07/19 word
// writer's program chunking.
func (l *Loader) WriteDataBuffer(data []byte) error {
	for i := 0; i+4 <= len(data); i += 4 {
		word := uint32(data[i])<<24 | uint32(data[i+1])<<16 | uint32(data[i+2])<<8 | uint32(data[i+3])
		if err := l.cmds.WriteWord0719(paramDataBuf+uint32(i), word); err != nil {
			return err
		}
	}
	return nil
}

// DataBufferAddr is the parameter block's data-buffer base, exported
// for pkg/flash's chunk-address bookkeeping.
const DataBufferAddr = paramDataBuf
