package debugger

import "fmt"

// VFlashBuffer is the staging area for one vFlash session: bytes are
// pre-filled 0xFF and every vFlashWrite packet must target an address
// inside [base_addr, base_addr+capacity).
type VFlashBuffer struct {
	BaseAddr uint32
	Capacity uint32
	WriteLen uint32
	Bytes    []byte
}

const vFlashCapacity = 256 * 1024

// ErrOutOfRange is the vFlash out-of-range error surfaced as GDB `E 0E`.
var ErrOutOfRange = fmt.Errorf("vflash: write address out of session range")

// VFlashErase bounds-checks [addr,addr+length) against the 256 KB flash
// device, lazily initializes the flashloader (uploading and running
// `op=0 init` exactly once per session, and clearing the engine's
// erased-sector map), and erases the range. The
// session's write buffer is not allocated here — it is lazily allocated
// on the first vFlashWrite, based at that packet's address.
func (c *Coordinator) VFlashErase(addr, length uint32) error {
	if uint64(addr)+uint64(length) > vFlashCapacity {
		return ErrOutOfRange
	}
	if c.engine == nil {
		return fmt.Errorf("vflash: flashloader not configured")
	}
	c.state = StateFlashing
	if !c.vflashInited {
		c.engine.Map.Reset()
		if err := c.engine.Init(); err != nil {
			return err
		}
		c.vflashInited = true
	}
	return c.engine.EraseRange(addr, length)
}

// VFlashWrite bounds-checks a chunk (already unescaped by pkg/rsp), lazily allocating the
// session buffer on the first call (base = this packet's address, per
// the vFlash session's lazy-allocation invariant) and copying the chunk
// into it at its stated offset.
func (c *Coordinator) VFlashWrite(addr uint32, data []byte) error {
	if !c.vflashInited {
		return fmt.Errorf("vflash: write before erase")
	}
	if c.vflash == nil {
		c.vflash = &VFlashBuffer{BaseAddr: addr, Capacity: vFlashCapacity, Bytes: make([]byte, vFlashCapacity)}
		for i := range c.vflash.Bytes {
			c.vflash.Bytes[i] = 0xFF
		}
	}
	if addr < c.vflash.BaseAddr || uint64(addr)+uint64(len(data)) > uint64(c.vflash.BaseAddr)+uint64(c.vflash.Capacity) {
		return ErrOutOfRange
	}
	off := addr - c.vflash.BaseAddr
	copy(c.vflash.Bytes[off:], data)
	if end := uint32(off) + uint32(len(data)); end > c.vflash.WriteLen {
		c.vflash.WriteLen = end
	}
	return nil
}

// VFlashDone programs the staged bytes (if any were written), resets the
// session, and re-initializes bring-up phases 2+8 so subsequent
// debugging works.
func (c *Coordinator) VFlashDone() error {
	if !c.vflashInited {
		return fmt.Errorf("vflash: done without erase")
	}
	if c.vflash != nil {
		data := c.vflash.Bytes[:c.vflash.WriteLen]
		if err := c.engine.Program(c.vflash.BaseAddr, data); err != nil {
			return err
		}
	}
	c.vflash = nil
	c.vflashInited = false
	c.state = StateHalted
	return c.reinitAfterFlash()
}

// reinitAfterFlash folds "cmd_bdm_reinit_after_execution"
// into the flashloader flow: after a vFlash cycle, re-run bring-up
// phases 2 (BDM entry) and 8 (memory-window full sequence).
func (c *Coordinator) reinitAfterFlash() error {
	if err := c.cmds.EnterBDM(); err != nil {
		return err
	}
	return c.cmds.WindowFullSequence(c.sess)
}
