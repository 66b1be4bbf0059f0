// Package debugger implements the debug coordinator: the target
// run/halt state machine, register file view, breakpoint and
// watchpoint tables, and the GDB RSP packet dispatch that drives them.
package debugger

import (
	"github.com/openlink-tools/cf5223dbg/pkg/bdm"
	"github.com/openlink-tools/cf5223dbg/pkg/flash"
	"github.com/openlink-tools/cf5223dbg/pkg/flashloader"
	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// TargetState is the coarse run-state of the attached CPU.
type TargetState int

const (
	StateUnknown TargetState = iota
	StateHalted
	StateRunning
	StateFlashing
)

// Coordinator owns the target state machine, register cache,
// breakpoint/watchpoint tables, the WDMREG shadow, and the vFlash
// session buffer. It borrows the pod session for the duration of each
// packet it services.
type Coordinator struct {
	sess *usbchan.Session
	cmds *bdm.Commands

	state TargetState
	info  *bdm.TargetInfo

	shadow bdm.Shadow

	cachedSP  uint32
	cachedPC  uint32
	haveCache bool

	bps    BreakpointTable
	vflash *VFlashBuffer

	// vflashInited tracks whether engine.Init() has run for the current
	// vFlash session, independent of whether the write buffer has been
	// allocated yet (that happens lazily on the first vFlashWrite).
	vflashInited bool

	loader *flashloader.Loader
	engine *flash.Engine

	stepCount int
}

// New wires a Coordinator around an already-bootstrapped session. info
// may be nil if bring-up's chip identification failed to resolve a part.
func New(sess *usbchan.Session, info *bdm.TargetInfo, ld *flashloader.Loader) *Coordinator {
	c := &Coordinator{
		sess:  sess,
		cmds:  bdm.New(sess),
		state: StateHalted,
		info:  info,
	}
	c.loader = ld
	if ld != nil {
		c.engine = flash.New(ld, sess)
	}
	return c
}

// ensureRegisterCache performs the "On first successful halt, read 8
// bytes at flash 0x00000000" initialization of 
func (c *Coordinator) ensureRegisterCache() {
	if c.haveCache {
		return
	}
	block, err := c.cmds.ReadMemoryBlock(0x00000000, 8)
	if err != nil || len(block) < 8 {
		return
	}
	c.cachedSP = be32(block[0:4])
	c.cachedPC = be32(block[4:8])
	c.haveCache = true
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
