package debugger

import (
	"fmt"
	"time"

	"github.com/openlink-tools/cf5223dbg/pkg/bdm"
)

const (
	csrWindow  = 0x2D80
	csrBKPTBit = 1 << 24
	csrSSMBit  = 1 << 22 // single-step-mode enable, BDM CSR
)

// Continue implements `c`/`vCont;c`: resume the target and wait for it
// to stop
func (c *Coordinator) Continue(newPC *uint32) (string, error) {
	if newPC != nil {
		if err := c.writeRegister(bdm.RegPC, *newPC); err != nil {
			return "", err
		}
	}
	if err := c.cmds.EnterMode(0xF8); err != nil {
		return "", err
	}
	if err := c.cmds.Go(); err != nil {
		return "", err
	}
	c.state = StateRunning

	deadline := time.Now().Add(5 * time.Second)
	tick := time.NewTicker(1 * time.Millisecond)
	defer tick.Stop()
	lastCSRCheck := time.Now()
	bkptHit := false

	for time.Now().Before(deadline) {
		<-tick.C
		halted, err := c.cmds.FreezeCheck()
		if err != nil {
			return "", err
		}
		if halted {
			break
		}
		if time.Since(lastCSRCheck) >= 10*time.Millisecond {
			lastCSRCheck = time.Now()
			csr, err := c.cmds.ReadRegisterWindow(csrWindow)
			if err == nil && csr&csrBKPTBit != 0 {
				bkptHit = true
				break
			}
		}
	}

	if !bkptHit {
		halted, err := c.cmds.FreezeCheck()
		if err != nil {
			return "", err
		}
		if !halted {
			// Timed out: force halt and re-verify.
			if err := c.cmds.Halt(); err != nil {
				return "", err
			}
			if err := c.cmds.EnterMode(0xF8); err != nil {
				return "", err
			}
			if _, err := c.cmds.FreezeCheck(); err != nil {
				return "", err
			}
		}
	}
	c.state = StateHalted
	c.ensureRegisterCache()

	if addr, ok := c.watchpointHit(); ok {
		return fmt.Sprintf("T05watch:%08x;", addr), nil
	}
	return "S05", nil
}

// Step implements `s`/`vCont;s`: single-step and apply the 2-step mode
// reset workaround.
func (c *Coordinator) Step(newPC *uint32) (string, error) {
	if newPC != nil {
		if err := c.writeRegister(bdm.RegPC, *newPC); err != nil {
			return "", err
		}
	}
	pc, err := c.readRegister(bdm.RegPC)
	if err != nil {
		return "", err
	}

	csr, err := c.cmds.ReadRegisterWindow(csrWindow)
	if err != nil {
		return "", err
	}
	if err := writeCSR(c, csr|csrSSMBit); err != nil {
		return "", err
	}
	if err := c.cmds.Go(); err != nil {
		return "", err
	}

	deadline := time.Now().Add(100 * time.Millisecond)
	halted := false
	for time.Now().Before(deadline) {
		time.Sleep(1 * time.Millisecond)
		h, err := c.cmds.FreezeCheck()
		if err != nil {
			return "", err
		}
		if h {
			halted = true
			break
		}
	}
	if !halted {
		if err := c.cmds.Halt(); err != nil {
			return "", err
		}
	}

	if err := writeCSR(c, csr&^csrSSMBit); err != nil {
		return "", err
	}

	c.stepCount++
	if c.stepCount >= 2 {
		// Preserve the PC the step ended at, not the one read before it.
		if pc, err = c.readRegister(bdm.RegPC); err != nil {
			return "", err
		}
		if err := c.applyStepWorkaround(pc); err != nil {
			return "", err
		}
		c.stepCount = 0
	}

	c.state = StateHalted
	return "S05", nil
}

// applyStepWorkaround performs the `F8→F0→F8` mode-reset sequence the
// firmware's single-step engine needs every 2 steps, preserving PC
// across it.
func (c *Coordinator) applyStepWorkaround(pc uint32) error {
	if err := c.cmds.EnterMode(0xF8); err != nil {
		return err
	}
	if err := c.cmds.EnterMode(0xF0); err != nil {
		return err
	}
	if err := c.cmds.EnterMode(0xF8); err != nil {
		return err
	}
	return c.writeRegister(bdm.RegPC, pc)
}

func writeCSR(c *Coordinator, value uint32) error {
	return c.cmds.WriteWindowRegister(csrWindow, value)
}

// MonitorReset implements the `qRcmd,reset` family: reload PC/SP from
// the reset vectors at flash 0x0/0x4, falling back to cached values or
// the documented defaults.
func (c *Coordinator) MonitorReset() error {
	sp, pc := uint32(0), uint32(0)
	block, err := c.cmds.ReadMemoryBlock(0x0, 8)
	if err == nil && len(block) >= 8 {
		sp = be32(block[0:4])
		pc = be32(block[4:8])
	}
	if sp == 0 || sp == 0xFFFFFFFF {
		if c.haveCache {
			sp = c.cachedSP
		} else {
			sp = 0x20008000
		}
	}
	if pc == 0 || pc == 0xFFFFFFFF {
		if c.haveCache {
			pc = c.cachedPC
		} else {
			pc = 0x400
		}
	}
	if err := c.cmds.WriteRegister(bdm.RegA7, sp); err != nil {
		return err
	}
	if err := c.cmds.WriteRegister(bdm.RegPC, pc); err != nil {
		return err
	}
	return c.cmds.Sync()
}
