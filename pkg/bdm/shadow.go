package bdm

// Shadow holds the software-side copies of the pod's write-only debug
// registers (TDR, PBR0-3, ABLR, ABHR). These registers cannot be read
// back from hardware; pkg/debugger's breakpoint and
// watchpoint tables consult Shadow instead of issuing a read.
type Shadow struct {
	TDR  uint32
	PBR  [4]uint32
	ABLR uint32
	ABHR uint32
}

// WritePBR writes PBRn through WDMREG and updates the shadow copy. n
// must be in [0,3].
func (c *Commands) WritePBR(sh *Shadow, n int, value uint32) error {
	drcs := [4]byte{DRcPBR0, DRcPBR1, DRcPBR2, DRcPBR3}
	if n < 0 || n > 3 {
		panic("bdm: PBR index out of range")
	}
	if err := c.WriteDebugModuleRegister(drcs[n], value); err != nil {
		return err
	}
	sh.PBR[n] = value
	return nil
}

// WriteTDR writes the trigger definition register through WDMREG and
// updates the shadow copy.
func (c *Commands) WriteTDR(sh *Shadow, value uint32) error {
	if err := c.WriteDebugModuleRegister(DRcTDR, value); err != nil {
		return err
	}
	sh.TDR = value
	return nil
}

// WriteABLR/WriteABHR write the address breakpoint low/high registers
// through WDMREG and update the shadow copy.
func (c *Commands) WriteABLR(sh *Shadow, value uint32) error {
	if err := c.WriteDebugModuleRegister(DRcABLR, value); err != nil {
		return err
	}
	sh.ABLR = value
	return nil
}

func (c *Commands) WriteABHR(sh *Shadow, value uint32) error {
	if err := c.WriteDebugModuleRegister(DRcABHR, value); err != nil {
		return err
	}
	sh.ABHR = value
	return nil
}
