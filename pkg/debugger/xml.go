package debugger

// TargetXML answers `qXfer:features:read:target.xml`: a minimal m68k
// target description sufficient for GDB to accept the register set this
// coordinator reports via `g`/`G`/`p`/`P`.
func TargetXML() string {
	return `<?xml version="1.0"?>
<!DOCTYPE target SYSTEM "gdb-target.dtd">
<target>
  <architecture>m68k:521x</architecture>
  <feature name="org.gnu.gdb.m68k.core">
    <reg name="d0" bitsize="32" type="int32"/>
    <reg name="d1" bitsize="32" type="int32"/>
    <reg name="d2" bitsize="32" type="int32"/>
    <reg name="d3" bitsize="32" type="int32"/>
    <reg name="d4" bitsize="32" type="int32"/>
    <reg name="d5" bitsize="32" type="int32"/>
    <reg name="d6" bitsize="32" type="int32"/>
    <reg name="d7" bitsize="32" type="int32"/>
    <reg name="a0" bitsize="32" type="data_ptr"/>
    <reg name="a1" bitsize="32" type="data_ptr"/>
    <reg name="a2" bitsize="32" type="data_ptr"/>
    <reg name="a3" bitsize="32" type="data_ptr"/>
    <reg name="a4" bitsize="32" type="data_ptr"/>
    <reg name="a5" bitsize="32" type="data_ptr"/>
    <reg name="a6" bitsize="32" type="data_ptr"/>
    <reg name="sp" bitsize="32" type="data_ptr"/>
    <reg name="ps" bitsize="32" type="int32"/>
    <reg name="pc" bitsize="32" type="code_ptr"/>
  </feature>
</target>
`
}

// MemoryMapXML answers `qXfer:memory-map:read`: the on-chip flash and
// the two SRAM regions of the MCF5223x memory map.
func MemoryMapXML() string {
	return `<?xml version="1.0"?>
<!DOCTYPE memory-map PUBLIC "+//IDN gnu.org//DTD GDB Memory Map V1.0//EN" "http://sourceware.org/gdb/gdb-memory-map.dtd">
<memory-map>
  <memory type="flash" start="0x00000000" length="0x40000">
    <property name="blocksize">0x800</property>
  </memory>
  <memory type="ram" start="0x20000000" length="0x8000"/>
  <memory type="ram" start="0x40000000" length="0x200000"/>
</memory-map>
`
}
