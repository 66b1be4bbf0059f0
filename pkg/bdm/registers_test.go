package bdm

import "testing"

func TestBdmReadWindow(t *testing.T) {
	cases := []struct {
		reg  int
		want uint16
		ok   bool
	}{
		{RegD0, 0x2180, true},
		{RegD7, 0x2187, true},
		{RegA0, 0x2188, true},
		{RegA7, 0x218F, true},
		{RegSR, 0, false},
		{RegPC, 0, false},
	}
	for _, c := range cases {
		got, ok := bdmReadWindow(c.reg)
		if ok != c.ok {
			t.Fatalf("reg %d: ok = %v, want %v", c.reg, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("reg %d: window = %#x, want %#x", c.reg, got, c.want)
		}
	}
}

func TestBdmWriteReg(t *testing.T) {
	cases := []struct {
		reg  int
		want uint16
		ok   bool
	}{
		{RegPC, 0x080F, true},
		{RegSR, 0x080E, true},
		{RegA7, 0x018F, true},
		{RegD0, 0x0080, true},
		{RegA0, 0x0088, true},
	}
	for _, c := range cases {
		got, ok := bdmWriteReg(c.reg)
		if ok != c.ok {
			t.Fatalf("reg %d: ok = %v, want %v", c.reg, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("reg %d: code = %#x, want %#x", c.reg, got, c.want)
		}
	}
}
