package usbchan

import "testing"

func TestPersistentBufferLeavesLeftoverBytes(t *testing.T) {
	var buf PersistentBuffer
	// Simulate a previous response filling the whole buffer.
	prev := make([]byte, 256)
	for i := range prev {
		prev[i] = byte(i)
	}
	buf.SetAt(0, prev)

	// A short new command should only touch its own header+payload.
	buf.SetHeader([]byte{0xAA, 0x55, 0x00, 0x03})
	buf.SetAt(4, []byte{0x07, 0x01, 0xF8})

	got := buf.Bytes()
	for i := 7; i < 256; i++ {
		if got[i] != prev[i] {
			t.Fatalf("byte %d was touched by a 7-byte command: got %#x want %#x", i, got[i], prev[i])
		}
	}
}

func TestFillPattern(t *testing.T) {
	var buf PersistentBuffer
	buf.FillPattern(16)
	want := []byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	got := buf.Bytes()
	for i := 16; i < 256; i++ {
		if got[i] != want[(i-16)%6] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[(i-16)%6])
		}
	}
}

func TestExtractSRAMLongword(t *testing.T) {
	payload := make([]byte, 12)
	payload[0] = 0xAA
	payload[7] = 0xBB
	payload[9] = 0xCC
	payload[11] = 0xDD
	v, ok := ExtractSRAMLongword(payload)
	if !ok {
		t.Fatal("expected ok")
	}
	if v != 0xAABBCCDD {
		t.Fatalf("got %#x, want 0xaabbccdd", v)
	}
}

func TestExtractBulkGroups(t *testing.T) {
	// Two 6-byte groups: 4 data + 2 padding each.
	payload := []byte{
		0x11, 0x22, 0x33, 0x44, 0x00, 0x00,
		0x55, 0x66, 0x77, 0x88, 0x00, 0x00,
	}
	got := ExtractBulkGroups(payload, 8)
	want := []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}
