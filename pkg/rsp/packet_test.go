package rsp

import (
	"bytes"
	"testing"
)

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	data := []byte("hello #$*} world\x00binary")
	if got := Unescape(Escape(data)); !bytes.Equal(got, data) {
		t.Fatalf("Unescape(Escape(x)) = %q, want %q", got, data)
	}
}

func TestFormatPacketAndScanRoundTrip(t *testing.T) {
	payload := []byte("qSupported#$*}withbinary\x00\x01\x02")
	packet := FormatPacket(payload)

	ev, consumed := Scan(packet)
	if ev == nil {
		t.Fatalf("Scan returned nil event for a complete packet")
	}
	if ev.Kind != EventPacket {
		t.Fatalf("Kind = %v, want EventPacket", ev.Kind)
	}
	if consumed != len(packet) {
		t.Fatalf("consumed = %d, want %d", consumed, len(packet))
	}
	if !bytes.Equal(ev.Payload, payload) {
		t.Fatalf("round-tripped payload = %q, want %q", ev.Payload, payload)
	}
}

func TestScanNeedsMoreData(t *testing.T) {
	ev, consumed := Scan([]byte("$abc"))
	if ev != nil || consumed != 0 {
		t.Fatalf("expected need-more-data, got ev=%v consumed=%d", ev, consumed)
	}
}

func TestScanAckNakInterrupt(t *testing.T) {
	cases := []struct {
		in   byte
		kind EventKind
	}{
		{'+', EventAck},
		{'-', EventNak},
		{0x03, EventInterrupt},
	}
	for _, c := range cases {
		ev, consumed := Scan([]byte{c.in})
		if ev == nil || ev.Kind != c.kind || consumed != 1 {
			t.Fatalf("Scan(%q) = %v, %d; want kind %v consumed 1", c.in, ev, consumed, c.kind)
		}
	}
}

func TestScanBadChecksum(t *testing.T) {
	ev, consumed := Scan([]byte("$abc#00"))
	if ev == nil || ev.Kind != EventBadChecksum {
		t.Fatalf("expected EventBadChecksum, got %v", ev)
	}
	if consumed != len("$abc#00") {
		t.Fatalf("consumed = %d, want %d", consumed, len("$abc#00"))
	}
}

func TestChecksumMatchesSpecExample(t *testing.T) {
	// "OK" checksum: 'O'+'K' = 0x4F+0x4B = 0x9A
	if got := Checksum([]byte("OK")); got != 0x9A {
		t.Fatalf("Checksum(OK) = %#x, want 0x9a", got)
	}
}
