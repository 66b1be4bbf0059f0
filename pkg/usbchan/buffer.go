package usbchan

// PersistentBuffer is the pod's 256-byte command/response scratch area.
// It is never zeroed: every command builder overwrites only the
// header/payload bytes it owns and every response is read back into
// the same storage, so bytes past the end of one command's
// request/response remain from whatever the previous command left
// there. The pod firmware relies on this.
type PersistentBuffer struct {
	data [256]byte
}

// Bytes returns the full 256-byte backing array as a slice. Callers
// must not replace the slice's backing array (e.g. via append past
// len 256); only in-place mutation preserves the leftover-bytes
// invariant.
func (b *PersistentBuffer) Bytes() []byte {
	return b.data[:]
}

// SetHeader overwrites buf[0:len(header)] with header, leaving every
// other byte untouched. This is the one primitive every BDM command
// builder in pkg/bdm uses to stage a request: it must never touch
// bytes beyond what it explicitly writes.
func (b *PersistentBuffer) SetHeader(header []byte) {
	copy(b.data[:], header)
}

// SetAt overwrites count bytes starting at offset, leaving every other
// byte untouched.
func (b *PersistentBuffer) SetAt(offset int, data []byte) {
	copy(b.data[offset:], data)
}

// At returns a read-only view of count bytes starting at offset.
func (b *PersistentBuffer) At(offset, count int) []byte {
	return b.data[offset : offset+count]
}

// FillPattern overwrites buf[start:256] with the repeating 6-byte
// pattern {0x02,0x00,0x00,0x00,0x00,0x02} the `07 19` writer requires:
// some pod firmwares silently fail the SRAM-word write if the padding
// past the declared length is plain zero.
func (b *PersistentBuffer) FillPattern(start int) {
	pattern := [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	for i := start; i < len(b.data); i++ {
		b.data[i] = pattern[(i-start)%6]
	}
}
