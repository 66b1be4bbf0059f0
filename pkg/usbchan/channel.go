// Package usbchan implements the USB framed request/response channel to
// the BDM pod on top of bulk transfers. It owns the
// persistent 256-byte command buffer and the pod's two magic response
// shapes; it knows nothing about what any particular BDM command means.
package usbchan

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/google/gousb"
)

const (
	// Endpoint addresses.
	endpointOut = 0x02
	endpointIn  = 0x81

	// bulkPacketSize is the assumed max packet size of the pod's bulk
	// endpoints (full-speed bulk). Used only to decide when an IN read
	// is "short" and assembly can stop early; it does not affect
	// correctness of well-formed single-packet responses.
	bulkPacketSize = 64

	// responsePacketCap bounds how many additional IN packets are read
	// while assembling an oversized response
	responsePacketCap = 8

	defaultTimeout = 5 * time.Second
	freezeTimeout  = 500 * time.Millisecond
)

// bulkEndpoint is the narrow surface Channel needs from a gousb bulk
// endpoint; satisfied directly by *gousb.InEndpoint / *gousb.OutEndpoint.
type bulkEndpoint interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// Channel is the USB framed request/response transport to the pod. It
// owns the persistent buffer: every command builder in pkg/bdm receives
// a pointer to the same PersistentBuffer and must never replace it.
type Channel struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	out    bulkEndpoint
	in     bulkEndpoint
	closer io.Closer
	Buffer PersistentBuffer
	Trace  func(direction string, data []byte)
}

// Open enumerates, opens and claims the pod at the given VID/PID,
// resolving its bulk endpoints.
func Open(vid, pid uint16) (*Channel, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, &IOError{Op: "open", Err: err}
	}
	if dev == nil {
		ctx.Close()
		return nil, &IOError{Op: "open", Err: errNoDevice}
	}

	if err := dev.SetAutoDetach(true); err != nil {
		dev.Close()
		ctx.Close()
		return nil, &IOError{Op: "auto-detach", Err: err}
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, &IOError{Op: "config", Err: err}
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, &IOError{Op: "claim interface", Err: err}
	}

	outEp, err := intf.OutEndpoint(endpointOut & 0x0f)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, &IOError{Op: "out endpoint", Err: err}
	}

	inEp, err := intf.InEndpoint(endpointIn & 0x0f)
	if err != nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		ctx.Close()
		return nil, &IOError{Op: "in endpoint", Err: err}
	}

	return &Channel{
		ctx:  ctx,
		dev:  dev,
		cfg:  cfg,
		intf: intf,
		out:  outEp,
		in:   inEp,
	}, nil
}

// Close releases the claimed interface and USB context, or the relay
// connection for a TCP-backed Channel.
func (c *Channel) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	if c.intf != nil {
		c.intf.Close()
	}
	if c.cfg != nil {
		c.cfg.Close()
	}
	var err error
	if c.dev != nil {
		err = c.dev.Close()
	}
	if c.ctx != nil {
		c.ctx.Close()
	}
	return err
}

// tcpEndpoint adapts a net.Conn to the bulkEndpoint interface so a
// Channel can run its entire command protocol over a TCP relay instead
// of a local USB pod.
type tcpEndpoint struct {
	conn net.Conn
}

func (e tcpEndpoint) Read(p []byte) (int, error)  { return e.conn.Read(p) }
func (e tcpEndpoint) Write(p []byte) (int, error) { return e.conn.Write(p) }

// OpenTCP dials a podrelay server (see pkg/podrelay) instead of a local
// USB device. The relay forwards raw bulk-transfer bytes 1:1, so every
// Channel method above works unmodified against the remote pod.
func OpenTCP(addr string) (*Channel, error) {
	conn, err := net.DialTimeout("tcp", addr, defaultTimeout)
	if err != nil {
		return nil, &IOError{Op: "relay dial", Err: err}
	}
	ep := tcpEndpoint{conn: conn}
	return &Channel{out: ep, in: ep, closer: conn}, nil
}

// RawWrite and RawRead expose the unframed bulk endpoints directly, for
// podrelay to pump bytes between a TCP client and the physical pod
// without interpreting them as commands.
func (c *Channel) RawWrite(p []byte) (int, error) { return c.out.Write(p) }
func (c *Channel) RawRead(p []byte) (int, error)  { return c.in.Read(p) }

func (c *Channel) trace(direction string, data []byte) {
	if c.Trace != nil {
		c.Trace(direction, data)
	}
}

// writeFull always sends the complete 256-byte persistent buffer on the
// OUT endpoint, regardless of the command's declared length — the pod
// firmware always reads a full 256-byte frame.
func (c *Channel) writeFull(timeout time.Duration) error {
	data := append([]byte(nil), c.Buffer.Bytes()...)
	c.trace("OUT", data)
	n, err := withTimeout(timeout, func() (int, error) { return c.out.Write(data) })
	if err != nil {
		return &IOError{Op: "bulk out", Err: err}
	}
	if n != len(data) {
		return &IOError{Op: "bulk out", Err: errShortWrite}
	}
	return nil
}

// readOnePacket reads a single IN packet, returning (nil, ErrStillRunning)
// on any timeout rather than an I/O error. The freeze check reports that
// as "still running" and Drain ignores it; every other command gets it
// back as its error. The bytes read are also copied into the persistent
// buffer from offset 0, so they become the next command's leftover bytes.
func (c *Channel) readOnePacket(timeout time.Duration) ([]byte, error) {
	buf := make([]byte, 256)
	n, err := withTimeout(timeout, func() (int, error) { return c.in.Read(buf) })
	if err != nil {
		if isTimeout(err) {
			return nil, ErrStillRunning
		}
		return nil, &IOError{Op: "bulk in", Err: err}
	}
	out := buf[:n]
	c.Buffer.SetAt(0, out)
	c.trace("IN", out)
	return out, nil
}

// ResponseKind distinguishes the two accepted success-response magics;
// both are semantically identical except where cmd-specific decoding
// cares.
type ResponseKind int

const (
	KindStandard ResponseKind = iota // 99 66
	KindMemRead                      // 88 A5
)

// Response is a validated AA-55-class response: magic, declared length
// and the payload bytes following the status byte.
type Response struct {
	Kind    ResponseKind
	Payload []byte
}

// SendAA sends an `AA 55` control/debug command built from cmdAndPayload
// (written at buffer offset 4, i.e. starting at cmd_byte) and, if
// expectResponse is true, reads and validates the matching response.
func (c *Channel) SendAA(cmdAndPayload []byte, expectResponse bool) (*Response, error) {
	length := len(cmdAndPayload)
	header := []byte{0xAA, 0x55, byte(length >> 8), byte(length)}
	c.Buffer.SetHeader(header)
	c.Buffer.SetAt(4, cmdAndPayload)

	if err := c.writeFull(defaultTimeout); err != nil {
		return nil, err
	}
	if !expectResponse {
		return nil, nil
	}
	return c.readAndValidate(defaultTimeout)
}

// SendAANoTimeout behaves like SendAA but with a caller-supplied
// timeout; used by the freeze-check read, which has a short 500ms
// timeout whose expiry is not an error.
func (c *Channel) SendAANoTimeout(cmdAndPayload []byte, timeout time.Duration) (*Response, error) {
	length := len(cmdAndPayload)
	header := []byte{0xAA, 0x55, byte(length >> 8), byte(length)}
	c.Buffer.SetHeader(header)
	c.Buffer.SetAt(4, cmdAndPayload)

	if err := c.writeFull(defaultTimeout); err != nil {
		return nil, err
	}
	return c.readAndValidate(timeout)
}

// FreezeCheck issues the `04 7F FE 02` command with the 500ms freeze
// timeout; a timeout here means "still running", not a transport error.
func (c *Channel) FreezeCheck(cmdAndPayload []byte) (*Response, error) {
	resp, err := c.SendAANoTimeout(cmdAndPayload, freezeTimeout)
	if err == ErrStillRunning {
		return nil, ErrStillRunning
	}
	return resp, err
}

func (c *Channel) readAndValidate(timeout time.Duration) (*Response, error) {
	data, err := c.readOnePacket(timeout)
	if err != nil {
		return nil, err
	}
	resp, complete, err := parseResponse(data)
	if err != nil {
		return nil, err
	}
	total := declaredTotal(data)
	for extra := 0; !complete && len(resp.Payload)+5 < total && extra < responsePacketCap; extra++ {
		more, err := c.assembleMore(total, resp)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	return resp, nil
}

// assembleMore reads one additional IN packet and appends its bytes to
// resp.Payload, bounded by responsePacketCap calls and by a short
// packet ending assembly early
func (c *Channel) assembleMore(total int, resp *Response) (bool, error) {
	data, err := c.readOnePacket(defaultTimeout)
	if err != nil {
		return false, err
	}
	resp.Payload = append(resp.Payload, data...)
	return len(data) >= bulkPacketSize, nil
}

func declaredTotal(data []byte) int {
	if len(data) < 4 {
		return len(data)
	}
	return int(data[2])<<8 | int(data[3])
}

// parseResponse validates the minimum-5-bytes / magic / status-byte
// preconditions every AA-55 command response must satisfy and splits
// off the payload.
func parseResponse(data []byte) (*Response, bool, error) {
	if len(data) < 5 {
		return nil, false, &FramingError{Got: data}
	}
	var kind ResponseKind
	switch {
	case data[0] == 0x99 && data[1] == 0x66:
		kind = KindStandard
	case data[0] == 0x88 && data[1] == 0xA5:
		kind = KindMemRead
	default:
		return nil, false, &FramingError{Got: data[:2]}
	}
	status := data[4]
	if status != 0xEE {
		return nil, false, &StatusError{Status: status}
	}
	return &Response{Kind: kind, Payload: append([]byte(nil), data[5:]...)}, len(data) < bulkPacketSize, nil
}

// SendBBChunk sends one 1192-byte chunk of a BB-66-class chunked bulk
// download. No response is read (reading here would hang waiting for
// data the pod never sends, corrupting subsequent commands). A 5ms
// inter-chunk pause follows
func (c *Channel) SendBBChunk(cmdAndPayload []byte) error {
	length := len(cmdAndPayload)
	header := []byte{0xBB, 0x66, byte(length >> 8), byte(length)}
	c.Buffer.SetHeader(header)
	c.Buffer.SetAt(4, cmdAndPayload)
	if err := c.writeFull(defaultTimeout); err != nil {
		return err
	}
	time.Sleep(5 * time.Millisecond)
	return nil
}

// SendBBSingle sends one large BB-66-class transfer and drains the
// short `99 66 00 03 EE` acknowledgement it produces
func (c *Channel) SendBBSingle(cmdAndPayload []byte) error {
	length := len(cmdAndPayload)
	header := []byte{0xBB, 0x66, byte(length >> 8), byte(length)}
	c.Buffer.SetHeader(header)
	c.Buffer.SetAt(4, cmdAndPayload)
	if err := c.writeFull(defaultTimeout); err != nil {
		return err
	}
	_, err := c.readAndValidate(defaultTimeout)
	// 20ms settle time-single row.
	time.Sleep(20 * time.Millisecond)
	return err
}

// SendAADrain sends an `AA 55` command and unconditionally drains the
// single response packet it produces without validating magic or
// status. Used by the `07 10` window-setup command, whose response
// shape is unspecified: drain it but never validate it.
func (c *Channel) SendAADrain(cmdAndPayload []byte) error {
	length := len(cmdAndPayload)
	header := []byte{0xAA, 0x55, byte(length >> 8), byte(length)}
	c.Buffer.SetHeader(header)
	c.Buffer.SetAt(4, cmdAndPayload)
	if err := c.writeFull(defaultTimeout); err != nil {
		return err
	}
	return c.Drain()
}

// Drain reads and discards one response packet without validating its
// contents. Used for the `07 10` window-setup response, whose shape is
// unspecified.
func (c *Channel) Drain() error {
	_, err := c.readOnePacket(defaultTimeout)
	if err == ErrStillRunning {
		return nil
	}
	return err
}

// ExtractSRAMLongword pulls a 32-bit value out of a `07 1B` SRAM-verify
// response payload, whose four data bytes are not contiguous: they sit
// at offsets {0,7,9,11} of the payload.
func ExtractSRAMLongword(payload []byte) (uint32, bool) {
	if len(payload) < 12 {
		return 0, false
	}
	return uint32(payload[0])<<24 | uint32(payload[7])<<16 | uint32(payload[9])<<8 | uint32(payload[11]), true
}

// ExtractBulkGroups de-interleaves the 6-byte groups the `07 17` bulk
// reader emits: 4 data bytes followed by 2 padding bytes. want is the
// number of data bytes desired; the caller must have requested
// ceil(want/4)*6 raw bytes.
func ExtractBulkGroups(payload []byte, want int) []byte {
	out := make([]byte, 0, want)
	for off := 0; off+6 <= len(payload) && len(out) < want; off += 6 {
		out = append(out, payload[off:off+4]...)
	}
	if len(out) > want {
		out = out[:want]
	}
	return out
}

func withTimeout(timeout time.Duration, fn func() (int, error)) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := fn()
		ch <- result{n, err}
	}()

	select {
	case r := <-ch:
		return r.n, r.err
	case <-ctx.Done():
		return 0, errTimeout
	}
}

func isTimeout(err error) bool {
	return err == errTimeout
}
