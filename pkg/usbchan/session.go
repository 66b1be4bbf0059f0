package usbchan

import "github.com/openlink-tools/cf5223dbg/pkg/util"

// Session is the process-wide pod session: the claimed USB channel plus
// its verbose-logging flag. Exactly one Session exists for the lifetime
// of the process; concurrent use of the same Session from more than one
// goroutine is undefined, matching the single-threaded cooperative
// model the pod's wire protocol requires.
type Session struct {
	*Channel
	Verbose bool
	tracer  *util.Tracer
}

// NewSession opens the pod at vid/pid and wires up the verbose tracer.
func NewSession(vid, pid uint16, verbose bool) (*Session, error) {
	ch, err := Open(vid, pid)
	if err != nil {
		return nil, err
	}
	s := &Session{Channel: ch, Verbose: verbose, tracer: util.NewTracer(verbose)}
	ch.Trace = func(direction string, data []byte) {
		s.tracer.Frame(direction, data)
	}
	return s, nil
}

// Logf emits a verbose diagnostic line through the session's tracer.
func (s *Session) Logf(format string, args ...interface{}) {
	s.tracer.Logf(format, args...)
}
