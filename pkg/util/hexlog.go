package util

import (
	"fmt"
	"os"
	"time"
)

// Tracer prints a timestamped hex dump of every USB request/response
// when verbose mode is enabled. It extends the plain FormatHex formatter
// with frame direction and a wall-clock stamp, matching how a pod
// session's verbose trace needs to read during bring-up debugging.
type Tracer struct {
	Enabled bool
	out     *os.File
}

// NewTracer returns a Tracer that writes to stderr when enabled is true.
func NewTracer(enabled bool) *Tracer {
	return &Tracer{Enabled: enabled, out: os.Stderr}
}

// Frame logs a single labeled USB frame (e.g. "OUT", "IN") as a compact
// hex line. No-op when the tracer is disabled.
func (t *Tracer) Frame(direction string, data []byte) {
	if t == nil || !t.Enabled {
		return
	}
	fmt.Fprintf(t.out, "%s %s [%3d] %s\n", time.Now().Format("15:04:05.000"), direction, len(data), FormatHex(data))
}

// Logf logs a free-form verbose diagnostic line. No-op when disabled.
func (t *Tracer) Logf(format string, args ...interface{}) {
	if t == nil || !t.Enabled {
		return
	}
	fmt.Fprintf(t.out, "%s %s\n", time.Now().Format("15:04:05.000"), fmt.Sprintf(format, args...))
}
