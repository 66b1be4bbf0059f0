// Package podrelay bridges a single TCP client to the local USB pod,
// forwarding raw bulk-transfer bytes in both directions so a remote
// machine can run the full debug agent against a pod it cannot reach
// directly over USB.
package podrelay

import (
	"io"
	"net"

	"github.com/openlink-tools/cf5223dbg/pkg/usbchan"
)

// Server accepts one client at a time on addr and pumps bytes between it
// and the USB pod at vid/pid, re-opening the pod connection fresh for
// each client.
type Server struct {
	addr     string
	vid, pid uint16
	listener net.Listener

	// Logf receives free-form diagnostic lines from the relay's
	// background pump goroutines, matching the rest of the tree's
	// printInfo/printError-style ambient logging. Defaults to a no-op
	// so a Server built without one stays silent.
	Logf func(format string, args ...interface{})
}

// NewServer creates a relay bound to addr once Serve is called.
func NewServer(addr string, vid, pid uint16) *Server {
	return &Server{addr: addr, vid: vid, pid: pid, Logf: func(string, ...interface{}) {}}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

// Serve accepts connections until the listener is closed by Stop.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil // listener closed by Stop
		}
		s.serveConn(conn)
	}
}

// Stop closes the listener, ending Serve's accept loop.
func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	ch, err := usbchan.Open(s.vid, s.pid)
	if err != nil {
		s.logf("podrelay: opening pod for %s: %v", conn.RemoteAddr(), err)
		return
	}
	defer ch.Close()

	done := make(chan struct{}, 2)
	go s.pump(conn, ch, done)     // TCP -> pod
	go s.pumpBack(ch, conn, done) // pod -> TCP
	<-done
}

// pump copies from conn into the pod's OUT endpoint.
func (s *Server) pump(src net.Conn, ch *usbchan.Channel, done chan<- struct{}) {
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := ch.RawWrite(buf[:n]); werr != nil {
				break
			}
		}
		if err != nil {
			if err != io.EOF {
				s.logf("podrelay: tcp read: %v", err)
			}
			break
		}
	}
	done <- struct{}{}
}

// pumpBack copies from the pod's IN endpoint into conn.
func (s *Server) pumpBack(ch *usbchan.Channel, dst net.Conn, done chan<- struct{}) {
	buf := make([]byte, 4096)
	for {
		n, err := ch.RawRead(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				break
			}
		}
		if err != nil {
			break
		}
	}
	done <- struct{}{}
}
