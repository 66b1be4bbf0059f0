package loader

import (
	"fmt"
	"os"
)

// RawLoader loads a flat binary image at a caller-supplied base address.
type RawLoader struct {
	BaseLoader
	baseAddr uint32
}

// NewRawLoader creates a loader for a flat binary starting at baseAddr.
func NewRawLoader(baseAddr uint32) *RawLoader {
	return &RawLoader{baseAddr: baseAddr}
}

func (l *RawLoader) Open(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	l.file = file
	return nil
}

func (l *RawLoader) Process() error {
	if l.handler == nil {
		return fmt.Errorf("handler not set")
	}
	data, err := os.ReadFile(l.file.Name())
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return l.handler(l.baseAddr, data)
}
