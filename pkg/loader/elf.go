package loader

import (
	"debug/elf"
	"fmt"
)

// ElfLoader loads a big-endian M68K ELF image (application binaries, and
// the flashloader stub itself) via the standard library's debug/elf.
type ElfLoader struct {
	BaseLoader
	path string
}

// NewElfLoader creates a new ELF loader.
func NewElfLoader() *ElfLoader {
	return &ElfLoader{}
}

// Open records the path; debug/elf opens and parses it directly in
// Process since it wants the whole file, not a stream.
func (l *ElfLoader) Open(filename string) error {
	l.path = filename
	return nil
}

// Process parses the ELF file and streams one block per ALLOC+PROGBITS
// section to the handler, then reports the entry point.
func (l *ElfLoader) Process() error {
	if l.handler == nil {
		return fmt.Errorf("handler not set")
	}

	f, err := elf.Open(l.path)
	if err != nil {
		return fmt.Errorf("open ELF: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_68K {
		return fmt.Errorf("unsupported ELF machine %v, want EM_68K", f.Machine)
	}
	if f.ByteOrder.String() != "BigEndian" {
		return fmt.Errorf("unsupported ELF byte order, want big-endian")
	}

	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_PROGBITS || sec.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if sec.Size == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return fmt.Errorf("read section %s: %w", sec.Name, err)
		}
		if err := l.handler(uint32(sec.Addr), data); err != nil {
			return fmt.Errorf("handler failed for section %s: %w", sec.Name, err)
		}
	}

	l.reportEntry(uint32(f.Entry))
	return nil
}
