package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFlashSize is the 256 KB ceiling imposed on any loaded image's
// max_addr.
const MaxFlashSize = 256 * 1024

// Segment is one contiguous address/data block a loader produced.
type Segment struct {
	Addr uint32
	Data []byte
}

// Image is the normalized output of Load: every loader format collapses
// to this shape regardless of how it streams blocks internally.
type Image struct {
	Segments []Segment
	Entry    uint32
	MinAddr  uint32
	MaxAddr  uint32
	Total    uint32
}

// Load opens path, detects its format by extension with a content-sniff
// fallback, and runs it to completion, collecting every written block
// into a normalized Image. baseAddr is only consulted for raw binaries.
func Load(path string, baseAddr uint32) (*Image, error) {
	ld, err := detectLoader(path, baseAddr)
	if err != nil {
		return nil, err
	}
	if err := ld.Open(path); err != nil {
		return nil, err
	}
	defer ld.Close()

	img := &Image{}
	ld.SetHandler(func(addr uint32, data []byte) error {
		cp := append([]byte(nil), data...)
		img.Segments = append(img.Segments, Segment{Addr: addr, Data: cp})
		return nil
	})
	ld.SetEntryHandler(func(addr uint32) {
		img.Entry = addr
	})

	if err := ld.Process(); err != nil {
		return nil, err
	}
	if len(img.Segments) == 0 {
		return nil, fmt.Errorf("loader: %s produced no segments", path)
	}

	sort.Slice(img.Segments, func(i, j int) bool { return img.Segments[i].Addr < img.Segments[j].Addr })
	img.MinAddr = img.Segments[0].Addr
	img.MaxAddr = img.Segments[0].Addr
	for _, s := range img.Segments {
		if s.Addr < img.MinAddr {
			img.MinAddr = s.Addr
		}
		end := s.Addr + uint32(len(s.Data))
		if end > img.MaxAddr {
			img.MaxAddr = end
		}
	}
	img.Total = img.MaxAddr - img.MinAddr
	if img.MaxAddr > MaxFlashSize {
		return nil, fmt.Errorf("loader: %s: max address %#x exceeds %d KB flash", path, img.MaxAddr, MaxFlashSize/1024)
	}
	return img, nil
}

func detectLoader(path string, baseAddr uint32) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		return NewIntelHexLoader(), nil
	case ".srec", ".s19", ".s28", ".s37":
		return NewSRecLoader(), nil
	case ".elf":
		return NewElfLoader(), nil
	case ".bin":
		return NewRawLoader(baseAddr), nil
	}

	// Content-sniff fallback: peek at the first few bytes.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	head, _ := r.Peek(4)

	switch {
	case len(head) >= 4 && head[0] == 0x7F && head[1] == 'E' && head[2] == 'L' && head[3] == 'F':
		return NewElfLoader(), nil
	case len(head) >= 1 && head[0] == ':':
		return NewIntelHexLoader(), nil
	case len(head) >= 1 && head[0] == 'S':
		return NewSRecLoader(), nil
	default:
		return NewRawLoader(baseAddr), nil
	}
}

// ContiguousImage merges img's segments into a single buffer spanning
// [img.MinAddr, img.MaxAddr), filling gaps with 0xFF — 's
// file_get_contiguous. Overlapping segments are applied in address
// order, later segments overwriting earlier ones' bytes.
func ContiguousImage(img *Image) []byte {
	return contiguousImageFilled(img, 0xFF)
}

// ContiguousImageZeroFilled merges img's segments the same way
// ContiguousImage does, but fills gaps between segments with 0x00
// instead of 0xFF. An uploaded ELF's ALLOC+PROGBITS sections can leave
// alignment gaps between them, and those gaps must read back as zero
// in target SRAM, unlike the 0xFF erased-flash fill file loading uses.
func ContiguousImageZeroFilled(img *Image) []byte {
	return contiguousImageFilled(img, 0x00)
}

func contiguousImageFilled(img *Image, fill byte) []byte {
	buf := make([]byte, img.MaxAddr-img.MinAddr)
	if fill != 0 {
		for i := range buf {
			buf[i] = fill
		}
	}
	for _, s := range img.Segments {
		off := s.Addr - img.MinAddr
		copy(buf[off:], s.Data)
	}
	return buf
}
