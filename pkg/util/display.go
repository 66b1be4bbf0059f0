package util

import (
	"fmt"
	"strings"
)

// FormatHex renders data as a space-separated hex byte string, the
// compact form pkg/util/hexlog.go's frame tracer uses to print raw
// BDM/flash traffic.
func FormatHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%02X", b))
	}
	return sb.String()
}

// ParseHexAddress parses a target address given on the command line,
// accepting an optional 0x/$ prefix so both GDB-style and Motorola-tool
// conventions work.
func ParseHexAddress(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	s = strings.TrimPrefix(s, "$")

	var addr uint32
	_, err := fmt.Sscanf(s, "%x", &addr)
	if err != nil {
		return 0, fmt.Errorf("invalid hex address '%s': %w", s, err)
	}
	return addr, nil
}
