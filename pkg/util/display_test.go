package util

import (
	"testing"
)

func TestParseHexAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected uint32
		wantErr  bool
	}{
		{"Simple hex", "1234", 0x1234, false},
		{"With 0x prefix", "0x1234", 0x1234, false},
		{"With $ prefix", "$1234", 0x1234, false},
		{"Uppercase", "ABCD", 0xABCD, false},
		{"Lowercase", "abcd", 0xABCD, false},
		{"24-bit address", "123456", 0x123456, false},
		{"Zero", "0", 0, false},
		{"Full 32-bit", "20001000", 0x20001000, false},
		{"Invalid characters", "GHIJ", 0, true},
		{"Empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseHexAddress(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHexAddress(%s) expected error, got nil", tt.input)
				}
			} else {
				if err != nil {
					t.Errorf("ParseHexAddress(%s) unexpected error: %v", tt.input, err)
				}
				if result != tt.expected {
					t.Errorf("ParseHexAddress(%s) = 0x%X, want 0x%X", tt.input, result, tt.expected)
				}
			}
		})
	}
}

func TestFormatHex(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"Empty", nil, ""},
		{"Single byte", []byte{0xAA}, "AA"},
		{"Multiple bytes", []byte{0x99, 0x66, 0x00, 0x03}, "99 66 00 03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatHex(tt.input); got != tt.expected {
				t.Errorf("FormatHex(%v) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
