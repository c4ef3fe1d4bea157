package bcd

import (
	"bytes"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{"even length", "1234", []byte{0x21, 0x43}},
		{"odd length pads high nibble", "123", []byte{0x21, 0xF3}},
		{"single digit", "7", []byte{0xF7}},
		{"empty", "", []byte{}},
		{
			"full IMSI",
			"001010123456789",
			[]byte{0x00, 0x01, 0x01, 0x21, 0x43, 0x65, 0x87, 0xF9},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.in)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = % x, want % x", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"even length", []byte{0x21, 0x43}, "1234"},
		{"trailing filler dropped", []byte{0x21, 0xF3}, "123"},
		{"all filler", []byte{0xFF, 0xFF}, ""},
		{"nibbles above nine dropped", []byte{0xA1, 0x3B}, "13"},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.in); got != tt.want {
				t.Errorf("Decode(% x) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	imsis := []string{
		"001010123456789",
		"250990000000001",
		"999999999999999",
		"000000000000000",
		"310150123456789",
	}
	for _, imsi := range imsis {
		encoded := Encode(imsi)
		if len(encoded) != 8 {
			t.Errorf("Encode(%q) produced %d bytes, want 8", imsi, len(encoded))
		}
		if got := Decode(encoded); got != imsi {
			t.Errorf("round trip %q -> %q", imsi, got)
		}
	}
}

func TestValidIMSI(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"001010123456789", true},
		{"00101012345678", false},
		{"0010101234567890", false},
		{"00101012345678a", false},
		{"", false},
		{"1111", false},
	}

	for _, tt := range tests {
		if got := ValidIMSI(tt.in); got != tt.want {
			t.Errorf("ValidIMSI(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
