// Package bcd packs and unpacks subscriber identifiers as binary-coded decimal.
//
// Digits are stored two per byte, first digit in the low nibble. An odd
// trailing digit is padded with 0xF in the high nibble.
package bcd

import "github.com/sahmadiut/pgw-sim/internal/constants"

const filler = 0x0F

// Encode packs a decimal string into BCD bytes. Non-digit characters are
// packed by their low four bits; callers should validate first.
func Encode(imsi string) []byte {
	out := make([]byte, 0, (len(imsi)+1)/2)
	for i := 0; i < len(imsi); i += 2 {
		b := (imsi[i] - '0') & 0x0F
		if i+1 < len(imsi) {
			b |= ((imsi[i+1] - '0') & 0x0F) << 4
		} else {
			b |= filler << 4
		}
		out = append(out, b)
	}
	return out
}

// Decode unpacks BCD bytes, low nibble first. Nibbles 10-15 are dropped.
func Decode(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, v := range b {
		if lo := v & 0x0F; lo < 10 {
			out = append(out, '0'+lo)
		}
		if hi := v >> 4; hi < 10 {
			out = append(out, '0'+hi)
		}
	}
	return string(out)
}

// ValidIMSI reports whether s is exactly IMSILength ASCII digits.
func ValidIMSI(s string) bool {
	if len(s) != constants.IMSILength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
