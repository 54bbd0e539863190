package htmd

import (
	"errors"
	"unicode/utf8"
)

// ErrBinaryInput reports input that appears to be binary rather than markup.
var ErrBinaryInput = errors.New("binary input detected")

const (
	minBinarySample = 64
	maxControlPct   = 2
)

// DetectBinary returns ErrBinaryInput when sample contains NUL bytes or a
// high share of control characters. Conversion itself never rejects input;
// callers such as the CLI use this to refuse obviously wrong files.
func DetectBinary(sample []byte) error {
	var control int
	for _, b := range sample {
		if b == 0x00 {
			return ErrBinaryInput
		}
		if isControlByte(b) {
			control++
		}
	}
	if len(sample) >= minBinarySample && control*100 >= len(sample)*maxControlPct {
		return ErrBinaryInput
	}
	return nil
}

func isControlByte(b byte) bool {
	if b < 0x09 {
		return true
	}
	if b > 0x0D && b < 0x20 {
		return true
	}
	return b == 0x7F
}

func isControlRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' || r == '\f' {
		return false
	}
	return r < 0x20 || r == 0x7F
}

// sanitizeText drops control characters and invalid UTF-8 from decoded
// character data. Clean input is returned as is.
func sanitizeText(s string) string {
	i := 0
	for i < len(s) {
		c := s[i]
		if c < utf8.RuneSelf {
			if isControlRune(rune(c)) {
				break
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			break
		}
		i += size
	}
	if i == len(s) {
		return s
	}
	dst := make([]byte, 0, len(s))
	dst = append(dst, s[:i]...)
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r == utf8.RuneError && size == 1) || isControlRune(r) {
			i += size
			continue
		}
		dst = append(dst, s[i:i+size]...)
		i += size
	}
	return string(dst)
}
