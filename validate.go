package lwmd

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrInvalidUTF8 reports invalid UTF-8 input.
	ErrInvalidUTF8 = errors.New("invalid utf-8 input")
	// ErrBinaryInput reports input that appears to be binary.
	ErrBinaryInput = errors.New("binary input detected")
)

const (
	minBinarySample = 64
	maxControlPct   = 2
)

// ValidateInput returns an error if the input is not valid UTF-8 or appears
// binary. It is a whole-buffer pre-check for callers that hold the full
// document; the streaming byte path performs the same checks incrementally.
func ValidateInput(src []byte) error {
	if !utf8.Valid(src) {
		return ErrInvalidUTF8
	}
	var total, control int
	for _, b := range src {
		total++
		if b == 0x00 {
			return ErrBinaryInput
		}
		if isControlByte(b) {
			control++
		}
	}
	if total >= minBinarySample && control*100 >= total*maxControlPct {
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
	if b == 0x7F {
		return true
	}
	return false
}

// isControlRune reports runes the decoder drops before text reaches the
// chunk store. Carriage returns are dropped so that a heading or rule run is
// always terminated by a bare newline.
func isControlRune(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	if r < 0x20 || r == 0x7F {
		return true
	}
	return false
}
