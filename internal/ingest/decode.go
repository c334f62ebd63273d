package ingest

import (
	"fmt"
	"unicode/utf8"

	"github.com/jbelval/wait-time-logger/internal/domain"
)

// DecodeASCII returns payload as a string, or domain.ErrNonASCII when any
// byte is outside the 7-bit range.
func DecodeASCII(payload []byte) (string, error) {
	for i, b := range payload {
		if b >= utf8.RuneSelf {
			return "", fmt.Errorf("%w: byte 0x%02x at offset %d", domain.ErrNonASCII, b, i)
		}
	}
	return string(payload), nil
}
