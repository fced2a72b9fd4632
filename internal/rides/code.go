package rides

import (
	"crypto/rand"
	"fmt"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	// maxCodeAttempts caps collision retries so a corrupted or
	// near-exhausted code space fails loudly instead of spinning.
	maxCodeAttempts = 20
)

// maxUnbiasedByte is the largest byte value that maps onto the alphabet
// without modulo bias (largest multiple of len(codeAlphabet) below 256).
const maxUnbiasedByte = 256 - (256 % len(codeAlphabet))

// NewCode draws a 6-character ride code from A-Z0-9 using a
// cryptographically strong source. Bytes outside the unbiased range are
// redrawn so every character is equally likely.
func NewCode() (string, error) {
	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiasedByte {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}
	return string(out), nil
}
