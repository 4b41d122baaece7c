package billing

import (
	"crypto/rand"
	"fmt"
)

const (
	passwordCharset       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultPasswordLength = 10
	minPasswordLength     = 8
)

// GeneratePassword returns a random alphanumeric string read from crypto/rand.
// Bytes at or above the largest multiple of the charset size are discarded so
// every character is equally likely.
func GeneratePassword(length int) (string, error) {
	if length < minPasswordLength {
		length = minPasswordLength
	}
	n := len(passwordCharset)
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, passwordCharset[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
