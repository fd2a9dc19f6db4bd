package barcodes

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	codePrefix = "FB"
	codeLength = 10
	// codeAlphabet drops 0/O and 1/I so codes survive being read aloud at a
	// till. Its length divides 256, so byte-mod sampling stays uniform.
	codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// CodeGenerator yields candidate barcode codes. Uniqueness is enforced by the
// database, not the generator.
type CodeGenerator func() (string, error)

// GenerateCode returns a random code such as FB7K2M9QXR4T.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	var b strings.Builder
	b.Grow(len(codePrefix) + codeLength)
	b.WriteString(codePrefix)
	for _, v := range buf {
		b.WriteByte(codeAlphabet[int(v)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// NormalizeCode upper-cases and trims user input before lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
