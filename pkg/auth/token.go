package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// DefaultCodeLength is the number of digits in a login code
const DefaultCodeLength = 6

// CodeGenerator generates and hashes numeric one-time codes
type CodeGenerator struct {
	length int
}

// NewCodeGenerator creates a generator for codes of length digits
func NewCodeGenerator(length int) *CodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &CodeGenerator{length: length}
}

// Generate returns a uniformly random numeric code, zero padded.
func (g *CodeGenerator) Generate() (string, error) {
	var sb strings.Builder
	sb.Grow(g.length)
	ten := big.NewInt(10)
	for i := 0; i < g.length; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// Hash computes the stored SHA-256 digest of a code, bound to the email it was sent to.
func (g *CodeGenerator) Hash(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

// Matches compares a submitted code against a stored hash in constant time.
func (g *CodeGenerator) Matches(email, code, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(g.Hash(email, code)), []byte(hash)) == 1
}

// ValidateFormat checks a submitted code is the right number of digits
func (g *CodeGenerator) ValidateFormat(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != g.length {
		return fmt.Errorf("code must be %d digits", g.length)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("code must be numeric")
		}
	}
	return nil
}
