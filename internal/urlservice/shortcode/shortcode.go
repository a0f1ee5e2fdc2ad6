// Package shortcode generates and validates short codes.
package shortcode

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"

	"go-shorturl/internal/urlservice/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// randomBytes encodes to exactly four base64url characters.
	randomBytes   = 3
	MinCodeLength = 1
	MaxCodeLength = 64
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reserved collide with fixed routes.
var reserved = []interface{}{"shorturls", "healthz", "readyz"}

// Generator produces random URL-safe codes. It does not check uniqueness.
type Generator struct {
	random io.Reader
}

// NewGenerator returns a Generator reading from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{random: rand.Reader}
}

// NewGeneratorFrom returns a Generator reading from r.
func NewGeneratorFrom(r io.Reader) *Generator {
	return &Generator{random: r}
}

// Generate returns a 4-character base64url code.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Validate checks a caller-supplied code.
func Validate(code string) error {
	if err := validation.Validate(code,
		validation.Required.Error("short code is required"),
		validation.Length(MinCodeLength, MaxCodeLength).Error("short code must be 1-64 characters"),
		validation.Match(codePattern).Error("short code must contain only letters, digits, underscores and hyphens"),
		validation.NotIn(reserved...).Error("short code is reserved"),
	); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidCode, err)
	}
	return nil
}
