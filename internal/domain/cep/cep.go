// Package cep defines the postal-code resolution contract. The concrete
// lookup provider lives in internal/viacep; the order service depends only
// on the Resolver interface and the error kinds declared here.
package cep

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Resolution failure kinds. Callers branch on these to distinguish a bad
// postal code from a provider outage.
var (
	ErrInvalidFormat     = errors.New("cep must contain exactly 8 digits")
	ErrNotFound          = errors.New("cep not found")
	ErrLookupTimeout     = errors.New("cep lookup timed out")
	ErrLookupUnavailable = errors.New("cep lookup service unavailable")
)

// Address is a resolved, normalized postal address. CEP is formatted as
// NNNNN-NNN; State is the 2-letter region code reported by the provider.
type Address struct {
	CEP          string
	Street       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	IBGE         string
	DDD          string
}

// Resolver maps a raw postal code to a normalized address. Implementations
// perform exactly one lookup attempt per call; retry policy belongs to the
// caller.
type Resolver interface {
	Resolve(ctx context.Context, rawCEP string) (*Address, error)
}

// Normalize strips all non-digit characters from a raw postal code.
// It returns ErrInvalidFormat unless exactly 8 digits remain.
func Normalize(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 8 {
		return "", ErrInvalidFormat
	}
	return digits, nil
}

// Format renders an 8-digit postal code as NNNNN-NNN. Inputs that do not
// normalize to 8 digits are returned unchanged.
func Format(raw string) string {
	digits, err := Normalize(raw)
	if err != nil {
		return raw
	}
	return digits[:5] + "-" + digits[5:]
}
