// Package otp implements the one-time code challenge used to gate login,
// registration and password reset.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

const (
	// Length is the number of decimal digits in a code.
	Length = 6
	// TTL is how long a code stays valid after issuance.
	TTL = 10 * time.Minute
	// MaxAttempts locks a challenge after this many failed verifications
	// within its validity window.
	MaxAttempts = 5
)

// ErrInvalid is returned for every verification failure: wrong code,
// expired code, locked challenge or no pending challenge. Callers must not
// tell these apart, so account state never leaks through error messages.
var ErrInvalid = errors.New("invalid or expired OTP")

var codeMax = big.NewInt(1_000_000)

// Generate returns a uniformly random 6-digit decimal code. Leading zeros
// are preserved.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, codeMax)
	if err != nil {
		return "", fmt.Errorf("generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Challenge is a pending code attached to an account record. It is
// single-use: after a successful Verify the caller clears it from the
// account.
type Challenge struct {
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

// NewChallenge starts the validity window at now.
func NewChallenge(code string, now time.Time) Challenge {
	return Challenge{Code: code, ExpiresAt: now.Add(TTL)}
}

// Verify checks submitted against the stored code. A mismatch counts
// toward the attempt limit; the mutated challenge must be persisted by the
// caller whether Verify succeeds or fails.
func (c *Challenge) Verify(submitted string, now time.Time) error {
	if c.Code == "" || submitted == "" {
		return ErrInvalid
	}
	if !now.Before(c.ExpiresAt) {
		return ErrInvalid
	}
	if c.Attempts >= MaxAttempts {
		return ErrInvalid
	}
	if submitted != c.Code {
		c.Attempts++
		return ErrInvalid
	}
	return nil
}
