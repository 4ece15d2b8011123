package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, Length)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q contains non-digit", code)
		}
		seen[code] = true
	}
	// 200 draws from a million values should essentially never all collide.
	assert.Greater(t, len(seen), 150)
}

func TestVerifySuccess(t *testing.T) {
	now := time.Now()
	ch := NewChallenge("042137", now)

	assert.NoError(t, ch.Verify("042137", now))
	assert.NoError(t, ch.Verify("042137", now.Add(TTL-time.Second)))
}

func TestVerifyWrongCode(t *testing.T) {
	now := time.Now()
	ch := NewChallenge("123456", now)

	err := ch.Verify("654321", now)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 1, ch.Attempts)
}

func TestVerifyExpired(t *testing.T) {
	now := time.Now()
	ch := NewChallenge("123456", now)

	assert.ErrorIs(t, ch.Verify("123456", now.Add(TTL)), ErrInvalid)
	assert.ErrorIs(t, ch.Verify("123456", now.Add(TTL+time.Minute)), ErrInvalid)
}

func TestVerifyNoPendingCode(t *testing.T) {
	var ch Challenge
	assert.ErrorIs(t, ch.Verify("123456", time.Now()), ErrInvalid)
}

func TestVerifyEmptySubmission(t *testing.T) {
	now := time.Now()
	ch := NewChallenge("123456", now)
	assert.ErrorIs(t, ch.Verify("", now), ErrInvalid)
}

func TestVerifyLockout(t *testing.T) {
	now := time.Now()
	ch := NewChallenge("123456", now)

	for i := 0; i < MaxAttempts; i++ {
		assert.ErrorIs(t, ch.Verify("000000", now), ErrInvalid)
	}
	assert.Equal(t, MaxAttempts, ch.Attempts)

	// Correct code no longer accepted once locked.
	assert.ErrorIs(t, ch.Verify("123456", now), ErrInvalid)
}

func TestSingleUseContract(t *testing.T) {
	// After a successful verify the caller clears the challenge from the
	// account; a cleared challenge always fails.
	now := time.Now()
	ch := NewChallenge("123456", now)
	require.NoError(t, ch.Verify("123456", now))

	ch = Challenge{}
	assert.ErrorIs(t, ch.Verify("123456", now), ErrInvalid)
}
