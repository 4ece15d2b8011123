package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m := NewManager("test-secret", "clinic-api-test")

	tok, err := m.Issue("64f000000000000000000001", "doctor", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	claims, err := m.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "64f000000000000000000001", claims.AccountID)
	assert.Equal(t, "doctor", claims.Role)
	assert.Equal(t, "clinic-api-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateExpired(t *testing.T) {
	m := NewManager("test-secret", "clinic-api-test")

	tok, err := m.Issue("64f000000000000000000001", "patient", -time.Minute)
	require.NoError(t, err)

	_, err = m.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateWrongSecret(t *testing.T) {
	m := NewManager("secret-a", "clinic-api-test")
	other := NewManager("secret-b", "clinic-api-test")

	tok, err := m.Issue("64f000000000000000000001", "patient", time.Hour)
	require.NoError(t, err)

	_, err = other.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateGarbage(t *testing.T) {
	m := NewManager("test-secret", "clinic-api-test")
	_, err := m.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueWithoutSecret(t *testing.T) {
	m := NewManager("", "clinic-api-test")
	_, err := m.Issue("64f000000000000000000001", "patient", time.Hour)
	assert.Error(t, err)
}
