package auth_test

import (
	"testing"
	"time"

	"github.com/payd-dev/payd/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager() *auth.Manager {
	return auth.NewManager([]byte("test-secret"), "payd", time.Minute)
}

func TestIssueAndValidate(t *testing.T) {
	m := newManager()

	token, err := m.Issue(42, "ada@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "payd", claims.Issuer)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	m := newManager()
	other := auth.NewManager([]byte("different-secret"), "payd", time.Minute)

	token, err := m.Issue(1, "a@example.com", "customer")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsWrongIssuer(t *testing.T) {
	m := newManager()
	other := auth.NewManager([]byte("test-secret"), "someone-else", time.Minute)

	token, err := other.Issue(1, "a@example.com", "customer")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := auth.NewManager([]byte("test-secret"), "payd", -time.Minute)

	token, err := m.Issue(1, "a@example.com", "customer")
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := newManager()

	_, err := m.Validate("not.a.token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, auth.CheckPassword(hash, "hunter2"))
	assert.False(t, auth.CheckPassword(hash, "hunter3"))
	assert.False(t, auth.CheckPassword("not-a-hash", "hunter2"))
}
