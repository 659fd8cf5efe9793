package session_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcart/internal/session"
)

func signedToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestSession(t *testing.T) {
	t.Run("ValidToken", func(t *testing.T) {
		s := session.New(signedToken(t, "u-1", time.Now().Add(time.Hour)))
		assert.False(t, s.Expired())
		assert.Equal(t, "u-1", s.UserID())
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		s := session.New(signedToken(t, "u-1", time.Now().Add(-time.Minute)))
		assert.True(t, s.Expired())
	})

	t.Run("EmptyToken", func(t *testing.T) {
		s := session.New("")
		assert.True(t, s.Expired())
		assert.Equal(t, "", s.UserID())
	})

	t.Run("OpaqueTokenPassesThrough", func(t *testing.T) {
		s := session.New("not-a-jwt")
		assert.False(t, s.Expired())
	})

	t.Run("SetTokenReplaces", func(t *testing.T) {
		s := session.New("")
		s.SetToken(signedToken(t, "u-2", time.Now().Add(time.Hour)))
		assert.Equal(t, "u-2", s.UserID())
		assert.False(t, s.Expired())
	})
}
