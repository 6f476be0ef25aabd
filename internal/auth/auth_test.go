package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueParse(t *testing.T) {
	m := NewManager("secret", time.Hour)

	token, err := m.Issue("acme", "hr-admin")
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Tenant)
	assert.Equal(t, "hr-admin", claims.Subject)
}

func TestManager_WrongSecret(t *testing.T) {
	token, err := NewManager("one", time.Hour).Issue("acme", "x")
	require.NoError(t, err)

	_, err = NewManager("two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("secret", -time.Minute)
	token, err := m.Issue("acme", "x")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestManager_MissingTenant(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.Issue("", "x")
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_RejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{Tenant: "acme"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewManager("secret", time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_FromHeader(t *testing.T) {
	m := NewManager("secret", time.Hour)
	token, err := m.Issue("acme", "x")
	require.NoError(t, err)

	claims, err := m.FromHeader("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Tenant)

	_, err = m.FromHeader("bearer " + token)
	assert.NoError(t, err)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic " + token, token} {
		_, err = m.FromHeader(header)
		assert.ErrorIs(t, err, ErrInvalidToken, header)
	}
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFrom(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{Tenant: "acme"})
	claims, ok := ClaimsFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "acme", claims.Tenant)
}
