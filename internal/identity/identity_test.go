package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sign(t *testing.T, secret string, c jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestResolveNormalizesClaims(t *testing.T) {
	r := NewResolver(testSecret, "https://issuer.example", "convex")
	token := sign(t, testSecret, jwt.MapClaims{
		"sub":                "user_123",
		"iss":                "https://issuer.example",
		"aud":                "convex",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"email":              "alice@example.com",
		"name":               " Alice ",
		"preferred_username": "alice",
		"picture":            "https://img.example/a.png",
	})

	id, err := r.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, Identity{
		Subject:   "user_123",
		Name:      "Alice",
		Username:  "alice",
		Email:     "alice@example.com",
		AvatarURL: "https://img.example/a.png",
	}, id)
}

func TestResolveRejectsInvalidTokens(t *testing.T) {
	r := NewResolver(testSecret, "", "convex")

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": sign(t, "other", jwt.MapClaims{"sub": "u", "aud": "convex"}),
		"no subject":   sign(t, testSecret, jwt.MapClaims{"aud": "convex"}),
		"expired":      sign(t, testSecret, jwt.MapClaims{"sub": "u", "aud": "convex", "exp": time.Now().Add(-time.Hour).Unix()}),
		"wrong aud":    sign(t, testSecret, jwt.MapClaims{"sub": "u", "aud": "other"}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	token, ok = BearerToken("bearer  abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", token)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer")
	assert.False(t, ok)
}
