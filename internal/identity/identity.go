// Package identity turns bearer tokens issued by the external identity
// provider into normalized subject identities.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when a request carries no valid identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the normalized view of the provider's claims.
type Identity struct {
	Subject    string
	Name       string
	GivenName  string
	FamilyName string
	Username   string
	Email      string
	AvatarURL  string
}

// Resolver verifies tokens and extracts identities.
type Resolver struct {
	secret   []byte
	issuer   string
	audience string
}

// NewResolver builds a Resolver for HS256 tokens. Empty issuer or audience
// disables that check.
func NewResolver(secret, issuer, audience string) *Resolver {
	return &Resolver{secret: []byte(secret), issuer: issuer, audience: audience}
}

type claims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Username          string `json:"username"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
	jwt.RegisteredClaims
}

// Resolve verifies token and returns its identity. It never mutates state.
func (r *Resolver) Resolve(_ context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if len(r.secret) == 0 {
			return nil, errors.New("no signing secret configured")
		}
		return r.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	subject := strings.TrimSpace(c.Subject)
	if subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	username := c.Username
	if username == "" {
		username = c.PreferredUsername
	}
	return Identity{
		Subject:    subject,
		Name:       strings.TrimSpace(c.Name),
		GivenName:  strings.TrimSpace(c.GivenName),
		FamilyName: strings.TrimSpace(c.FamilyName),
		Username:   strings.TrimSpace(username),
		Email:      strings.TrimSpace(c.Email),
		AvatarURL:  strings.TrimSpace(c.Picture),
	}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
