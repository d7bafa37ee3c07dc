package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dm-service/internal/identity"
)

const (
	// UserIDKey holds the authenticated subject id (string).
	UserIDKey = "userID"
	// IdentityKey holds the full identity.Identity.
	IdentityKey = "identity"
)

type TokenResolver interface {
	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// AuthMiddleware resolves the bearer token into an identity. Requests without
// a valid token stop here with 401.
func AuthMiddleware(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		token, ok := identity.BearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		id, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(UserIDKey, id.Subject)
		c.Set(IdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the identity stored by AuthMiddleware.
func IdentityFrom(c *gin.Context) (identity.Identity, bool) {
	value, ok := c.Get(IdentityKey)
	if !ok {
		return identity.Identity{}, false
	}
	id, ok := value.(identity.Identity)
	return id, ok
}
