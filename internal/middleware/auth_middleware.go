package middleware

import (
	"errors"
	"net/http"
	"strings"

	"retroboard/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey holds the caller's uuid.UUID
	UserIDKey = "user_id"
	// IdentityKey holds the caller's auth.Identity
	IdentityKey = "identity"
)

// TokenVerifier resolves a bearer token to the caller's identity.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// JWTAuthMiddleware authenticates requests with HS256 tokens signed by jwtSecret.
func JWTAuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return Authenticate(auth.NewIssuer(jwtSecret, 0))
}

func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		identity, err := verifier.Verify(parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrInvalidUserID) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, identity.UserID)
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// CurrentUser returns the identity stored by the auth middleware.
func CurrentUser(c *gin.Context) (auth.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}
