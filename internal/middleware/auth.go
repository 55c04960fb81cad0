package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
)

const (
	ContextUserID = "userId"
	ContextEmail  = "email"
)

var (
	errMissingToken = errors.New("missing token")
	errTokenFormat  = errors.New("invalid token")
)

// TokenVerifier turns an access token into the identity it was issued for.
type TokenVerifier interface {
	Verify(accessToken string) (auth.Identity, error)
}

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set headers on a
// WebSocket handshake, so a token query parameter is accepted when the header is absent.
func bearerToken(c *gin.Context) (string, error) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		if q := strings.TrimSpace(c.Query("token")); q != "" {
			return q, nil
		}
		return "", errMissingToken
	}

	parts := strings.Fields(raw)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errTokenFormat
	}
	return parts[1], nil
}

// OptionalUserAuth sets the user when a valid token is present and lets anonymous requests through.
func OptionalUserAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err == nil {
			if id, err := verifier.Verify(token); err == nil {
				c.Set(ContextUserID, id.UserID)
				c.Set(ContextEmail, id.Email)
			}
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
