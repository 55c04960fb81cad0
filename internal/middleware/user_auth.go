package middleware

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
)

// UserAuth validates user JWT tokens and injects the userId into the context.
func UserAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if errors.Is(err, errMissingToken) {
			log.Println("[AUTH] [ERROR] missing token")
			abortUnauthorized(c, "missing token")
			return
		}
		if err != nil {
			log.Println("[AUTH] [ERROR] invalid token format")
			abortUnauthorized(c, "invalid token")
			return
		}

		id, err := verifier.Verify(token)
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			abortUnauthorized(c, "unauthorized")
			return
		}

		c.Set(ContextUserID, id.UserID)
		c.Set(ContextEmail, id.Email)
		c.Next()
	}
}

// UserID returns the authenticated user id, or "" on anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
