package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/docstore"
)

func Home() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/products")
	}
}

// Health reports 503 while the store backend is unreachable.
func Health(store docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /healthz"
		if err := ensureStore(c.Request.Context(), store); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}
