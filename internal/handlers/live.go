package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"storefront/internal/live"
)

// LiveCart upgrades to a WebSocket that streams the caller's cart.
func LiveCart(bridge *live.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/cart/live"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}
		log.Printf("[%s] live connection for %s", route, uid)
		bridge.ServeCart(c.Writer, c.Request, uid)
	}
}

func LiveFavorites(bridge *live.Bridge) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/favorites/live"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}
		log.Printf("[%s] live connection for %s", route, uid)
		bridge.ServeFavorites(c.Writer, c.Request, uid)
	}
}
