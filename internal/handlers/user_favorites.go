package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/favorites"
)

func GetFavorites(favs *favorites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/favorites"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := favs.List(ctx, uid)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": lines})
	}
}

func ToggleFavorite(favs *favorites.Service, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/favorites/toggle"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req productRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		p, err := cat.Product(ctx, req.ProductID)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		favorited, err := favs.Toggle(ctx, uid, p)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"productId": p.ID, "favorited": favorited})
	}
}

func RemoveFavorite(favs *favorites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/favorites/:productId"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}
		if c.Query("confirm") != "true" {
			respondWithError(c, http.StatusPreconditionRequired, route, "Remove this item from your favorites? Confirm to continue.")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := favs.Remove(ctx, uid, c.Param("productId")); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func MoveFavoriteToCart(favs *favorites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/favorites/:productId/cart"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		res, err := favs.MoveToCart(ctx, uid, c.Param("productId"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": res.Message(), "productId": c.Param("productId")})
	}
}
