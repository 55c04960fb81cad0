package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/docstore"
	"storefront/internal/favorites"
	"storefront/internal/middleware"
)

/*
GET /products
- search, category, color, sort are optional
- pagination only when page + limit are both present
*/
func GetProducts(cat *catalog.Catalog, store docstore.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		var view catalog.View
		if err := c.ShouldBindQuery(&view); err != nil {
			respondValidationError(c, err)
			return
		}
		log.Printf("[%s] hit search=%s category=%s color=%s sort=%s", route, view.Search, view.Category, view.Color, view.Sort)

		if err := ensureStore(c.Request.Context(), store); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		products, err := cat.Load(ctx)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		filtered := catalog.Filter(products, view)

		pageStr, limitStr := c.Query("page"), c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			items, meta := paginate(filtered, page, limit)
			c.JSON(http.StatusOK, gin.H{"data": toProductResponses(items), "pagination": meta})
			return
		}

		log.Printf("[%s] returning %d products", route, len(filtered))
		c.JSON(http.StatusOK, toProductResponses(filtered))
	}
}

// GetProduct returns the product detail. The favorite flag is filled in for signed-in callers.
func GetProduct(cat *catalog.Catalog, favs *favorites.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		detail, err := cat.Detail(ctx, favs, middleware.UserID(c), c.Param("id"))
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, toDetailResponse(detail))
	}
}
