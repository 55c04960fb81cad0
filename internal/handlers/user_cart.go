package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/models"
)

type productRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type handoffRequest struct {
	Items []models.CartLine `json:"items"`
}

func cartResponse(lines []models.CartLine, shippingFee float64) gin.H {
	return gin.H{
		"items":  lines,
		"totals": toTotalsResponse(cart.Totals(lines, shippingFee)),
	}
}

func GetCart(carts *cart.Service, shippingFee float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/cart"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := carts.Snapshot(ctx, uid)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartResponse(lines, shippingFee))
	}
}

// AddToCart copies the current catalog product into the cart, or bumps its quantity.
func AddToCart(carts *cart.Service, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/cart"
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

		res, err := carts.AddOrIncrement(ctx, uid, p)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		status := http.StatusOK
		if res == cart.Added {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"message": res.Message(), "productId": p.ID})
	}
}

func SetCartQuantity(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/cart/:productId"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req quantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := carts.SetQuantity(ctx, uid, c.Param("productId"), req.Quantity); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"productId": c.Param("productId"), "quantity": req.Quantity})
	}
}

// StepCartQuantity serves both increment and decrement; up selects the direction.
func StepCartQuantity(carts *cart.Service, up bool) gin.HandlerFunc {
	route := "POST /user/cart/:productId/decrement"
	step := carts.Decrement
	if up {
		route = "POST /user/cart/:productId/increment"
		step = carts.Increment
	}

	return func(c *gin.Context) {
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := step(ctx, uid, c.Param("productId")); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// RemoveFromCart needs confirm=true; the client asks the user before sending it.
func RemoveFromCart(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /user/cart/:productId"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}
		if c.Query("confirm") != "true" {
			respondWithError(c, http.StatusPreconditionRequired, route, "Remove this item from your cart? Confirm to continue.")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := carts.Remove(ctx, uid, c.Param("productId")); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func SaveCartHandoff(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/cart/handoff"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req handoffRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		if err := carts.SaveHandoff(ctx, uid, req.Items); err != nil {
			respondServiceError(c, route, err)
			return
		}
		log.Printf("[CART] [INFO] handoff saved for %s with %d lines", uid, len(req.Items))
		c.Status(http.StatusNoContent)
	}
}

func GetCartHandoff(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/cart/handoff"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		lines, err := carts.LoadHandoff(ctx, uid)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": lines})
	}
}
