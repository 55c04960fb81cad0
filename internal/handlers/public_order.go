package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/money"
)

type paymentRequest struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

func checkoutResponse(v checkout.View) gin.H {
	return gin.H{
		"checkout": v,
		"totals":   toTotalsResponse(money.Totals{Subtotal: v.Subtotal, Shipping: v.Shipping, Total: v.Total}),
	}
}

// BuyNow marks a single product for the next checkout. The product must exist.
func BuyNow(flow *checkout.Service, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/buy-now"
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

		if _, err := cat.Product(ctx, req.ProductID); err != nil {
			respondServiceError(c, route, err)
			return
		}
		if err := flow.MarkBuyNow(ctx, uid, req.ProductID); err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"redirect": "checkout"})
	}
}

func BeginCheckout(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/checkout"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		sess, err := flow.Begin(ctx, uid)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, checkoutResponse(sess.View()))
	}
}

// lookupSession resolves :id against the caller's own sessions.
func lookupSession(c *gin.Context, flow *checkout.Service, route string) (*checkout.Session, bool) {
	uid, ok := requireUser(c, route)
	if !ok {
		return nil, false
	}
	sess, err := flow.Sessions().Get(uid, c.Param("id"))
	if err != nil {
		respondServiceError(c, route, err)
		return nil, false
	}
	return sess, true
}

func GetCheckout(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/checkout/:id"
		defer handlePanic(c, route)

		sess, ok := lookupSession(c, flow, route)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, checkoutResponse(sess.View()))
	}
}

func SetCheckoutAddress(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/checkout/:id/address"
		defer handlePanic(c, route)

		sess, ok := lookupSession(c, flow, route)
		if !ok {
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		view, err := flow.SetAddress(ctx, sess, req.Address)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, checkoutResponse(view))
	}
}

func SelectPayment(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/checkout/:id/payment"
		defer handlePanic(c, route)

		sess, ok := lookupSession(c, flow, route)
		if !ok {
			return
		}

		var req paymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		view, err := flow.SelectPayment(sess, req.PaymentMethod)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, checkoutResponse(view))
	}
}

func PlaceOrder(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/checkout/:id/place"
		defer handlePanic(c, route)

		sess, ok := lookupSession(c, flow, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		order, err := flow.PlaceOrder(ctx, sess)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order created:", order.ID)
		c.JSON(http.StatusCreated, gin.H{
			"message": "Order placed successfully!",
			"order":   order,
			"totals":  toTotalsResponse(money.Totals{Subtotal: order.Subtotal, Shipping: order.Shipping, Total: order.Total}),
		})
	}
}

func CancelCheckout(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/checkout/:id/cancel"
		defer handlePanic(c, route)

		sess, ok := lookupSession(c, flow, route)
		if !ok {
			return
		}

		target, err := flow.Cancel(sess)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"redirect": target})
	}
}

/*
GET /user/orders
- newest first
- pagination only when page + limit are both present
*/
func GetOrders(flow *checkout.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/orders"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		orders, err := flow.ListOrders(ctx, uid)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		pageStr, limitStr := c.Query("page"), c.Query("limit")
		if pageStr != "" && limitStr != "" {
			page, limit, err := parsePaginationParams(pageStr, limitStr)
			if err != nil {
				respondWithError(c, http.StatusBadRequest, route, err.Error())
				return
			}
			items, meta := paginate(orders, page, limit)
			c.JSON(http.StatusOK, gin.H{"data": items, "pagination": meta})
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}
