package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/profile"
)

type addressRequest struct {
	Address string `json:"address"`
}

func GetProfile(profiles *profile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/profile"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		p, err := profiles.Get(ctx, uid)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func UpdateAddress(profiles *profile.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /user/profile/address"
		defer handlePanic(c, route)

		uid, ok := requireUser(c, route)
		if !ok {
			return
		}

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Println("[ADDRESS] [ERROR] invalid address body:", err)
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()

		saved, err := profiles.SetAddress(ctx, uid, req.Address)
		if err != nil {
			respondServiceError(c, route, err)
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", uid)
		c.JSON(http.StatusOK, gin.H{"address": saved})
	}
}
