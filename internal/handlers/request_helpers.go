package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/apperr"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/docstore"
	"storefront/internal/favorites"
	"storefront/internal/middleware"
	"storefront/internal/profile"
)

const requestTimeout = 5 * time.Second

// Pinger is implemented by store backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[%s] panic recovered: %v", route, r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// ensureStore pings the backend when it supports it. Stores without Ping are assumed up.
func ensureStore(ctx context.Context, store docstore.Store) error {
	pinger, ok := store.(Pinger)
	if !ok {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return pinger.Ping(checkCtx)
}

func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[%s] returning error %d: %s", route, status, message)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondServiceError maps service errors onto status codes and user-facing messages.
// Store failures get the generic retry message; the cause is only logged.
func respondServiceError(c *gin.Context, route string, err error) {
	if msg := apperr.ValidationMessage(err); msg != "" {
		respondWithError(c, http.StatusBadRequest, route, msg)
		return
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		status := http.StatusBadRequest
		switch authErr.Kind {
		case auth.KindInvalidCredential, auth.KindInvalidToken:
			status = http.StatusUnauthorized
		case auth.KindEmailInUse:
			status = http.StatusConflict
		}
		respondWithError(c, status, route, authErr.Error())
		return
	}

	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondWithError(c, http.StatusNotFound, route, catalog.UserMessage(err))
	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, favorites.ErrNotFavorited),
		errors.Is(err, checkout.ErrSessionNotFound),
		errors.Is(err, profile.ErrNotFound):
		respondWithError(c, http.StatusNotFound, route, err.Error())
	case errors.Is(err, cart.ErrQuantityFloor), errors.Is(err, checkout.ErrInvalidState):
		respondWithError(c, http.StatusConflict, route, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, checkout.ErrPlaceFailed):
		log.Printf("[%s] place order failed: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, checkout.UserMessage(err))
	default:
		log.Printf("[%s] store error: %v", route, err)
		respondWithError(c, http.StatusInternalServerError, route, apperr.TryAgain)
	}
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "min":
				details = append(details, fmt.Sprintf("%s must be at least %s", field, fieldError.Param()))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// requireUser returns the authenticated uid or aborts with 401.
func requireUser(c *gin.Context, route string) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		log.Printf("[%s] userId missing in context", route)
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return "", false
	}
	return uid, true
}
