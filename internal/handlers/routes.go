package handlers

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/docstore"
	"storefront/internal/favorites"
	"storefront/internal/live"
	"storefront/internal/middleware"
	"storefront/internal/profile"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Store       docstore.Store
	Auth        *auth.Provider
	Catalog     *catalog.Catalog
	Profiles    *profile.Service
	Carts       *cart.Service
	Favorites   *favorites.Service
	Checkout    *checkout.Service
	Live        *live.Bridge
	ShippingFee float64
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/", Home())
	r.GET("/healthz", Health(d.Store))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", SignUp(d.Auth))
		authGroup.POST("/login", Login(d.Auth))
		authGroup.POST("/refresh", Refresh(d.Auth))
		authGroup.POST("/logout", Logout(d.Auth))
	}

	r.GET("/products", GetProducts(d.Catalog, d.Store))
	r.GET("/products/:id", middleware.OptionalUserAuth(d.Auth), GetProduct(d.Catalog, d.Favorites))

	user := r.Group("/user")
	user.Use(middleware.UserAuth(d.Auth))
	{
		user.GET("/profile", GetProfile(d.Profiles))
		user.PUT("/profile/address", UpdateAddress(d.Profiles))

		user.GET("/cart", GetCart(d.Carts, d.ShippingFee))
		user.POST("/cart", AddToCart(d.Carts, d.Catalog))
		user.GET("/cart/handoff", GetCartHandoff(d.Carts))
		user.POST("/cart/handoff", SaveCartHandoff(d.Carts))
		user.GET("/cart/live", LiveCart(d.Live))
		user.PUT("/cart/:productId", SetCartQuantity(d.Carts))
		user.POST("/cart/:productId/increment", StepCartQuantity(d.Carts, true))
		user.POST("/cart/:productId/decrement", StepCartQuantity(d.Carts, false))
		user.DELETE("/cart/:productId", RemoveFromCart(d.Carts))

		user.GET("/favorites", GetFavorites(d.Favorites))
		user.POST("/favorites/toggle", ToggleFavorite(d.Favorites, d.Catalog))
		user.GET("/favorites/live", LiveFavorites(d.Live))
		user.DELETE("/favorites/:productId", RemoveFavorite(d.Favorites))
		user.POST("/favorites/:productId/cart", MoveFavoriteToCart(d.Favorites))

		user.POST("/buy-now", BuyNow(d.Checkout, d.Catalog))
		user.POST("/checkout", BeginCheckout(d.Checkout))
		user.GET("/checkout/:id", GetCheckout(d.Checkout))
		user.PUT("/checkout/:id/address", SetCheckoutAddress(d.Checkout))
		user.PUT("/checkout/:id/payment", SelectPayment(d.Checkout))
		user.POST("/checkout/:id/place", PlaceOrder(d.Checkout))
		user.POST("/checkout/:id/cancel", CancelCheckout(d.Checkout))

		user.GET("/orders", GetOrders(d.Checkout))
	}
}
