package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/docstore"
	"storefront/internal/favorites"
	"storefront/internal/handlers"
	"storefront/internal/live"
	"storefront/internal/profile"
)

func NewServeCommand() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the storefront HTTP API on PORT.

Example:
  STORE_BACKEND=memory storefront serve --seed ./products.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.AppEnv, seedFile)
		},
	}

	cmd.Flags().StringVar(&seedFile, "seed", "", "load products from this YAML file before serving")
	return cmd
}

func buildDeps(store docstore.Store, cfg config.Config) handlers.Deps {
	profiles := profile.NewService(store)
	cat := catalog.New(store)
	carts := cart.NewService(store)
	favs := favorites.NewService(store, carts)
	registry := checkout.NewRegistry()

	provider := auth.NewProvider(store, auth.Options{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	bridge := live.NewBridge(carts, favs, live.Options{
		ShippingFee:    cfg.ShippingFee,
		AllowedOrigins: cfg.CORSOrigins,
	})

	provider.OnStateChange(registry.HandleAuthChange)
	provider.OnStateChange(bridge.HandleAuthChange)

	return handlers.Deps{
		Store:     store,
		Auth:      provider,
		Catalog:   cat,
		Profiles:  profiles,
		Carts:     carts,
		Favorites: favs,
		Checkout: checkout.NewService(store, profiles, cat, carts, registry, checkout.Options{
			ShippingFee: cfg.ShippingFee,
			BuyNowTTL:   cfg.BuyNowTTL,
		}),
		Live:        bridge,
		ShippingFee: cfg.ShippingFee,
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func serve(ctx context.Context, cfg config.Config, seedFile string) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Println("store close failed:", err)
		}
	}()

	deps := buildDeps(store, cfg)
	if seedFile != "" {
		n, err := seedProducts(ctx, deps.Catalog, seedFile)
		if err != nil {
			return err
		}
		log.Printf("seeded %d products from %s", n, seedFile)
	}

	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	handlers.RegisterRoutes(r, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Println("listening on", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
