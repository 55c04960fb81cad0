// Package favorites keeps users/{uid}/favorites, one document per favorited product.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront/internal/cart"
	"storefront/internal/docstore"
	"storefront/internal/models"
)

var ErrNotFavorited = errors.New("product is not in favorites")

type Service struct {
	store docstore.Store
	cart  *cart.Service
	now   func() time.Time
}

func NewService(store docstore.Store, cartService *cart.Service) *Service {
	return &Service{store: store, cart: cartService, now: time.Now}
}

func CollectionPath(uid string) string {
	return docstore.Join("users", uid, "favorites")
}

func LinePath(uid, productID string) string {
	return docstore.Join("users", uid, "favorites", productID)
}

func validProductID(productID string) bool {
	return strings.TrimSpace(productID) != "" && !strings.Contains(productID, "/")
}

func decodeLines(docs []docstore.Document) ([]models.FavoriteLine, error) {
	lines := make([]models.FavoriteLine, 0, len(docs))
	for _, doc := range docs {
		var line models.FavoriteLine
		if err := doc.DataTo(&line); err != nil {
			return nil, fmt.Errorf("decode favorite %s: %w", doc.ID, err)
		}
		line.ProductID = doc.ID
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) Subscribe(ctx context.Context, uid string, fn func([]models.FavoriteLine, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, CollectionPath(uid), func(docs []docstore.Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(decodeLines(docs))
	})
}

func (s *Service) List(ctx context.Context, uid string) ([]models.FavoriteLine, error) {
	docs, err := s.store.GetAll(ctx, CollectionPath(uid), docstore.Query{})
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}
	return decodeLines(docs)
}

func (s *Service) get(ctx context.Context, uid, productID string) (models.FavoriteLine, bool, error) {
	if !validProductID(productID) {
		return models.FavoriteLine{}, false, nil
	}
	doc, err := s.store.Get(ctx, LinePath(uid, productID))
	if errors.Is(err, docstore.ErrNotFound) {
		return models.FavoriteLine{}, false, nil
	}
	if err != nil {
		return models.FavoriteLine{}, false, fmt.Errorf("load favorite: %w", err)
	}
	var line models.FavoriteLine
	if err := doc.DataTo(&line); err != nil {
		return models.FavoriteLine{}, false, fmt.Errorf("decode favorite: %w", err)
	}
	line.ProductID = doc.ID
	return line, true, nil
}

func (s *Service) IsFavorite(ctx context.Context, uid, productID string) (bool, error) {
	_, ok, err := s.get(ctx, uid, productID)
	return ok, err
}

// Toggle adds or removes p depending on what the store holds right now.
// It returns whether the product is favorited afterwards.
func (s *Service) Toggle(ctx context.Context, uid string, p models.Product) (bool, error) {
	if !validProductID(p.ID) {
		return false, ErrNotFavorited
	}
	favorited, err := s.IsFavorite(ctx, uid, p.ID)
	if err != nil {
		return false, err
	}

	if favorited {
		if err := s.Remove(ctx, uid, p.ID); err != nil {
			return true, err
		}
		return false, nil
	}

	fields, err := docstore.Encode(models.FavoriteLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageName: p.ImageName,
		AddedAt:   s.now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if err := s.store.Set(ctx, LinePath(uid, p.ID), fields); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	log.Println("[FAVORITES] [INFO] product favorited:", uid, p.ID)
	return true, nil
}

// Remove is idempotent.
func (s *Service) Remove(ctx context.Context, uid, productID string) error {
	if !validProductID(productID) {
		return nil
	}
	if err := s.store.Delete(ctx, LinePath(uid, productID)); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	log.Println("[FAVORITES] [INFO] product unfavorited:", uid, productID)
	return nil
}

// MoveToCart adds the favorited product to the cart. The favorite is kept.
func (s *Service) MoveToCart(ctx context.Context, uid, productID string) (cart.AddResult, error) {
	line, ok, err := s.get(ctx, uid, productID)
	if err != nil {
		return cart.Added, err
	}
	if !ok {
		return cart.Added, ErrNotFavorited
	}
	return s.cart.AddOrIncrement(ctx, uid, line.Product())
}
