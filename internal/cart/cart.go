// Package cart is the per-user cart under users/{uid}/cart, one document per product.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"storefront/internal/docstore"
	"storefront/internal/models"
	"storefront/internal/money"
)

var (
	ErrQuantityFloor   = errors.New("quantity cannot go below 1")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrLineNotFound    = errors.New("cart line not found")
)

// AddResult tells the caller which confirmation to show after AddOrIncrement.
type AddResult int

const (
	Added AddResult = iota
	Incremented
)

func (r AddResult) Message() string {
	if r == Incremented {
		return "Added one more to your cart!"
	}
	return "Product added to cart!"
}

type Service struct {
	store docstore.Store
	now   func() time.Time
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func CollectionPath(uid string) string {
	return docstore.Join("users", uid, "cart")
}

func LinePath(uid, productID string) string {
	return docstore.Join("users", uid, "cart", productID)
}

func checkProductID(productID string) error {
	if strings.TrimSpace(productID) == "" || strings.Contains(productID, "/") {
		return ErrLineNotFound
	}
	return nil
}

func decodeLines(docs []docstore.Document) ([]models.CartLine, error) {
	lines := make([]models.CartLine, 0, len(docs))
	for _, doc := range docs {
		var line models.CartLine
		if err := doc.DataTo(&line); err != nil {
			return nil, fmt.Errorf("decode cart line %s: %w", doc.ID, err)
		}
		line.ProductID = doc.ID
		lines = append(lines, line)
	}
	return lines, nil
}

// Subscribe delivers the full cart, ordered by product id, now and after every change.
func (s *Service) Subscribe(ctx context.Context, uid string, fn func([]models.CartLine, error)) (docstore.Unsubscribe, error) {
	return s.store.Subscribe(ctx, CollectionPath(uid), func(docs []docstore.Document, err error) {
		if err != nil {
			fn(nil, err)
			return
		}
		fn(decodeLines(docs))
	})
}

func (s *Service) Snapshot(ctx context.Context, uid string) ([]models.CartLine, error) {
	docs, err := s.store.GetAll(ctx, CollectionPath(uid), docstore.Query{})
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return decodeLines(docs)
}

// AddOrIncrement bumps the line by one, creating it with quantity 1 when absent.
// A concurrent first add is resolved by retrying the increment.
func (s *Service) AddOrIncrement(ctx context.Context, uid string, p models.Product) (AddResult, error) {
	if err := checkProductID(p.ID); err != nil {
		return Added, err
	}
	path := LinePath(uid, p.ID)

	err := s.store.Update(ctx, path, docstore.Fields{"quantity": docstore.Increment(1)})
	if err == nil {
		return Incremented, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return Added, fmt.Errorf("increment cart line: %w", err)
	}

	fields, err := docstore.Encode(models.NewCartLine(p, 1))
	if err != nil {
		return Added, err
	}
	err = s.store.Create(ctx, path, fields)
	if err == nil {
		log.Println("[CART] [INFO] product added:", uid, p.ID)
		return Added, nil
	}
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		return Added, fmt.Errorf("create cart line: %w", err)
	}

	if err := s.store.Update(ctx, path, docstore.Fields{"quantity": docstore.Increment(1)}); err != nil {
		return Added, fmt.Errorf("increment cart line: %w", err)
	}
	return Incremented, nil
}

// SetQuantity overwrites the quantity of an existing line.
func (s *Service) SetQuantity(ctx context.Context, uid, productID string, quantity int) error {
	if err := checkProductID(productID); err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	err := s.store.Update(ctx, LinePath(uid, productID), docstore.Fields{"quantity": quantity})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrLineNotFound
	}
	if err != nil {
		return fmt.Errorf("set cart quantity: %w", err)
	}
	return nil
}

func (s *Service) Increment(ctx context.Context, uid, productID string) error {
	if err := checkProductID(productID); err != nil {
		return err
	}
	err := s.store.Update(ctx, LinePath(uid, productID), docstore.Fields{"quantity": docstore.Increment(1)})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrLineNotFound
	}
	if err != nil {
		return fmt.Errorf("increment cart line: %w", err)
	}
	return nil
}

// Decrement lowers the quantity by one. A line at quantity 1 is left untouched.
func (s *Service) Decrement(ctx context.Context, uid, productID string) error {
	if err := checkProductID(productID); err != nil {
		return err
	}
	path := LinePath(uid, productID)

	doc, err := s.store.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrLineNotFound
	}
	if err != nil {
		return fmt.Errorf("load cart line: %w", err)
	}
	var line models.CartLine
	if err := doc.DataTo(&line); err != nil {
		return fmt.Errorf("decode cart line: %w", err)
	}
	if line.Quantity <= 1 {
		return ErrQuantityFloor
	}

	// absolute write: concurrent decrements from 2 both land on 1
	if err := s.store.Update(ctx, path, docstore.Fields{"quantity": line.Quantity - 1}); err != nil {
		return fmt.Errorf("decrement cart line: %w", err)
	}
	return nil
}

// Remove deletes the line. Removing a missing line succeeds.
func (s *Service) Remove(ctx context.Context, uid, productID string) error {
	if err := checkProductID(productID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, LinePath(uid, productID)); err != nil {
		return fmt.Errorf("remove cart line: %w", err)
	}
	log.Println("[CART] [INFO] product removed:", uid, productID)
	return nil
}

func Totals(lines []models.CartLine, shippingFee float64) money.Totals {
	return money.Compute(lines, shippingFee)
}

func handoffPath(uid string) string {
	return docstore.Join("users", uid, "carryover", "checkoutCart")
}

// SaveHandoff stores the lines the checkout page shows while it loads its own snapshot.
func (s *Service) SaveHandoff(ctx context.Context, uid string, lines []models.CartLine) error {
	if lines == nil {
		lines = []models.CartLine{}
	}
	fields, err := docstore.Encode(models.CheckoutHandoff{Items: lines, SavedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, handoffPath(uid), fields); err != nil {
		return fmt.Errorf("save checkout handoff: %w", err)
	}
	return nil
}

// LoadHandoff returns the saved lines, or none when nothing was handed off.
func (s *Service) LoadHandoff(ctx context.Context, uid string) ([]models.CartLine, error) {
	doc, err := s.store.Get(ctx, handoffPath(uid))
	if errors.Is(err, docstore.ErrNotFound) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkout handoff: %w", err)
	}
	var handoff models.CheckoutHandoff
	if err := doc.DataTo(&handoff); err != nil {
		return nil, fmt.Errorf("decode checkout handoff: %w", err)
	}
	if handoff.Items == nil {
		handoff.Items = []models.CartLine{}
	}
	return handoff.Items, nil
}
