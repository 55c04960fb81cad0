// Package checkout drives the checkout page: it picks buy-now or full-cart mode, collects the
// address and payment method, and places the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/docstore"
	"storefront/internal/models"
	"storefront/internal/money"
	"storefront/internal/profile"
)

const ordersCollection = "orders"

var (
	ErrNoAddress      = apperr.Validation("Please set your delivery address first!")
	ErrNoItems        = apperr.Validation("There are no items to order!")
	ErrUnknownPayment = apperr.Validation("Please choose a valid payment method.")
	ErrPlaceFailed    = errors.New("place order failed")
	ErrInvalidState   = errors.New("checkout is not ready")
)

var userMessages = map[error]string{
	ErrPlaceFailed: "There was an error placing your order. Please try again.",
}

// UserMessage returns the text shown to shoppers for a checkout error, or "".
func UserMessage(err error) string {
	for sentinel, msg := range userMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return ""
}

type Options struct {
	ShippingFee float64
	BuyNowTTL   time.Duration
}

type Service struct {
	store    docstore.Store
	profiles *profile.Service
	catalog  *catalog.Catalog
	carts    *cart.Service
	sessions *Registry

	shippingFee float64
	buyNowTTL   time.Duration
	now         func() time.Time
}

func NewService(store docstore.Store, profiles *profile.Service, cat *catalog.Catalog, carts *cart.Service, sessions *Registry, opts Options) *Service {
	return &Service{
		store:       store,
		profiles:    profiles,
		catalog:     cat,
		carts:       carts,
		sessions:    sessions,
		shippingFee: opts.ShippingFee,
		buyNowTTL:   opts.BuyNowTTL,
		now:         time.Now,
	}
}

func (s *Service) Sessions() *Registry {
	return s.sessions
}

func buyNowPath(uid string) string {
	return docstore.Join("users", uid, "carryover", "buyNow")
}

func OrderPath(id string) string {
	return docstore.Join(ordersCollection, id)
}

// MarkBuyNow makes the next Begin for uid check out productID alone.
func (s *Service) MarkBuyNow(ctx context.Context, uid, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" || strings.Contains(productID, "/") {
		return catalog.ErrProductNotFound
	}
	fields, err := docstore.Encode(models.BuyNowMarker{ProductID: productID, CreatedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, buyNowPath(uid), fields); err != nil {
		return fmt.Errorf("save buy-now marker: %w", err)
	}
	return nil
}

// consumeBuyNow reads and deletes the marker. Expired markers are deleted and ignored.
func (s *Service) consumeBuyNow(ctx context.Context, uid string) (string, bool, error) {
	path := buyNowPath(uid)
	doc, err := s.store.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load buy-now marker: %w", err)
	}
	if err := s.store.Delete(ctx, path); err != nil {
		return "", false, fmt.Errorf("clear buy-now marker: %w", err)
	}

	var marker models.BuyNowMarker
	if err := doc.DataTo(&marker); err != nil {
		return "", false, fmt.Errorf("decode buy-now marker: %w", err)
	}
	if s.buyNowTTL > 0 && s.now().Sub(marker.CreatedAt) > s.buyNowTTL {
		log.Println("[CHECKOUT] [INFO] discarding stale buy-now marker:", uid, marker.ProductID)
		return "", false, nil
	}
	return marker.ProductID, marker.ProductID != "", nil
}

// Begin opens a checkout session for uid. It replaces any session uid still has open.
func (s *Service) Begin(ctx context.Context, uid string) (*Session, error) {
	sess := &Session{
		id:            uuid.NewString(),
		userID:        uid,
		state:         Uninitialized,
		paymentMethod: PaymentCashOnDelivery,
	}

	productID, buyNow, err := s.consumeBuyNow(ctx, uid)
	if err != nil {
		return nil, err
	}

	if buyNow {
		sess.mode = ModeBuyNow
		sess.state = LoadingBuyNow
		p, err := s.catalog.Product(ctx, productID)
		switch {
		case errors.Is(err, catalog.ErrProductNotFound):
			log.Println("[CHECKOUT] [ERROR] buy-now product missing:", productID)
			sess.items = []models.CartLine{}
			sess.notice = catalog.UserMessage(err)
		case err != nil:
			return nil, err
		default:
			sess.items = []models.CartLine{models.NewCartLine(p, 1)}
		}
	} else {
		sess.mode = ModeFullCart
		sess.state = LoadingFullCart
		lines, err := s.carts.Snapshot(ctx, uid)
		if err != nil {
			return nil, err
		}
		sess.items = lines
	}

	userProfile, err := s.profiles.Get(ctx, uid)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return nil, err
	}
	sess.address = userProfile.Address

	sess.totals = money.Compute(sess.items, s.shippingFee)
	sess.state = Ready
	if n := s.sessions.Replace(sess); n > 0 {
		log.Printf("[CHECKOUT] [INFO] replaced %d earlier sessions of %s", n, uid)
	}

	log.Printf("[CHECKOUT] [INFO] session %s started in %s mode with %d items", sess.id, sess.mode, len(sess.items))
	return sess, nil
}

// SetAddress saves the address to the profile and uses it for this session.
func (s *Service) SetAddress(ctx context.Context, sess *Session, address string) (View, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != Ready {
		return sess.viewLocked(), ErrInvalidState
	}

	saved, err := s.profiles.SetAddress(ctx, sess.userID, address)
	if err != nil {
		return sess.viewLocked(), err
	}
	sess.address = saved
	return sess.viewLocked(), nil
}

func (s *Service) SelectPayment(sess *Session, method string) (View, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != Ready {
		return sess.viewLocked(), ErrInvalidState
	}
	if !paymentMethods[method] {
		return sess.viewLocked(), ErrUnknownPayment
	}
	sess.paymentMethod = method
	return sess.viewLocked(), nil
}

// PlaceOrder writes the order. In full-cart mode the ordered cart lines are deleted in the
// same batch; buy-now never touches the cart.
func (s *Service) PlaceOrder(ctx context.Context, sess *Session) (models.Order, error) {
	sess.mu.Lock()
	if sess.state != Ready {
		sess.mu.Unlock()
		return models.Order{}, ErrInvalidState
	}
	if strings.TrimSpace(sess.address) == "" {
		sess.mu.Unlock()
		return models.Order{}, ErrNoAddress
	}
	if len(sess.items) == 0 {
		sess.mu.Unlock()
		return models.Order{}, ErrNoItems
	}

	order := models.Order{
		ID:            uuid.NewString(),
		UserID:        sess.userID,
		Address:       sess.address,
		PaymentMethod: sess.paymentMethod,
		Items:         models.OrderItemsFromLines(sess.items),
		Subtotal:      sess.totals.Subtotal,
		Shipping:      sess.totals.Shipping,
		Total:         sess.totals.Total,
		Status:        models.OrderStatusPlaced,
	}
	consumed := make([]string, 0, len(sess.items))
	if sess.mode == ModeFullCart {
		for _, line := range sess.items {
			consumed = append(consumed, line.ProductID)
		}
	}
	sess.state = Submitting
	sess.mu.Unlock()

	err := s.commitOrder(ctx, order, consumed)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err != nil {
		log.Println("[CHECKOUT] [ERROR] place order failed:", sess.id, err)
		sess.state = Ready
		return models.Order{}, fmt.Errorf("%w: %v", ErrPlaceFailed, err)
	}
	sess.state = Completed
	sess.orderID = order.ID
	s.sessions.Drop(sess.id)

	if stored, err := s.Order(ctx, order.ID); err == nil {
		order = stored
	} else {
		log.Println("[CHECKOUT] [ERROR] reload placed order failed:", order.ID, err)
		order.CreatedAt = s.now().UTC()
	}
	log.Println("[CHECKOUT] [INFO] order placed:", order.ID, sess.userID)
	return order, nil
}

func (s *Service) commitOrder(ctx context.Context, order models.Order, consumedLines []string) error {
	fields, err := docstore.Encode(order)
	if err != nil {
		return err
	}
	fields["createdAt"] = docstore.ServerTimestamp

	writes := make([]docstore.Write, 0, 1+len(consumedLines))
	writes = append(writes, docstore.CreateWrite(OrderPath(order.ID), fields))
	for _, productID := range consumedLines {
		writes = append(writes, docstore.DeleteWrite(cart.LinePath(order.UserID, productID)))
	}
	return s.store.Commit(ctx, writes)
}

// Cancel abandons the session and returns where the client should go next: "cart" or "catalog".
func (s *Service) Cancel(sess *Session) (string, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != Ready {
		return "", ErrInvalidState
	}
	sess.state = Cancelled
	s.sessions.Drop(sess.id)

	if sess.mode == ModeBuyNow {
		return "catalog", nil
	}
	return "cart", nil
}

func (s *Service) Order(ctx context.Context, id string) (models.Order, error) {
	doc, err := s.store.Get(ctx, OrderPath(id))
	if err != nil {
		return models.Order{}, fmt.Errorf("load order: %w", err)
	}
	return decodeOrder(doc)
}

func decodeOrder(doc docstore.Document) (models.Order, error) {
	var order models.Order
	if err := doc.DataTo(&order); err != nil {
		return models.Order{}, fmt.Errorf("decode order %s: %w", doc.ID, err)
	}
	order.ID = doc.ID
	return order, nil
}

// ListOrders returns uid's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, uid string) ([]models.Order, error) {
	docs, err := s.store.GetAll(ctx, ordersCollection, docstore.Query{}.Where("userId", uid).OrderBy("createdAt", true))
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	orders := make([]models.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := decodeOrder(doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}
