package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/docstore"
	"storefront/internal/models"
	"storefront/internal/profile"
)

var (
	shirt  = models.Product{ID: "p1", Name: "Linen Shirt", Price: 500, ImageName: "linen.jpg"}
	jacket = models.Product{ID: "p2", Name: "Denim Jacket", Price: 300, ImageName: "denim.jpg"}
	hat    = models.Product{ID: "p3", Name: "Straw Hat", Price: 250, ImageName: "hat.jpg"}
)

type fixture struct {
	store    docstore.Store
	carts    *cart.Service
	profiles *profile.Service
	svc      *Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)}
	store := docstore.NewMemory().WithClock(func() time.Time { return f.now })
	f.store = store
	f.carts = cart.NewService(store)
	f.profiles = profile.NewService(store)
	cat := catalog.New(store)
	f.svc = NewService(store, f.profiles, cat, f.carts, NewRegistry(), Options{ShippingFee: 120, BuyNowTTL: 30 * time.Minute})
	f.svc.now = func() time.Time { return f.now }

	ctx := context.Background()
	require.NoError(t, cat.Seed(ctx, []models.Product{shirt, jacket, hat}))
	_, err := f.profiles.Create(ctx, "u1", "Ana", "ana@example.com")
	require.NoError(t, err)
	return f
}

func (f *fixture) fillCart(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, p := range []models.Product{shirt, shirt, jacket} {
		_, err := f.carts.AddOrIncrement(ctx, "u1", p)
		require.NoError(t, err)
	}
}

func TestFullCartCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	view := sess.View()
	assert.Equal(t, ModeFullCart, view.Mode)
	assert.Equal(t, Ready, view.State)
	assert.Equal(t, PaymentCashOnDelivery, view.PaymentMethod)
	assert.Equal(t, 1300.0, view.Subtotal)
	assert.Equal(t, 120.0, view.Shipping)
	assert.Equal(t, 1420.0, view.Total)

	_, err = f.svc.SetAddress(ctx, sess, "12 Rizal St")
	require.NoError(t, err)
	_, err = f.svc.SelectPayment(sess, PaymentGCash)
	require.NoError(t, err)

	order, err := f.svc.PlaceOrder(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Equal(t, "12 Rizal St", order.Address)
	assert.Equal(t, PaymentGCash, order.PaymentMethod)
	assert.Equal(t, 1420.0, order.Total)
	assert.Equal(t, f.now, order.CreatedAt)
	require.Len(t, order.Items, 2)

	lines, err := f.carts.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.Equal(t, Completed, sess.View().State)
	_, err = f.svc.Sessions().Get("u1", sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	prof, err := f.profiles.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "12 Rizal St", prof.Address)
}

func TestBuyNowNeverTouchesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, err := f.profiles.SetAddress(ctx, "u1", "12 Rizal St")
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkBuyNow(ctx, "u1", "p3"))
	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	view := sess.View()
	assert.Equal(t, ModeBuyNow, view.Mode)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "p3", view.Items[0].ProductID)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Equal(t, "12 Rizal St", view.Address)
	assert.Equal(t, 370.0, view.Total)

	_, err = f.svc.PlaceOrder(ctx, sess)
	require.NoError(t, err)

	lines, err := f.carts.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 2, "buy-now must leave the cart as it was")
}

func TestBuyNowMarkerIsConsumedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	require.NoError(t, f.svc.MarkBuyNow(ctx, "u1", "p3"))
	first, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ModeBuyNow, first.View().Mode)

	second, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ModeFullCart, second.View().Mode)
}

func TestBuyNowMarkerExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	require.NoError(t, f.svc.MarkBuyNow(ctx, "u1", "p3"))
	f.now = f.now.Add(31 * time.Minute)

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ModeFullCart, sess.View().Mode)
	assert.Len(t, sess.View().Items, 2)
}

func TestBuyNowMissingProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.MarkBuyNow(ctx, "u1", "gone"))
	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	view := sess.View()
	assert.Equal(t, Ready, view.State)
	assert.Empty(t, view.Items)
	assert.Equal(t, "Error: Product not found.", view.Notice)
}

func TestPlaceOrderPreconditionsWriteNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, empty)
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Equal(t, "Please set your delivery address first!", apperr.ValidationMessage(err))

	_, err = f.svc.SetAddress(ctx, empty, "12 Rizal St")
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, empty)
	assert.ErrorIs(t, err, ErrNoItems)
	assert.Equal(t, "There are no items to order!", apperr.ValidationMessage(err))
	assert.Equal(t, Ready, empty.View().State)

	orders, err := f.svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSetAddressRejectsBlank(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.Begin(context.Background(), "u1")
	require.NoError(t, err)

	_, err = f.svc.SetAddress(context.Background(), sess, "  ")
	assert.Equal(t, "Please enter your address!", apperr.ValidationMessage(err))
	assert.Empty(t, sess.View().Address)
}

func TestSelectPayment(t *testing.T) {
	f := newFixture(t)
	sess, err := f.svc.Begin(context.Background(), "u1")
	require.NoError(t, err)

	view, err := f.svc.SelectPayment(sess, PaymentCard)
	require.NoError(t, err)
	assert.Equal(t, PaymentCard, view.PaymentMethod)

	_, err = f.svc.SelectPayment(sess, "bitcoin")
	assert.ErrorIs(t, err, ErrUnknownPayment)
	assert.Equal(t, PaymentCard, sess.View().PaymentMethod)
}

type failingCommitStore struct {
	docstore.Store
}

func (failingCommitStore) Commit(ctx context.Context, writes []docstore.Write) error {
	return errors.New("network unreachable")
}

func TestPlaceOrderFailureReturnsToReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, err := f.profiles.SetAddress(ctx, "u1", "12 Rizal St")
	require.NoError(t, err)

	f.svc.store = failingCommitStore{Store: f.store}
	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.PlaceOrder(ctx, sess)
	assert.ErrorIs(t, err, ErrPlaceFailed)
	assert.Equal(t, "There was an error placing your order. Please try again.", UserMessage(err))
	assert.Equal(t, Ready, sess.View().State)

	lines, err := f.carts.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestPlaceOrderTwiceIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, err := f.profiles.SetAddress(ctx, "u1", "12 Rizal St")
	require.NoError(t, err)

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, sess)
	require.NoError(t, err)
	_, err = f.svc.PlaceOrder(ctx, sess)
	assert.ErrorIs(t, err, ErrInvalidState)

	orders, err := f.svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestViewIsASnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	view := sess.View()
	view.Items[0].Quantity = 99

	_, err = f.carts.AddOrIncrement(ctx, "u1", hat)
	require.NoError(t, err)

	again := sess.View()
	assert.Equal(t, 2, again.Items[0].Quantity)
	assert.Len(t, again.Items, 2, "later cart edits do not leak into an open session")
}

func TestCancelRedirects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	target, err := f.svc.Cancel(sess)
	require.NoError(t, err)
	assert.Equal(t, "cart", target)
	assert.Equal(t, Cancelled, sess.View().State)

	require.NoError(t, f.svc.MarkBuyNow(ctx, "u1", "p3"))
	sess, err = f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	target, err = f.svc.Cancel(sess)
	require.NoError(t, err)
	assert.Equal(t, "catalog", target)

	_, err = f.svc.Cancel(sess)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.SetAddress(ctx, "u1", "12 Rizal St")
	require.NoError(t, err)

	var placed []string
	for _, id := range []string{"p1", "p2"} {
		require.NoError(t, f.svc.MarkBuyNow(ctx, "u1", id))
		sess, err := f.svc.Begin(ctx, "u1")
		require.NoError(t, err)
		order, err := f.svc.PlaceOrder(ctx, sess)
		require.NoError(t, err)
		placed = append(placed, order.ID)
		f.now = f.now.Add(time.Minute)
	}

	orders, err := f.svc.ListOrders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, placed[1], orders[0].ID)
	assert.Equal(t, placed[0], orders[1].ID)

	other, err := f.svc.ListOrders(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRegistryDropsSessionsOnSignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.Sessions().Get("u2", sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound, "sessions are private to their owner")

	f.svc.Sessions().HandleAuthChange("u1", true)
	_, err = f.svc.Sessions().Get("u1", sess.ID())
	require.NoError(t, err)

	f.svc.Sessions().HandleAuthChange("u1", false)
	_, err = f.svc.Sessions().Get("u1", sess.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, f.svc.Sessions().Len())
}

func TestBeginReplacesEarlierSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.svc.Begin(ctx, "u2")
	require.NoError(t, err)

	first, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	var latest *Session
	for i := 0; i < 50; i++ {
		latest, err = f.svc.Begin(ctx, "u1")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, f.svc.Sessions().Len())
	_, err = f.svc.Sessions().Get("u1", first.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Sessions().Get("u1", latest.ID())
	assert.NoError(t, err)
	_, err = f.svc.Sessions().Get("u2", other.ID())
	assert.NoError(t, err, "another user's session is untouched")
}

func TestPlacedOrderIgnoresLaterCartEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.fillCart(t)
	_, err := f.profiles.SetAddress(ctx, "u1", "12 Rizal St")
	require.NoError(t, err)

	sess, err := f.svc.Begin(ctx, "u1")
	require.NoError(t, err)
	placed, err := f.svc.PlaceOrder(ctx, sess)
	require.NoError(t, err)

	_, err = f.carts.AddOrIncrement(ctx, "u1", shirt)
	require.NoError(t, err)
	require.NoError(t, f.carts.SetQuantity(ctx, "u1", "p1", 7))
	_, err = f.carts.AddOrIncrement(ctx, "u1", hat)
	require.NoError(t, err)

	stored, err := f.svc.Order(ctx, placed.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "p1", stored.Items[0].ProductID)
	assert.Equal(t, 2, stored.Items[0].Quantity)
	assert.Equal(t, "p2", stored.Items[1].ProductID)
	assert.Equal(t, 1, stored.Items[1].Quantity)
	assert.Equal(t, 1420.0, stored.Total)
}
