package checkout

import (
	"fmt"
	"sync"

	"storefront/internal/models"
	"storefront/internal/money"
)

type State int

const (
	Uninitialized State = iota
	LoadingBuyNow
	LoadingFullCart
	Ready
	Submitting
	Completed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case LoadingBuyNow:
		return "loadingBuyNow"
	case LoadingFullCart:
		return "loadingFullCart"
	case Ready:
		return "ready"
	case Submitting:
		return "submitting"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for candidate := Uninitialized; candidate <= Cancelled; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", text)
}

type Mode string

const (
	ModeFullCart Mode = "fullCart"
	ModeBuyNow   Mode = "buyNow"
)

const (
	PaymentCashOnDelivery = "cash-on-delivery"
	PaymentGCash          = "gcash"
	PaymentCard           = "card"
)

var paymentMethods = map[string]bool{
	PaymentCashOnDelivery: true,
	PaymentGCash:          true,
	PaymentCard:           true,
}

// Session is one pass through the checkout page. All fields are guarded by mu.
type Session struct {
	mu sync.Mutex

	id            string
	userID        string
	mode          Mode
	state         State
	items         []models.CartLine
	address       string
	paymentMethod string
	totals        money.Totals
	orderID       string
	notice        string
}

// View is an immutable copy of a session for rendering.
type View struct {
	ID            string            `json:"id"`
	Mode          Mode              `json:"mode"`
	State         State             `json:"state"`
	Items         []models.CartLine `json:"items"`
	Address       string            `json:"address"`
	PaymentMethod string            `json:"paymentMethod"`
	Subtotal      float64           `json:"subtotal"`
	Shipping      float64           `json:"shipping"`
	Total         float64           `json:"total"`
	OrderID       string            `json:"orderId,omitempty"`
	Notice        string            `json:"notice,omitempty"`
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		ID:            s.id,
		Mode:          s.mode,
		State:         s.state,
		Items:         append([]models.CartLine{}, s.items...),
		Address:       s.address,
		PaymentMethod: s.paymentMethod,
		Subtotal:      s.totals.Subtotal,
		Shipping:      s.totals.Shipping,
		Total:         s.totals.Total,
		OrderID:       s.orderID,
		Notice:        s.notice,
	}
}
