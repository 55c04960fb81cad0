package money

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/models"
)

func TestComputeAddsShippingToNonEmptySubtotal(t *testing.T) {
	lines := []models.CartLine{
		{ProductID: "a", Price: 500, Quantity: 2},
		{ProductID: "b", Price: 300, Quantity: 1},
	}

	totals := Compute(lines, 120)
	assert.Equal(t, 1300.0, totals.Subtotal)
	assert.Equal(t, 120.0, totals.Shipping)
	assert.Equal(t, 1420.0, totals.Total)
}

func TestComputeEmptyCartIsZero(t *testing.T) {
	assert.Equal(t, Totals{}, Compute(nil, 120))
	assert.Equal(t, Totals{}, Compute([]models.CartLine{}, 120))
}

func TestComputeAvoidsFloatDrift(t *testing.T) {
	lines := []models.CartLine{
		{ProductID: "a", Price: 0.1, Quantity: 1},
		{ProductID: "b", Price: 0.2, Quantity: 1},
	}
	assert.Equal(t, 0.3, Compute(lines, 0).Subtotal)
}

func TestFormat(t *testing.T) {
	cases := map[float64]string{
		0:       "₱0.00",
		120:     "₱120.00",
		1420:    "₱1,420.00",
		1234567: "₱1,234,567.00",
		99.5:    "₱99.50",
		10.05:   "₱10.05",
	}
	for amount, want := range cases {
		assert.Equal(t, want, Format(amount), "amount %v", amount)
	}
}
