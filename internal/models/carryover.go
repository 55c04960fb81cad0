package models

import "time"

// BuyNowMarker selects buy-now mode for the next checkout. It is consumed on read.
type BuyNowMarker struct {
	ProductID string    `bson:"productId" json:"productId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// CheckoutHandoff is the line list the cart page hands to the checkout page for display.
type CheckoutHandoff struct {
	Items   []CartLine `bson:"items" json:"items"`
	SavedAt time.Time  `bson:"savedAt" json:"savedAt"`
}
