package models

import "time"

const OrderStatusPlaced = "Placed"

// OrderItem is a copy of a line at the time the order was placed.
type OrderItem struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	ImageName string  `bson:"imageName" json:"imageName"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

// Order defines the persisted order document. It is never modified after creation.
type Order struct {
	ID            string      `bson:"-" json:"id"`
	UserID        string      `bson:"userId" json:"userId"`
	Address       string      `bson:"address" json:"address"`
	PaymentMethod string      `bson:"paymentMethod" json:"paymentMethod"`
	Items         []OrderItem `bson:"items" json:"items"`
	Subtotal      float64     `bson:"subtotal" json:"subtotal"`
	Shipping      float64     `bson:"shipping" json:"shipping"`
	Total         float64     `bson:"total" json:"total"`
	Status        string      `bson:"status" json:"status"`
	CreatedAt     time.Time   `bson:"createdAt" json:"createdAt"`
}

// OrderItemsFromLines deep-copies cart lines into order items.
func OrderItemsFromLines(lines []CartLine) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Price:     line.Price,
			ImageName: line.ImageName,
			Quantity:  line.Quantity,
		})
	}
	return items
}
