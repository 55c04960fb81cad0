package models

// CartLine is one product in a user's cart, keyed by product id under users/{uid}/cart.
type CartLine struct {
	ProductID string  `bson:"productId" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"`
	ImageName string  `bson:"imageName" json:"imageName"`
	Quantity  int     `bson:"quantity" json:"quantity"`
}

// NewCartLine snapshots the product fields a cart line carries.
func NewCartLine(p Product, quantity int) CartLine {
	return CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		ImageName: p.ImageName,
		Quantity:  quantity,
	}
}
