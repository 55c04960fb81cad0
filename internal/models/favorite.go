package models

import "time"

// FavoriteLine marks a product as favorited. Presence is the whole state.
type FavoriteLine struct {
	ProductID string    `bson:"productId" json:"productId"`
	Name      string    `bson:"name" json:"name"`
	Price     float64   `bson:"price" json:"price"`
	ImageName string    `bson:"imageName" json:"imageName"`
	AddedAt   time.Time `bson:"addedAt" json:"addedAt"`
}

func (f FavoriteLine) Product() Product {
	return Product{
		ID:        f.ProductID,
		Name:      f.Name,
		Price:     f.Price,
		ImageName: f.ImageName,
	}
}
