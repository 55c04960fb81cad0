package models

// Product is a catalog entry. The storefront never writes products outside of seeding.
type Product struct {
	ID         string  `bson:"-" json:"id" yaml:"id"`
	Name       string  `bson:"name" json:"name" yaml:"name"`
	Price      float64 `bson:"price" json:"price" yaml:"price"`
	ImageName  string  `bson:"imageName" json:"imageName" yaml:"imageName"`
	Category   string  `bson:"category" json:"category" yaml:"category"`
	Color      string  `bson:"color" json:"color" yaml:"color"`
	Popularity int     `bson:"popularity" json:"popularity" yaml:"popularity"`
}
