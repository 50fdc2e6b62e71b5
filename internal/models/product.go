package models

import "time"

// NoBrand is stored when a product page has no brand row.
const NoBrand = "None"

// Product represents one product card from a catalog listing page
type Product struct {
	ID           string    `json:"product ID" bson:"product_id"`
	Name         string    `json:"name" bson:"name"`
	URL          string    `json:"product link" bson:"url"`
	RegularPrice string    `json:"regular price" bson:"regular_price"`
	PromoPrice   string    `json:"promo price" bson:"promo_price"`
	Brand        string    `json:"brand" bson:"brand"`
	Region       string    `json:"-" bson:"region"`
	CrawledAt    time.Time `json:"-" bson:"crawled_at"`
}

// HasBrand reports whether a brand was resolved for the product
func (p *Product) HasBrand() bool {
	return p.Brand != "" && p.Brand != NoBrand
}
