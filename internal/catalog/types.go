package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
)

type Banner struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl"`
}

type Category struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Banner *Banner `json:"banner,omitempty"`
}

type Image struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Product is a catalog entry as the public API returns it. Price arrives
// as a decimal string.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	StoreID     string          `json:"storeId,omitempty"`
	IsFeatured  bool            `json:"isFeatured"`
	Category    *Category       `json:"category,omitempty"`
	Images      []Image         `json:"images"`
	Quantity    *int            `json:"quantity,omitempty"`
	Sold        *int            `json:"sold,omitempty"`
	AvgRating   *float64        `json:"avgRating,omitempty"`
	RatingCount *int            `json:"ratingCount,omitempty"`
}

// Snapshot copies the fields the cart keeps for a line.
func (p Product) Snapshot() cart.ProductSnapshot {
	snap := cart.ProductSnapshot{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price,
		StoreID: p.StoreID,
	}
	for _, img := range p.Images {
		snap.Images = append(snap.Images, cart.Image{ID: img.ID, URL: img.URL})
	}
	return snap
}

// Query filters a product listing.
type Query struct {
	CategoryID string
	IsFeatured *bool
	Search     string
}

// Review is forwarded to the admin review endpoint.
type Review struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Rating    *int   `json:"rating,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// Passthrough is an admin answer relayed to the caller as-is.
type Passthrough struct {
	StatusCode  int
	ContentType string
	Body        []byte
	JSON        bool
}
