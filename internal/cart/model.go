package cart

import (
	"github.com/shopspring/decimal"
)

// Image is one product picture captured with the snapshot.
type Image struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url"`
}

// ProductSnapshot is the copy of product fields taken when the shopper adds
// it. It is never refreshed from the catalog.
type ProductSnapshot struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Images  []Image         `json:"images,omitempty"`
	StoreID string          `json:"storeId,omitempty"`
}

// Item is one cart line.
type Item struct {
	Product  ProductSnapshot `json:"product"`
	Quantity int             `json:"quantity"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
		if item.Product.Images != nil {
			out[i].Product.Images = append([]Image(nil), item.Product.Images...)
		}
	}
	return out
}
