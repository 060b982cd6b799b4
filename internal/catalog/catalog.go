// Package catalog is the read-only client boundary for the product catalog
// collaborator. Price, discount and stock always come from here; the cart
// only snapshots them.
package catalog

import "context"

// Product is the catalog's view of a sellable item.
type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	PriceCents      int32  `json:"priceCents"`
	DiscountPercent int32  `json:"discountPercent"`
	Stock           int32  `json:"stock"`
	Category        string `json:"category"`
}

// Service looks up products by id or search query.
// The catalog is consumed, not implemented, by this system.
type Service interface {
	// GetProduct returns the product with the given id.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// Search returns products matching the query within a category.
	// Either argument may be empty.
	Search(ctx context.Context, query, category string) ([]Product, error)
}
