package cartserver

import (
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/shopspring/decimal"
)

// DefaultCatalog is the product list the development backend starts with.
func DefaultCatalog() []cart.Product {
	return []cart.Product{
		{ID: "550e8400-e29b-41d4-a716-446655440001", Name: "Smartphone", Price: decimal.RequireFromString("299.99"), Stock: 50},
		{ID: "550e8400-e29b-41d4-a716-446655440002", Name: "Wireless Headphones", Price: decimal.RequireFromString("89.99"), Stock: 75},
		{ID: "550e8400-e29b-41d4-a716-446655440003", Name: "Cotton T-Shirt", Price: decimal.RequireFromString("19.99"), Stock: 100},
	}
}
