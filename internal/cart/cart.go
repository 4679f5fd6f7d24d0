// Package cart defines the shopping cart aggregate shared by the guest store,
// the remote client and the widgets.
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot a caller supplies when adding to the cart.
type Product struct {
	ID    string          `json:"id" validate:"required"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0"`
}

// Line is one product's presence in a cart. UnitPrice is fixed when the line
// is created and never follows later catalog changes.
type Line struct {
	LineID      string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	Stock       int             `json:"stock,omitempty"`
}

// Cart is the aggregate root. Items keep insertion order.
type Cart struct {
	Items       []Line          `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	// NextLineSeq feeds guest line ids; it only ever grows.
	NextLineSeq uint64 `json:"nextLineSeq,omitempty"`
}

// Empty returns the canonical empty cart.
func Empty() Cart {
	return Cart{Items: []Line{}, TotalAmount: decimal.Zero}
}

// Recompute derives every line total and the cart total from scratch.
func (c *Cart) Recompute() {
	if c.Items == nil {
		c.Items = []Line{}
	}
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		total = total.Add(c.Items[i].LineTotal)
	}
	c.TotalAmount = total
}

// LineByProduct finds the line holding productID.
func (c Cart) LineByProduct(productID string) (Line, bool) {
	for _, line := range c.Items {
		if line.ProductID == productID {
			return line, true
		}
	}
	return Line{}, false
}

// LineByID finds the line with lineID.
func (c Cart) LineByID(lineID string) (Line, bool) {
	for _, line := range c.Items {
		if line.LineID == lineID {
			return line, true
		}
	}
	return Line{}, false
}

// TotalQuantity sums the quantities of every line.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Items {
		total += line.Quantity
	}
	return total
}

// LineCount is the number of distinct products in the cart.
func (c Cart) LineCount() int {
	return len(c.Items)
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]Line, len(c.Items))
	copy(out.Items, c.Items)
	return out
}

// Validate checks the structural invariants: one line per product, unique
// line ids, positive quantities, non-negative prices and exact totals.
func (c Cart) Validate() error {
	products := make(map[string]struct{}, len(c.Items))
	lineIDs := make(map[string]struct{}, len(c.Items))
	total := decimal.Zero
	for _, line := range c.Items {
		if line.LineID == "" {
			return fmt.Errorf("line without id")
		}
		if line.ProductID == "" {
			return fmt.Errorf("line %s has no product", line.LineID)
		}
		if _, dup := lineIDs[line.LineID]; dup {
			return fmt.Errorf("duplicate line id %s", line.LineID)
		}
		lineIDs[line.LineID] = struct{}{}
		if _, dup := products[line.ProductID]; dup {
			return fmt.Errorf("duplicate line for product %s", line.ProductID)
		}
		products[line.ProductID] = struct{}{}
		if line.Quantity < 1 {
			return fmt.Errorf("line %s has quantity %d", line.LineID, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("line %s has negative price", line.LineID)
		}
		expected := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if !line.LineTotal.Equal(expected) {
			return fmt.Errorf("line %s total %s, expected %s", line.LineID, line.LineTotal, expected)
		}
		total = total.Add(expected)
	}
	if !c.TotalAmount.Equal(total) {
		return fmt.Errorf("cart total %s, expected %s", c.TotalAmount, total)
	}
	return nil
}
