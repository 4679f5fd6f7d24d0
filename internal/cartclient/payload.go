package cartclient

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/shopspring/decimal"
)

// flexibleID accepts both string and numeric identifiers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}

type itemPayload struct {
	CartItemID  flexibleID       `json:"cartItemId"`
	ID          flexibleID       `json:"id"`
	ProductID   flexibleID       `json:"productId"`
	ProductName string           `json:"productName"`
	Quantity    int              `json:"quantity"`
	PriceAtAdd  *decimal.Decimal `json:"priceAtAdd"`
	Price       *decimal.Decimal `json:"price"`
	TotalPrice  *decimal.Decimal `json:"totalPrice"`
	Product     *struct {
		Name  string `json:"name"`
		Stock int    `json:"stock"`
	} `json:"product"`
}

type cartPayload struct {
	CartID     flexibleID       `json:"cartId"`
	UserID     flexibleID       `json:"userId"`
	Items      []itemPayload    `json:"items"`
	TotalPrice *decimal.Decimal `json:"totalPrice"`
	TotalItems int              `json:"totalItems"`
	Cart       *json.RawMessage `json:"cart"`
}

type addLineRequest struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// decodeCart maps a backend cart body onto the shared aggregate. Totals are
// taken from the server as-is. Bodies wrapped as {"cart": {...}} are unwrapped.
func decodeCart(body []byte) (cart.Cart, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return cart.Empty(), nil
	}
	var payload cartPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return cart.Cart{}, err
	}
	if payload.Cart != nil && payload.Items == nil {
		return decodeCart(*payload.Cart)
	}

	out := cart.Cart{Items: make([]cart.Line, 0, len(payload.Items)), TotalAmount: decimal.Zero}
	for _, item := range payload.Items {
		line := cart.Line{
			LineID:      string(item.CartItemID),
			ProductID:   string(item.ProductID),
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
		}
		if line.LineID == "" {
			line.LineID = string(item.ID)
		}
		if item.Product != nil {
			if line.ProductName == "" {
				line.ProductName = item.Product.Name
			}
			line.Stock = item.Product.Stock
		}
		switch {
		case item.PriceAtAdd != nil:
			line.UnitPrice = *item.PriceAtAdd
		case item.Price != nil:
			line.UnitPrice = *item.Price
		}
		if item.TotalPrice != nil {
			line.LineTotal = *item.TotalPrice
		} else {
			line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		}
		out.Items = append(out.Items, line)
	}
	if payload.TotalPrice != nil {
		out.TotalAmount = *payload.TotalPrice
	} else {
		for _, line := range out.Items {
			out.TotalAmount = out.TotalAmount.Add(line.LineTotal)
		}
	}
	return out, nil
}

func decodeErrorMessage(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		return strings.TrimSpace(payload.Message)
	}
	return strings.TrimSpace(string(body))
}
