// Package cartserver is an in-memory implementation of the backend cart
// contract. cartctl serves it for local development and the client tests run
// against it.
package cartserver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service defines the backend cart operations.
type Service interface {
	GetCart(ctx context.Context, userID string) (View, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (View, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (View, error)
	RemoveItem(ctx context.Context, itemID string) error
	ItemOwner(ctx context.Context, itemID string) (string, error)
	ClearCart(ctx context.Context, userID string) error
	Products(ctx context.Context) []cart.Product
}

// View is the cart payload returned to clients.
type View struct {
	CartID     string          `json:"cartId"`
	UserID     string          `json:"userId"`
	Items      []ItemView      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
}

// ItemView is one cart line as the backend reports it.
type ItemView struct {
	CartItemID  string          `json:"cartItemId"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	PriceAtAdd  decimal.Decimal `json:"priceAtAdd"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

type item struct {
	id         string
	productID  string
	quantity   int
	priceAtAdd decimal.Decimal
}

type userCart struct {
	id     string
	userID string
	items  []*item
}

type service struct {
	mu       sync.Mutex
	catalog  map[string]cart.Product
	carts    map[string]*userCart
	itemCart map[string]*userCart
	newID    func() string
}

// Option customises the service.
type Option func(*service)

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService builds a backend over the given catalog.
func NewService(catalog []cart.Product, opts ...Option) (Service, error) {
	s := &service{
		catalog:  make(map[string]cart.Product, len(catalog)),
		carts:    map[string]*userCart{},
		itemCart: map[string]*userCart{},
		newID:    uuid.NewString,
	}
	for _, p := range catalog {
		if strings.TrimSpace(p.ID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog product id required")
		}
		if p.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s has negative price", p.ID))
		}
		s.catalog[p.ID] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) GetCart(_ context.Context, userID string) (View, error) {
	if strings.TrimSpace(userID) == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "userId is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(s.cartFor(userID)), nil
}

func (s *service) AddItem(_ context.Context, userID, productID string, quantity int) (View, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(productID) == "" {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "userId and productId are required")
	}
	if quantity < 1 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be at least 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.catalog[productID]
	if !ok {
		return View{}, pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	c := s.cartFor(userID)
	for _, it := range c.items {
		if it.productID == productID {
			if err := checkStock(product, it.quantity+quantity); err != nil {
				return View{}, err
			}
			it.quantity += quantity
			return s.view(c), nil
		}
	}
	if err := checkStock(product, quantity); err != nil {
		return View{}, err
	}
	it := &item{id: s.newID(), productID: productID, quantity: quantity, priceAtAdd: product.Price}
	c.items = append(c.items, it)
	s.itemCart[it.id] = c
	return s.view(c), nil
}

func (s *service) UpdateItem(_ context.Context, itemID string, quantity int) (View, error) {
	if quantity < 1 {
		return View{}, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be at least 1")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, it, err := s.lookup(itemID)
	if err != nil {
		return View{}, err
	}
	if err := checkStock(s.catalog[it.productID], quantity); err != nil {
		return View{}, err
	}
	it.quantity = quantity
	return s.view(c), nil
}

func (s *service) RemoveItem(_ context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, it, err := s.lookup(itemID)
	if err != nil {
		return err
	}
	kept := c.items[:0]
	for _, existing := range c.items {
		if existing != it {
			kept = append(kept, existing)
		}
	}
	c.items = kept
	delete(s.itemCart, itemID)
	return nil
}

// ItemOwner reports the user whose cart holds itemID.
func (s *service) ItemOwner(_ context.Context, itemID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, _, err := s.lookup(itemID)
	if err != nil {
		return "", err
	}
	return c.userID, nil
}

func (s *service) ClearCart(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[userID]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found for user: "+userID)
	}
	for _, it := range c.items {
		delete(s.itemCart, it.id)
	}
	c.items = nil
	return nil
}

func (s *service) Products(context.Context) []cart.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.Product, 0, len(s.catalog))
	for _, p := range s.catalog {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *service) cartFor(userID string) *userCart {
	c, ok := s.carts[userID]
	if !ok {
		c = &userCart{id: "cart_" + userID, userID: userID}
		s.carts[userID] = c
	}
	return c
}

func (s *service) lookup(itemID string) (*userCart, *item, error) {
	c, ok := s.itemCart[itemID]
	if ok {
		for _, it := range c.items {
			if it.id == itemID {
				return c, it, nil
			}
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found with id: "+itemID)
}

func (s *service) view(c *userCart) View {
	out := View{CartID: c.id, UserID: c.userID, Items: make([]ItemView, 0, len(c.items)), TotalPrice: decimal.Zero}
	for _, it := range c.items {
		lineTotal := it.priceAtAdd.Mul(decimal.NewFromInt(int64(it.quantity)))
		out.Items = append(out.Items, ItemView{
			CartItemID:  it.id,
			ProductID:   it.productID,
			ProductName: s.catalog[it.productID].Name,
			Quantity:    it.quantity,
			PriceAtAdd:  it.priceAtAdd,
			TotalPrice:  lineTotal,
		})
		out.TotalPrice = out.TotalPrice.Add(lineTotal)
		out.TotalItems += it.quantity
	}
	return out
}

func checkStock(p cart.Product, requested int) error {
	if p.Stock < requested {
		return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf(
			"Insufficient stock for product %s. Requested: %d, Available: %d", p.Name, requested, p.Stock,
		)).WithDetails(map[string]any{"available": p.Stock, "requested": requested})
	}
	return nil
}
