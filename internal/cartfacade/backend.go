package cartfacade

import (
	"context"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

// Backend is the cart capability the facade routes to. Callers never learn
// which variant served them.
type Backend interface {
	Get(ctx context.Context) (cart.Cart, error)
	AddItem(ctx context.Context, product cart.Product, quantity int) (cart.Cart, error)
	UpdateItem(ctx context.Context, lineID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, lineID string) (cart.Cart, error)
	Clear(ctx context.Context) (cart.Cart, error)
}

// LocalStore is the guest cart store.
type LocalStore interface {
	Read(ctx context.Context) cart.Cart
	AddLine(ctx context.Context, product cart.Product, quantity int) cart.Cart
	UpdateLine(ctx context.Context, lineID string, quantity int) cart.Cart
	RemoveLine(ctx context.Context, lineID string) cart.Cart
	Clear(ctx context.Context)
}

// RemoteClient is the backend cart client.
type RemoteClient interface {
	Fetch(ctx context.Context, userID string) (cart.Cart, error)
	AddLine(ctx context.Context, userID, productID string, quantity int) (cart.Cart, error)
	UpdateLine(ctx context.Context, lineID string, quantity int) (cart.Cart, error)
	RemoveLine(ctx context.Context, userID, lineID string) (cart.Cart, error)
	Clear(ctx context.Context, userID string) (cart.Cart, error)
}

type guestBackend struct {
	store LocalStore
}

func (g guestBackend) Get(ctx context.Context) (cart.Cart, error) {
	return g.store.Read(ctx), nil
}

func (g guestBackend) AddItem(ctx context.Context, product cart.Product, quantity int) (cart.Cart, error) {
	return g.store.AddLine(ctx, product, quantity), nil
}

func (g guestBackend) UpdateItem(ctx context.Context, lineID string, quantity int) (cart.Cart, error) {
	return g.store.UpdateLine(ctx, lineID, quantity), nil
}

func (g guestBackend) RemoveItem(ctx context.Context, lineID string) (cart.Cart, error) {
	return g.store.RemoveLine(ctx, lineID), nil
}

func (g guestBackend) Clear(ctx context.Context) (cart.Cart, error) {
	g.store.Clear(ctx)
	return cart.Empty(), nil
}

type accountBackend struct {
	client RemoteClient
	userID string
}

func (a accountBackend) Get(ctx context.Context) (cart.Cart, error) {
	return a.client.Fetch(ctx, a.userID)
}

func (a accountBackend) AddItem(ctx context.Context, product cart.Product, quantity int) (cart.Cart, error) {
	return a.client.AddLine(ctx, a.userID, product.ID, quantity)
}

func (a accountBackend) UpdateItem(ctx context.Context, lineID string, quantity int) (cart.Cart, error) {
	return a.client.UpdateLine(ctx, lineID, quantity)
}

func (a accountBackend) RemoveItem(ctx context.Context, lineID string) (cart.Cart, error) {
	return a.client.RemoveLine(ctx, a.userID, lineID)
}

func (a accountBackend) Clear(ctx context.Context) (cart.Cart, error) {
	return a.client.Clear(ctx, a.userID)
}
