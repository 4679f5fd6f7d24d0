// Package widgets holds the cart-aware view models: each one reads the cart
// through the facade on mount and on every change signal, applies its own
// optimistic guess for user actions, and rolls back when the call fails.
package widgets

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/cartbus"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

var (
	ErrNotMounted  = errors.New("widget is not mounted")
	ErrStockLimit  = errors.New("stock limit reached")
	ErrUnknownLine = errors.New("line is not in the cart")
)

// CartSource is the facade surface widgets depend on.
type CartSource interface {
	Get(ctx context.Context) (cart.Cart, error)
	AddItem(ctx context.Context, product cart.Product, quantity int) (cart.Cart, error)
	UpdateItem(ctx context.Context, lineID string, quantity int) (cart.Cart, error)
	RemoveItem(ctx context.Context, lineID string) (cart.Cart, error)
	Clear(ctx context.Context) (cart.Cart, error)
}

// Signals is the change bus surface widgets depend on.
type Signals interface {
	Subscribe(fn cartbus.Listener) (unsubscribe func())
}

// Deps are shared by every widget.
type Deps struct {
	Source CartSource
	Bus    Signals
	Logger *logger.Logger
	// OnChange runs after any change to the widget's display state.
	OnChange func()
}

func (d Deps) validate() error {
	if d.Source == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "cart source required")
	}
	if d.Bus == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "change bus required")
	}
	return nil
}

func (d Deps) logg() *logger.Logger {
	if d.Logger == nil {
		return logger.Nop()
	}
	return d.Logger
}

// UIError is what a widget displays after a failed action.
type UIError struct {
	Op      string
	Message string
	Err     error
}

func NewUIError(op string, err error) *UIError {
	return &UIError{Op: op, Message: pkgerrors.PublicMessage(err), Err: err}
}

func (e *UIError) Error() string {
	return e.Message
}

func (e *UIError) Unwrap() error {
	return e.Err
}
