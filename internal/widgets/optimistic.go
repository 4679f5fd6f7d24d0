package widgets

import (
	"context"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

// Optimistic runs one user action against a widget's state: the guess is
// shown before the call settles, a failure restores the previous state, and a
// success re-syncs from the cart the call returned. Nothing is retried.
type Optimistic[T any] struct {
	// Load returns the current state.
	Load func() T
	// Store replaces the state. It reports false when the widget no longer
	// accepts updates, for example after unmount.
	Store func(T) bool
	// Fail presents the error after a rollback.
	Fail func(*UIError)
}

// Run applies the guess, awaits call and settles the state. The returned
// error is a *UIError when call failed.
func (o Optimistic[T]) Run(
	ctx context.Context,
	op string,
	apply func(T) T,
	call func(ctx context.Context, pre T) (cart.Cart, error),
	resync func(cart.Cart, T) T,
) error {
	pre := o.Load()
	if !o.Store(apply(pre)) {
		return ErrNotMounted
	}

	result, err := call(ctx, pre)
	if err != nil {
		uiErr := NewUIError(op, err)
		if o.Store(pre) && o.Fail != nil {
			o.Fail(uiErr)
		}
		return uiErr
	}
	if resync != nil {
		o.Store(resync(result, o.Load()))
	}
	return nil
}
