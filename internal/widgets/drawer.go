package widgets

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

// DrawerView is what the cart drawer renders.
type DrawerView struct {
	Lines         []cart.Line
	TotalQuantity int
	TotalAmount   decimal.Decimal
	Err           error
	Loading       bool
}

type drawerState struct {
	cart    cart.Cart
	err     error
	loading bool
}

// CartDrawer lists every line with per-line quantity controls.
type CartDrawer struct {
	deps  Deps
	state cell[drawerState]
}

func NewCartDrawer(deps Deps) (*CartDrawer, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	d := &CartDrawer{deps: deps}
	d.state.value = drawerState{cart: cart.Empty(), loading: true}
	d.state.onChange = deps.OnChange
	return d, nil
}

func (d *CartDrawer) Mount(ctx context.Context) {
	epoch, ok := d.state.mount(ctx, d.deps.Bus, d.refresh)
	if ok {
		d.refresh(ctx, epoch)
	}
}

func (d *CartDrawer) Unmount() {
	d.state.unmount()
}

// View returns a copy of the current display state.
func (d *CartDrawer) View() DrawerView {
	s, _, _ := d.state.load()
	c := s.cart.Clone()
	return DrawerView{
		Lines:         c.Items,
		TotalQuantity: c.TotalQuantity(),
		TotalAmount:   c.TotalAmount,
		Err:           s.err,
		Loading:       s.loading,
	}
}

// Increment raises lineID's quantity by one, up to the line's known stock.
func (d *CartDrawer) Increment(ctx context.Context, lineID string) error {
	line, err := d.line(lineID)
	if err != nil {
		return err
	}
	if line.Stock > 0 && line.Quantity >= line.Stock {
		return ErrStockLimit
	}
	return d.run(ctx, "update_item",
		func(c cart.Cart) cart.Cart { return withQuantity(c, lineID, line.Quantity+1) },
		func(ctx context.Context) (cart.Cart, error) {
			return d.deps.Source.UpdateItem(ctx, lineID, line.Quantity+1)
		},
	)
}

// Decrement lowers lineID's quantity by one, removing the line at one unit.
func (d *CartDrawer) Decrement(ctx context.Context, lineID string) error {
	line, err := d.line(lineID)
	if err != nil {
		return err
	}
	if line.Quantity <= 1 {
		return d.Remove(ctx, lineID)
	}
	return d.run(ctx, "update_item",
		func(c cart.Cart) cart.Cart { return withQuantity(c, lineID, line.Quantity-1) },
		func(ctx context.Context) (cart.Cart, error) {
			return d.deps.Source.UpdateItem(ctx, lineID, line.Quantity-1)
		},
	)
}

func (d *CartDrawer) Remove(ctx context.Context, lineID string) error {
	if _, err := d.line(lineID); err != nil {
		return err
	}
	return d.run(ctx, "remove_item",
		func(c cart.Cart) cart.Cart { return withQuantity(c, lineID, 0) },
		func(ctx context.Context) (cart.Cart, error) {
			return d.deps.Source.RemoveItem(ctx, lineID)
		},
	)
}

func (d *CartDrawer) Clear(ctx context.Context) error {
	return d.run(ctx, "clear",
		func(cart.Cart) cart.Cart { return cart.Empty() },
		func(ctx context.Context) (cart.Cart, error) {
			return d.deps.Source.Clear(ctx)
		},
	)
}

func (d *CartDrawer) line(lineID string) (cart.Line, error) {
	s, _, mounted := d.state.load()
	if !mounted {
		return cart.Line{}, ErrNotMounted
	}
	line, ok := s.cart.LineByID(lineID)
	if !ok {
		return cart.Line{}, ErrUnknownLine
	}
	return line, nil
}

func (d *CartDrawer) run(
	ctx context.Context,
	op string,
	guess func(cart.Cart) cart.Cart,
	call func(context.Context) (cart.Cart, error),
) error {
	_, epoch, mounted := d.state.load()
	if !mounted {
		return ErrNotMounted
	}
	logg := d.deps.logg()
	opt := Optimistic[drawerState]{
		Load: func() drawerState {
			s, _, _ := d.state.load()
			return s
		},
		Store: func(s drawerState) bool { return d.state.store(epoch, s) },
		Fail: func(uiErr *UIError) {
			d.state.update(epoch, func(s drawerState) drawerState {
				s.err = uiErr
				return s
			})
			logg.Warn(logg.WithFields(ctx, map[string]any{
				"widget":    "cart_drawer",
				"operation": op,
				"reason":    uiErr.Err.Error(),
			}), "optimistic update rolled back")
		},
	}
	return opt.Run(ctx, op,
		func(s drawerState) drawerState {
			s.cart = guess(s.cart.Clone())
			s.err = nil
			return s
		},
		func(ctx context.Context, _ drawerState) (cart.Cart, error) {
			return call(ctx)
		},
		func(c cart.Cart, s drawerState) drawerState {
			s.cart = c.Clone()
			return s
		},
	)
}

func (d *CartDrawer) refresh(ctx context.Context, epoch uint64) {
	c, err := d.deps.Source.Get(ctx)
	d.state.update(epoch, func(s drawerState) drawerState {
		s.loading = false
		if err != nil {
			s.err = NewUIError("get", err)
			return s
		}
		s.cart = c.Clone()
		s.err = nil
		return s
	})
}

// withQuantity sets lineID's quantity on a private copy of c, dropping the
// line at zero, and recomputes totals for display.
func withQuantity(c cart.Cart, lineID string, quantity int) cart.Cart {
	kept := make([]cart.Line, 0, len(c.Items))
	for _, line := range c.Items {
		if line.LineID == lineID {
			if quantity <= 0 {
				continue
			}
			line.Quantity = quantity
		}
		kept = append(kept, line)
	}
	c.Items = kept
	c.Recompute()
	return c
}
