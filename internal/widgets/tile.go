package widgets

import (
	"context"

	"github.com/angelmondragon/storefront-cart/internal/cart"
)

type tileState struct {
	quantity int
	lineID   string
	err      error
}

// ProductTile shows one product's quantity in the cart with add, increment,
// decrement and remove controls.
type ProductTile struct {
	product cart.Product
	deps    Deps
	state   cell[tileState]
}

// NewProductTile binds a tile to product.
func NewProductTile(product cart.Product, deps Deps) (*ProductTile, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	t := &ProductTile{product: product, deps: deps}
	t.state.onChange = deps.OnChange
	return t, nil
}

func (t *ProductTile) Product() cart.Product {
	return t.product
}

// Mount reads the cart and starts listening for change signals.
func (t *ProductTile) Mount(ctx context.Context) {
	epoch, ok := t.state.mount(ctx, t.deps.Bus, t.refresh)
	if ok {
		t.refresh(ctx, epoch)
	}
}

// Unmount stops listening. Calls still in flight settle without effect.
func (t *ProductTile) Unmount() {
	t.state.unmount()
}

func (t *ProductTile) Quantity() int {
	s, _, _ := t.state.load()
	return s.quantity
}

func (t *ProductTile) LineID() string {
	s, _, _ := t.state.load()
	return s.lineID
}

// CanIncrement is false once the displayed quantity reaches the product's stock.
func (t *ProductTile) CanIncrement() bool {
	s, _, _ := t.state.load()
	return s.quantity < t.product.Stock
}

// Err is the error from the last failed action, if any.
func (t *ProductTile) Err() error {
	s, _, _ := t.state.load()
	return s.err
}

// Add puts one unit of the product into the cart.
func (t *ProductTile) Add(ctx context.Context) error {
	if !t.CanIncrement() {
		return ErrStockLimit
	}
	return t.run(ctx, "add_item",
		func(s tileState) tileState {
			s.quantity++
			return s
		},
		func(ctx context.Context, _ tileState) (cart.Cart, error) {
			return t.deps.Source.AddItem(ctx, t.product, 1)
		},
	)
}

// Increment raises the quantity by one, adding the product when absent.
func (t *ProductTile) Increment(ctx context.Context) error {
	s, _, _ := t.state.load()
	if s.lineID == "" {
		return t.Add(ctx)
	}
	if !t.CanIncrement() {
		return ErrStockLimit
	}
	return t.run(ctx, "update_item",
		func(s tileState) tileState {
			s.quantity++
			return s
		},
		func(ctx context.Context, pre tileState) (cart.Cart, error) {
			return t.deps.Source.UpdateItem(ctx, pre.lineID, pre.quantity+1)
		},
	)
}

// Decrement lowers the quantity by one. At one unit the line is removed.
func (t *ProductTile) Decrement(ctx context.Context) error {
	s, _, _ := t.state.load()
	if s.lineID == "" || s.quantity <= 0 {
		return nil
	}
	if s.quantity == 1 {
		return t.Remove(ctx)
	}
	return t.run(ctx, "update_item",
		func(s tileState) tileState {
			s.quantity--
			return s
		},
		func(ctx context.Context, pre tileState) (cart.Cart, error) {
			return t.deps.Source.UpdateItem(ctx, pre.lineID, pre.quantity-1)
		},
	)
}

// Remove drops the product's line from the cart.
func (t *ProductTile) Remove(ctx context.Context) error {
	s, _, _ := t.state.load()
	if s.lineID == "" {
		return nil
	}
	return t.run(ctx, "remove_item",
		func(s tileState) tileState {
			s.quantity = 0
			return s
		},
		func(ctx context.Context, pre tileState) (cart.Cart, error) {
			return t.deps.Source.RemoveItem(ctx, pre.lineID)
		},
	)
}

func (t *ProductTile) run(
	ctx context.Context,
	op string,
	apply func(tileState) tileState,
	call func(context.Context, tileState) (cart.Cart, error),
) error {
	_, epoch, mounted := t.state.load()
	if !mounted {
		return ErrNotMounted
	}
	logg := t.deps.logg()
	opt := Optimistic[tileState]{
		Load: func() tileState {
			s, _, _ := t.state.load()
			return s
		},
		Store: func(s tileState) bool { return t.state.store(epoch, s) },
		Fail: func(uiErr *UIError) {
			t.state.update(epoch, func(s tileState) tileState {
				s.err = uiErr
				return s
			})
			logg.Warn(logg.WithFields(ctx, map[string]any{
				"widget":     "product_tile",
				"product_id": t.product.ID,
				"operation":  op,
				"reason":     uiErr.Err.Error(),
			}), "optimistic update rolled back")
		},
	}
	return opt.Run(ctx, op,
		func(s tileState) tileState {
			s = apply(s)
			s.err = nil
			return s
		},
		call,
		t.resync,
	)
}

func (t *ProductTile) resync(c cart.Cart, s tileState) tileState {
	line, ok := c.LineByProduct(t.product.ID)
	if !ok {
		s.quantity = 0
		s.lineID = ""
		return s
	}
	s.quantity = line.Quantity
	s.lineID = line.LineID
	return s
}

func (t *ProductTile) refresh(ctx context.Context, epoch uint64) {
	c, err := t.deps.Source.Get(ctx)
	t.state.update(epoch, func(s tileState) tileState {
		if err != nil {
			s.err = NewUIError("get", err)
			return s
		}
		s = t.resync(c, s)
		s.err = nil
		return s
	})
}
