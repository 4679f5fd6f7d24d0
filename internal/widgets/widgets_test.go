package widgets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/internal/cartbus"
	"github.com/angelmondragon/storefront-cart/internal/cartfacade"
	"github.com/angelmondragon/storefront-cart/internal/guestcart"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/kv"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// stubSource serves a fixed cart and lets tests hold mutations in flight.
type stubSource struct {
	mu      sync.Mutex
	cart    cart.Cart
	getErr  error
	calls   []string
	entered chan string
	release chan error
}

func newStubSource(c cart.Cart) *stubSource {
	return &stubSource{cart: c}
}

// hold makes every mutation block until a value is sent on release.
func (s *stubSource) hold() {
	s.entered = make(chan string, 1)
	s.release = make(chan error)
}

func (s *stubSource) setCart(c cart.Cart) {
	s.mu.Lock()
	s.cart = c
	s.mu.Unlock()
}

func (s *stubSource) Get(context.Context) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return cart.Cart{}, s.getErr
	}
	return s.cart.Clone(), nil
}

func (s *stubSource) mutate(op string) (cart.Cart, error) {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	entered, release := s.entered, s.release
	s.mu.Unlock()

	if entered != nil {
		entered <- op
		if err := <-release; err != nil {
			return cart.Cart{}, err
		}
	}
	return s.Get(context.Background())
}

func (s *stubSource) AddItem(context.Context, cart.Product, int) (cart.Cart, error) {
	return s.mutate("add")
}

func (s *stubSource) UpdateItem(context.Context, string, int) (cart.Cart, error) {
	return s.mutate("update")
}

func (s *stubSource) RemoveItem(context.Context, string) (cart.Cart, error) {
	return s.mutate("remove")
}

func (s *stubSource) Clear(context.Context) (cart.Cart, error) {
	return s.mutate("clear")
}

func (s *stubSource) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func waitEntered(t *testing.T, s *stubSource) string {
	t.Helper()
	select {
	case op := <-s.entered:
		return op
	case <-time.After(2 * time.Second):
		t.Fatalf("mutation never reached the source")
		return ""
	}
}

func apple(stock int) cart.Product {
	return cart.Product{ID: "1", Name: "Apples", Price: decimal.NewFromInt(50), Stock: stock}
}

func cartWith(qty int) cart.Cart {
	if qty == 0 {
		return cart.Empty()
	}
	c := cart.Cart{Items: []cart.Line{{LineID: "l1", ProductID: "1", ProductName: "Apples", Quantity: qty, UnitPrice: decimal.NewFromInt(50)}}}
	c.Recompute()
	return c
}

func mountTile(t *testing.T, source CartSource, bus Signals, stock int) *ProductTile {
	t.Helper()
	tile, err := NewProductTile(apple(stock), Deps{Source: source, Bus: bus, Logger: logger.Nop()})
	require.NoError(t, err)
	tile.Mount(context.Background())
	t.Cleanup(tile.Unmount)
	return tile
}

func TestConstructorsRequireDeps(t *testing.T) {
	t.Parallel()
	_, err := NewProductTile(apple(1), Deps{Bus: cartbus.New()})
	require.Error(t, err)
	_, err = NewCartDrawer(Deps{Source: newStubSource(cart.Empty())})
	require.Error(t, err)
	_, err = NewHeaderBadge(Deps{})
	require.Error(t, err)
}

func TestTileMountReadsAndFollowsSignals(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(2))
	bus := cartbus.New()
	tile := mountTile(t, source, bus, 10)

	assert.Equal(t, 2, tile.Quantity())
	assert.Equal(t, "l1", tile.LineID())
	assert.Equal(t, 1, bus.Len())

	source.setCart(cartWith(4))
	bus.Emit()
	assert.Equal(t, 4, tile.Quantity())

	tile.Unmount()
	assert.Equal(t, 0, bus.Len())
	source.setCart(cartWith(7))
	bus.Emit()
	assert.Equal(t, 4, tile.Quantity(), "unmounted tiles ignore signals")
}

func TestTileOptimisticIncrementThenResync(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(2))
	tile := mountTile(t, source, cartbus.New(), 10)
	source.hold()

	done := make(chan error, 1)
	go func() { done <- tile.Increment(context.Background()) }()

	assert.Equal(t, "update", waitEntered(t, source))
	assert.Equal(t, 3, tile.Quantity(), "guess is visible before the call settles")

	source.setCart(cartWith(5))
	source.release <- nil
	require.NoError(t, <-done)
	assert.Equal(t, 5, tile.Quantity(), "success re-syncs to the returned line")
	assert.NoError(t, tile.Err())
}

func TestTileRollbackOnFailure(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(2))
	changes := 0
	tile, err := NewProductTile(apple(10), Deps{
		Source:   source,
		Bus:      cartbus.New(),
		OnChange: func() { changes++ },
	})
	require.NoError(t, err)
	tile.Mount(context.Background())
	source.hold()

	done := make(chan error, 1)
	go func() { done <- tile.Increment(context.Background()) }()
	waitEntered(t, source)
	assert.Equal(t, 3, tile.Quantity())

	source.release <- pkgerrors.New(pkgerrors.CodeConflict, "Insufficient stock for product Apples")
	err = <-done

	var uiErr *UIError
	require.True(t, errors.As(err, &uiErr))
	assert.Equal(t, "Insufficient stock for product Apples", uiErr.Message)
	assert.Equal(t, 2, tile.Quantity(), "failure restores the pre-mutation value")
	require.Error(t, tile.Err())
	assert.Equal(t, uiErr.Message, tile.Err().Error())
	assert.Equal(t, []string{"update"}, source.callLog(), "failures are not retried")
	assert.GreaterOrEqual(t, changes, 3)
}

func TestTileStockCeiling(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(3))
	tile := mountTile(t, source, cartbus.New(), 3)

	assert.False(t, tile.CanIncrement())
	assert.ErrorIs(t, tile.Increment(context.Background()), ErrStockLimit)
	assert.ErrorIs(t, tile.Add(context.Background()), ErrStockLimit)
	assert.Empty(t, source.callLog())
}

func TestTileAddWhenAbsent(t *testing.T) {
	t.Parallel()
	source := newStubSource(cart.Empty())
	tile := mountTile(t, source, cartbus.New(), 3)
	assert.Equal(t, 0, tile.Quantity())

	source.setCart(cartWith(1))
	require.NoError(t, tile.Increment(context.Background()))

	assert.Equal(t, []string{"add"}, source.callLog())
	assert.Equal(t, 1, tile.Quantity())
	assert.Equal(t, "l1", tile.LineID())
}

func TestTileDecrementAtOneRemoves(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(1))
	tile := mountTile(t, source, cartbus.New(), 3)

	source.setCart(cart.Empty())
	require.NoError(t, tile.Decrement(context.Background()))

	assert.Equal(t, []string{"remove"}, source.callLog())
	assert.Equal(t, 0, tile.Quantity())
	assert.Equal(t, "", tile.LineID())

	require.NoError(t, tile.Decrement(context.Background()), "nothing left to decrement")
	assert.Len(t, source.callLog(), 1)
}

func TestTileDecrementAboveOneUpdates(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(3))
	tile := mountTile(t, source, cartbus.New(), 5)

	source.setCart(cartWith(2))
	require.NoError(t, tile.Decrement(context.Background()))
	assert.Equal(t, []string{"update"}, source.callLog())
	assert.Equal(t, 2, tile.Quantity())
}

func TestTileIgnoresLateSettlementAfterUnmount(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(2))
	changes := 0
	var mu sync.Mutex
	tile, err := NewProductTile(apple(10), Deps{
		Source: source,
		Bus:    cartbus.New(),
		OnChange: func() {
			mu.Lock()
			changes++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	tile.Mount(context.Background())
	source.hold()

	done := make(chan error, 1)
	go func() { done <- tile.Increment(context.Background()) }()
	waitEntered(t, source)
	tile.Unmount()

	mu.Lock()
	before := changes
	mu.Unlock()

	source.release <- errors.New("network down")
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, before, changes, "no state change after unmount")
	assert.NoError(t, tile.Err())
	assert.ErrorIs(t, tile.Increment(context.Background()), ErrNotMounted)
}

func TestTileShowsReadFailure(t *testing.T) {
	t.Parallel()
	source := newStubSource(cart.Empty())
	source.getErr = pkgerrors.New(pkgerrors.CodeUnauthorized, "token expired")
	tile := mountTile(t, source, cartbus.New(), 3)

	require.Error(t, tile.Err())
	assert.Equal(t, "please sign in again", tile.Err().Error())
}

func TestDrawerOptimisticUpdatesAndRollback(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(2))
	drawer, err := NewCartDrawer(Deps{Source: source, Bus: cartbus.New()})
	require.NoError(t, err)
	assert.True(t, drawer.View().Loading)
	drawer.Mount(context.Background())
	t.Cleanup(drawer.Unmount)

	view := drawer.View()
	assert.False(t, view.Loading)
	require.Len(t, view.Lines, 1)
	assert.True(t, view.TotalAmount.Equal(decimal.NewFromInt(100)))

	source.hold()
	done := make(chan error, 1)
	go func() { done <- drawer.Increment(context.Background(), "l1") }()
	waitEntered(t, source)

	view = drawer.View()
	assert.Equal(t, 3, view.TotalQuantity)
	assert.True(t, view.TotalAmount.Equal(decimal.NewFromInt(150)))

	source.release <- errors.New("connection reset")
	require.Error(t, <-done)
	view = drawer.View()
	assert.Equal(t, 2, view.TotalQuantity)
	assert.True(t, view.TotalAmount.Equal(decimal.NewFromInt(100)))
	require.Error(t, view.Err)
	assert.Equal(t, "something went wrong", view.Err.Error())
}

func TestDrawerDecrementRemoveAndClear(t *testing.T) {
	t.Parallel()
	source := newStubSource(cartWith(1))
	bus := cartbus.New()
	drawer, err := NewCartDrawer(Deps{Source: source, Bus: bus})
	require.NoError(t, err)
	drawer.Mount(context.Background())
	t.Cleanup(drawer.Unmount)

	assert.ErrorIs(t, drawer.Increment(context.Background(), "missing"), ErrUnknownLine)

	source.setCart(cart.Empty())
	require.NoError(t, drawer.Decrement(context.Background(), "l1"))
	assert.Equal(t, []string{"remove"}, source.callLog())
	assert.Empty(t, drawer.View().Lines)

	source.setCart(cartWith(2))
	bus.Emit()
	require.Len(t, drawer.View().Lines, 1)

	source.setCart(cart.Empty())
	require.NoError(t, drawer.Clear(context.Background()))
	assert.Equal(t, []string{"remove", "clear"}, source.callLog())
	assert.Empty(t, drawer.View().Lines)
	assert.True(t, drawer.View().TotalAmount.IsZero())
}

func TestDrawerRespectsLineStock(t *testing.T) {
	t.Parallel()
	c := cartWith(2)
	c.Items[0].Stock = 2
	source := newStubSource(c)
	drawer, err := NewCartDrawer(Deps{Source: source, Bus: cartbus.New()})
	require.NoError(t, err)
	drawer.Mount(context.Background())
	t.Cleanup(drawer.Unmount)

	assert.ErrorIs(t, drawer.Increment(context.Background(), "l1"), ErrStockLimit)
	assert.Empty(t, source.callLog())
}

func TestWidgetsStayInSyncThroughFacade(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bus := cartbus.New()
	facade, err := cartfacade.New(cartfacade.Params{
		Session: cartfacade.Anonymous(),
		Local:   guestcart.New(kv.NewMemory(), logger.Nop()),
		Bus:     bus,
	})
	require.NoError(t, err)
	deps := Deps{Source: facade, Bus: bus}

	apples, err := NewProductTile(apple(10), deps)
	require.NoError(t, err)
	bread, err := NewProductTile(cart.Product{ID: "2", Name: "Bread", Price: decimal.NewFromInt(30), Stock: 1}, deps)
	require.NoError(t, err)
	drawer, err := NewCartDrawer(deps)
	require.NoError(t, err)
	badge, err := NewHeaderBadge(deps)
	require.NoError(t, err)
	for _, w := range []interface {
		Mount(context.Context)
		Unmount()
	}{apples, bread, drawer, badge} {
		w.Mount(ctx)
		t.Cleanup(w.Unmount)
	}

	require.NoError(t, apples.Add(ctx))
	require.NoError(t, apples.Increment(ctx))
	require.NoError(t, bread.Add(ctx))
	assert.False(t, bread.CanIncrement())

	assert.Equal(t, 2, apples.Quantity())
	assert.Equal(t, 3, badge.Count())
	view := drawer.View()
	require.Len(t, view.Lines, 2)
	assert.True(t, view.TotalAmount.Equal(decimal.NewFromInt(130)))

	require.NoError(t, drawer.Remove(ctx, apples.LineID()))
	assert.Equal(t, 0, apples.Quantity(), "tile refreshed from the drawer's signal")
	assert.Equal(t, 1, badge.Count())

	require.NoError(t, drawer.Clear(ctx))
	assert.Equal(t, 0, bread.Quantity())
	assert.Equal(t, 0, badge.Count())
}

func TestOptimisticHelper(t *testing.T) {
	t.Parallel()

	state := 1
	var failed *UIError
	opt := Optimistic[int]{
		Load:  func() int { return state },
		Store: func(v int) bool { state = v; return true },
		Fail:  func(e *UIError) { failed = e },
	}

	var seen int
	err := opt.Run(context.Background(), "bump",
		func(v int) int { return v + 1 },
		func(_ context.Context, pre int) (cart.Cart, error) {
			seen = state
			assert.Equal(t, 1, pre)
			return cartWith(7), nil
		},
		func(c cart.Cart, _ int) int { return c.TotalQuantity() },
	)
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
	assert.Equal(t, 7, state)
	assert.Nil(t, failed)

	err = opt.Run(context.Background(), "bump",
		func(v int) int { return v + 1 },
		func(context.Context, int) (cart.Cart, error) { return cart.Cart{}, errors.New("boom") },
		nil,
	)
	require.Error(t, err)
	assert.Equal(t, 7, state)
	require.NotNil(t, failed)
	assert.Equal(t, "bump", failed.Op)

	closed := Optimistic[int]{
		Load:  func() int { return 0 },
		Store: func(int) bool { return false },
	}
	called := false
	err = closed.Run(context.Background(), "bump",
		func(v int) int { return v },
		func(context.Context, int) (cart.Cart, error) { called = true; return cart.Cart{}, nil },
		nil,
	)
	assert.ErrorIs(t, err, ErrNotMounted)
	assert.False(t, called)
}
