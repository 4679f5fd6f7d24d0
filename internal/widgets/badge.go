package widgets

import "context"

type badgeState struct {
	count int
}

// HeaderBadge shows the total quantity in the cart.
type HeaderBadge struct {
	deps  Deps
	state cell[badgeState]
}

func NewHeaderBadge(deps Deps) (*HeaderBadge, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	b := &HeaderBadge{deps: deps}
	b.state.onChange = deps.OnChange
	return b, nil
}

func (b *HeaderBadge) Mount(ctx context.Context) {
	epoch, ok := b.state.mount(ctx, b.deps.Bus, b.refresh)
	if ok {
		b.refresh(ctx, epoch)
	}
}

func (b *HeaderBadge) Unmount() {
	b.state.unmount()
}

func (b *HeaderBadge) Count() int {
	s, _, _ := b.state.load()
	return s.count
}

// refresh keeps the last count when the cart cannot be read.
func (b *HeaderBadge) refresh(ctx context.Context, epoch uint64) {
	c, err := b.deps.Source.Get(ctx)
	if err != nil {
		logg := b.deps.logg()
		logg.Warn(logg.WithField(ctx, "widget", "header_badge"), "cart read failed")
		return
	}
	b.state.update(epoch, func(badgeState) badgeState {
		return badgeState{count: c.TotalQuantity()}
	})
}
