package widgets

import (
	"context"
	"sync"
)

// cell guards a widget's display state across mounts. Writes carry the epoch
// they were started in and are dropped once the widget has been unmounted or
// remounted since.
type cell[T any] struct {
	mu          sync.Mutex
	value       T
	epoch       uint64
	mounted     bool
	unsubscribe func()
	onChange    func()
}

func (c *cell[T]) load() (T, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.epoch, c.mounted
}

func (c *cell[T]) store(epoch uint64, v T) bool {
	return c.update(epoch, func(T) T { return v })
}

func (c *cell[T]) update(epoch uint64, fn func(T) T) bool {
	c.mu.Lock()
	if !c.mounted || c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.value = fn(c.value)
	onChange := c.onChange
	c.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return true
}

// mount starts a new epoch and subscribes refresh to bus. It reports false
// when the widget was already mounted.
func (c *cell[T]) mount(ctx context.Context, bus Signals, refresh func(ctx context.Context, epoch uint64)) (uint64, bool) {
	c.mu.Lock()
	if c.mounted {
		epoch := c.epoch
		c.mu.Unlock()
		return epoch, false
	}
	c.epoch++
	c.mounted = true
	epoch := c.epoch
	c.mu.Unlock()

	unsubscribe := bus.Subscribe(func() { refresh(ctx, epoch) })

	c.mu.Lock()
	if c.mounted && c.epoch == epoch {
		c.unsubscribe = unsubscribe
		unsubscribe = nil
	}
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	return epoch, true
}

func (c *cell[T]) unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.epoch++
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
