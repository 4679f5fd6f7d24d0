// Package cartbus carries the payload-less "cart changed" signal between the
// facade and every widget showing cart state.
package cartbus

import "sync"

// Listener is invoked once per signal. It receives no cart data and should
// re-read the cart itself.
type Listener func()

// Bus is a synchronous publish/subscribe channel. One instance is shared by
// the composition root.
type Bus struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []subscription
	onEmit    func(listeners int)
}

type subscription struct {
	id uint64
	fn Listener
}

// Option customises a Bus.
type Option func(*Bus)

// WithEmitHook registers fn to run on every Emit with the number of listeners
// notified.
func WithEmitHook(fn func(listeners int)) Option {
	return func(b *Bus) {
		b.onEmit = fn
	}
}

func New(opts ...Option) *Bus {
	b := &Bus{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// Emit calls every listener registered at the time of the call, in
// registration order. Subscriptions changed by a listener take effect on the
// next Emit. A signal with no listeners is dropped.
func (b *Bus) Emit() {
	b.mu.Lock()
	snapshot := make([]Listener, len(b.listeners))
	for i, sub := range b.listeners {
		snapshot[i] = sub.fn
	}
	hook := b.onEmit
	b.mu.Unlock()

	if hook != nil {
		hook(len(snapshot))
	}
	for _, fn := range snapshot {
		fn()
	}
}

// Len reports the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.listeners {
		if sub.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}
