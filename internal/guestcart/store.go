// Package guestcart persists the anonymous shopper's cart in client-local
// key-value storage. Every operation is total: storage failures are logged and
// the caller still receives a usable cart.
package guestcart

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/kv"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// DefaultKey is the storage key holding the serialized guest cart.
const DefaultKey = "guestCart"

// seqSuffix names the key holding the last issued line sequence. It outlives
// Clear so line ids are never reused, even across processes.
const seqSuffix = ":lineSeq"

// Store owns the guest cart's durable representation.
type Store struct {
	storage kv.Storage
	logg    *logger.Logger
	key     string

	mu sync.Mutex
	// lastSeq covers the window where the sequence key cannot be written.
	lastSeq uint64
}

// Option customises a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithConfig applies the storage section of the service config.
func WithConfig(cfg config.StorageConfig) Option {
	return WithKey(cfg.GuestCartKey)
}

// New builds a guest cart store on top of storage.
func New(storage kv.Storage, logg *logger.Logger, opts ...Option) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Store{storage: storage, logg: logg, key: DefaultKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key in use.
func (s *Store) Key() string {
	return s.key
}

// Read returns the persisted cart, or an empty cart when nothing usable is stored.
func (s *Store) Read(ctx context.Context) cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Write persists c verbatim.
func (s *Store) Write(ctx context.Context, c cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write(ctx, c)
}

// Clear removes the persisted cart. The line sequence is kept.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.Remove(ctx, s.key); err != nil {
		s.logStorageFailure(ctx, "guest cart clear failed", err)
	}
}

// AddLine increments the line already holding product, or appends a new line
// priced at product.Price. A quantity below 1 adds a single unit.
func (s *Store) AddLine(ctx context.Context, product cart.Product, quantity int) cart.Cart {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.read(ctx)
	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == product.ID {
			c.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		c.NextLineSeq = max(c.NextLineSeq, s.lastSeq, s.readSeq(ctx)) + 1
		s.lastSeq = c.NextLineSeq
		s.writeSeq(ctx, c.NextLineSeq)
		c.Items = append(c.Items, cart.Line{
			LineID:      lineID(c.NextLineSeq, product.ID),
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    quantity,
			UnitPrice:   product.Price,
			Stock:       product.Stock,
		})
	}
	c.Recompute()
	s.write(ctx, c)
	return c
}

// UpdateLine sets the quantity of lineID. A quantity of zero or less removes
// the line. Unknown ids leave the cart unchanged.
func (s *Store) UpdateLine(ctx context.Context, lineID string, quantity int) cart.Cart {
	if quantity <= 0 {
		return s.RemoveLine(ctx, lineID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.read(ctx)
	for i := range c.Items {
		if c.Items[i].LineID == lineID {
			c.Items[i].Quantity = quantity
			c.Recompute()
			s.write(ctx, c)
			return c
		}
	}
	return c
}

// RemoveLine drops lineID. Unknown ids leave the cart unchanged.
func (s *Store) RemoveLine(ctx context.Context, lineID string) cart.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.read(ctx)
	kept := make([]cart.Line, 0, len(c.Items))
	for _, line := range c.Items {
		if line.LineID != lineID {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(c.Items) {
		return c
	}
	c.Items = kept
	c.Recompute()
	s.write(ctx, c)
	return c
}

func (s *Store) read(ctx context.Context) cart.Cart {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logStorageFailure(ctx, "guest cart read failed", err)
		return cart.Empty()
	}
	if !ok || raw == "" {
		return cart.Empty()
	}
	var c cart.Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "storage_key", s.key), "guest cart unreadable, starting empty")
		return cart.Empty()
	}
	c.Recompute()
	if err := c.Validate(); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"storage_key": s.key, "reason": err.Error()}), "guest cart invalid, starting empty")
		return cart.Empty()
	}
	return c
}

func (s *Store) write(ctx context.Context, c cart.Cart) {
	if c.Items == nil {
		c.Items = []cart.Line{}
	}
	payload, err := json.Marshal(c)
	if err != nil {
		s.logStorageFailure(ctx, "guest cart encode failed", err)
		return
	}
	if err := s.storage.Set(ctx, s.key, string(payload)); err != nil {
		s.logStorageFailure(ctx, "guest cart write failed", err)
	}
}

func (s *Store) seqKey() string {
	return s.key + seqSuffix
}

func (s *Store) readSeq(ctx context.Context) uint64 {
	raw, ok, err := s.storage.Get(ctx, s.seqKey())
	if err != nil {
		s.logStorageFailure(ctx, "guest line sequence read failed", err)
		return 0
	}
	if !ok {
		return 0
	}
	seq, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "storage_key", s.seqKey()), "guest line sequence unreadable")
		return 0
	}
	return seq
}

func (s *Store) writeSeq(ctx context.Context, seq uint64) {
	if err := s.storage.Set(ctx, s.seqKey(), strconv.FormatUint(seq, 10)); err != nil {
		s.logStorageFailure(ctx, "guest line sequence write failed", err)
	}
}

func (s *Store) logStorageFailure(ctx context.Context, msg string, err error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"storage_key": s.key,
		"error_code":  string(pkgerrors.CodeStorage),
	})
	s.logg.Error(ctx, msg, err)
}

func lineID(seq uint64, productID string) string {
	return fmt.Sprintf("guest-%d-%s", seq, productID)
}
