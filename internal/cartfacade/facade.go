// Package cartfacade is the single entry point for cart reads and mutations.
// Each call decides once whether the guest store or the backend serves it and
// signals the change bus after every successful mutation.
package cartfacade

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

const (
	ModeGuest   = "guest"
	ModeAccount = "account"
)

// Notifier receives the cart changed signal.
type Notifier interface {
	Emit()
}

// Params wires the facade's collaborators. Remote may be nil when only guest
// carts are served.
type Params struct {
	Session Session
	Local   LocalStore
	Remote  RemoteClient
	Bus     Notifier
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

type Facade struct {
	session  Session
	local    LocalStore
	remote   RemoteClient
	bus      Notifier
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
	validate *validator.Validate
}

type addItemInput struct {
	ProductID string `validate:"required"`
	Quantity  int    `validate:"min=1"`
}

// New validates the collaborators and builds a facade.
func New(p Params) (*Facade, error) {
	if p.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session provider required")
	}
	if p.Local == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "guest cart store required")
	}
	if p.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "change bus required")
	}
	logg := p.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Facade{
		session:  p.Session,
		local:    p.Local,
		remote:   p.Remote,
		bus:      p.Bus,
		logg:     logg,
		metrics:  p.Metrics,
		validate: validator.New(),
	}, nil
}

// Mode reports which backend the next call would use.
func (f *Facade) Mode() string {
	if snapshot(f.session).IsAnonymous() {
		return ModeGuest
	}
	return ModeAccount
}

// Get returns the current cart. Guest reads never fail.
func (f *Facade) Get(ctx context.Context) (cart.Cart, error) {
	return f.run(ctx, "get", false, func(ctx context.Context, b Backend) (cart.Cart, error) {
		return b.Get(ctx)
	})
}

// AddItem adds quantity units of product, snapshotting its price on first add.
func (f *Facade) AddItem(ctx context.Context, product cart.Product, quantity int) (cart.Cart, error) {
	if err := f.validateAdd(product, quantity); err != nil {
		f.observe(ctx, "add_item", "", 0, err)
		return cart.Cart{}, err
	}
	return f.run(ctx, "add_item", true, func(ctx context.Context, b Backend) (cart.Cart, error) {
		return b.AddItem(ctx, product, quantity)
	})
}

// UpdateItem sets a line's quantity. Zero or less removes the line.
func (f *Facade) UpdateItem(ctx context.Context, lineID string, quantity int) (cart.Cart, error) {
	if strings.TrimSpace(lineID) == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
		f.observe(ctx, "update_item", "", 0, err)
		return cart.Cart{}, err
	}
	if quantity <= 0 {
		return f.RemoveItem(ctx, lineID)
	}
	return f.run(ctx, "update_item", true, func(ctx context.Context, b Backend) (cart.Cart, error) {
		return b.UpdateItem(ctx, lineID, quantity)
	})
}

// RemoveItem drops a line.
func (f *Facade) RemoveItem(ctx context.Context, lineID string) (cart.Cart, error) {
	if strings.TrimSpace(lineID) == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "line id is required")
		f.observe(ctx, "remove_item", "", 0, err)
		return cart.Cart{}, err
	}
	return f.run(ctx, "remove_item", true, func(ctx context.Context, b Backend) (cart.Cart, error) {
		return b.RemoveItem(ctx, lineID)
	})
}

// Clear empties the current cart.
func (f *Facade) Clear(ctx context.Context) (cart.Cart, error) {
	return f.run(ctx, "clear", true, func(ctx context.Context, b Backend) (cart.Cart, error) {
		return b.Clear(ctx)
	})
}

// ItemCount is the number of distinct lines in the cart, or zero when it
// cannot be read. The header badge shows total quantity instead.
func (f *Facade) ItemCount(ctx context.Context) int {
	c, err := f.Get(ctx)
	if err != nil {
		return 0
	}
	return c.LineCount()
}

// Total is the cart total, or zero when it cannot be read.
func (f *Facade) Total(ctx context.Context) decimal.Decimal {
	c, err := f.Get(ctx)
	if err != nil {
		return decimal.Zero
	}
	return c.TotalAmount
}

// LineForProduct finds the line holding productID in the current cart.
func (f *Facade) LineForProduct(ctx context.Context, productID string) (cart.Line, bool, error) {
	c, err := f.Get(ctx)
	if err != nil {
		return cart.Line{}, false, err
	}
	line, ok := c.LineByProduct(productID)
	return line, ok, nil
}

// DiscardGuestCart removes the guest cart from local storage. It runs on log
// out regardless of the session mode; the guest cart is never merged into an
// account cart.
func (f *Facade) DiscardGuestCart(ctx context.Context) {
	started := time.Now()
	ctx = f.logg.WithCartMode(ctx, ModeGuest)
	f.local.Clear(ctx)
	f.observe(ctx, "discard_guest", ModeGuest, time.Since(started), nil)
	f.bus.Emit()
}

func (f *Facade) run(ctx context.Context, op string, mutates bool, call func(context.Context, Backend) (cart.Cart, error)) (cart.Cart, error) {
	started := time.Now()
	backend, mode, subject, err := f.resolve()
	ctx = f.logg.WithFields(ctx, map[string]any{"operation": op, "cart_mode": mode})
	if subject != "" {
		ctx = f.logg.WithUserID(ctx, subject)
	}
	if err != nil {
		f.observe(ctx, op, mode, time.Since(started), err)
		return cart.Cart{}, err
	}

	result, err := call(ctx, backend)
	f.observe(ctx, op, mode, time.Since(started), err)
	if err != nil {
		return cart.Cart{}, err
	}
	if mutates {
		f.bus.Emit()
	}
	return result, nil
}

// resolve reads the session once and picks the backend for this call.
func (f *Facade) resolve() (Backend, string, string, error) {
	session := snapshot(f.session)
	if session.IsAnonymous() {
		return guestBackend{store: f.local}, ModeGuest, "", nil
	}
	subject := strings.TrimSpace(session.SubjectID())
	if subject == "" {
		return nil, ModeAccount, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "signed in session has no subject")
	}
	if f.remote == nil {
		return nil, ModeAccount, subject, pkgerrors.New(pkgerrors.CodeDependency, "cart backend not configured")
	}
	return accountBackend{client: f.remote, userID: subject}, ModeAccount, subject, nil
}

func (f *Facade) validateAdd(product cart.Product, quantity int) error {
	input := addItemInput{ProductID: strings.TrimSpace(product.ID), Quantity: quantity}
	if err := f.validate.Struct(input); err != nil {
		details := map[string]string{}
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				details[fe.Field()] = fe.Tag()
			}
		}
		msg := "product id is required"
		if _, bad := details["Quantity"]; bad {
			msg = "quantity must be at least 1"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
	}
	if product.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return nil
}

func (f *Facade) observe(ctx context.Context, op, mode string, elapsed time.Duration, err error) {
	f.metrics.ObserveOperation(op, mode, elapsed, err)
	if err != nil {
		ctx = f.logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		f.logg.Warn(ctx, "cart operation failed")
		return
	}
	f.logg.Info(ctx, "cart operation")
}

// snapshot pins a switchable session so one call sees a consistent identity.
func snapshot(s Session) Session {
	if sw, ok := s.(interface{ Current() Session }); ok {
		return sw.Current()
	}
	return s
}
