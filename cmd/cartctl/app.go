package main

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cartbus"
	"github.com/angelmondragon/storefront-cart/internal/cartclient"
	"github.com/angelmondragon/storefront-cart/internal/cartfacade"
	"github.com/angelmondragon/storefront-cart/internal/guestcart"
	"github.com/angelmondragon/storefront-cart/pkg/auth"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/kv"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

const mintedTokenTTL = time.Hour

// app is one process's cart stack: a single bus, store and facade shared by
// every widget.
type app struct {
	cfg     *config.Config
	logg    *logger.Logger
	store   kv.Store
	bus     *cartbus.Bus
	session *cartfacade.SwitchableSession
	facade  *cartfacade.Facade
}

func newApp(ctx context.Context, cfg *config.Config, opts options, logg *logger.Logger, m *metrics.CartMetrics) (*app, error) {
	session, token, err := resolveSession(cfg, opts, time.Now())
	if err != nil {
		return nil, err
	}

	client, err := cartclient.New(cfg.Backend.BaseURL, logg,
		cartclient.WithTimeout(cfg.Backend.Timeout),
		cartclient.WithBearerToken(token),
	)
	if err != nil {
		return nil, err
	}

	store, err := kv.Open(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}

	bus := cartbus.New(cartbus.WithEmitHook(func(int) { m.IncSignal() }))
	switchable := cartfacade.NewSwitchableSession(session)
	facade, err := cartfacade.New(cartfacade.Params{
		Session: switchable,
		Local:   guestcart.New(store, logg, guestcart.WithConfig(cfg.Storage)),
		Remote:  client,
		Bus:     bus,
		Logger:  logg,
		Metrics: m,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logg:    logg,
		store:   store,
		bus:     bus,
		session: switchable,
		facade:  facade,
	}, nil
}

// resolveSession prefers an access token over a bare user id. With a signing
// secret configured, a bare user id gets a freshly minted token so the backend
// accepts its requests.
func resolveSession(cfg *config.Config, opts options, now time.Time) (cartfacade.Session, string, error) {
	token := firstNonEmpty(opts.token, cfg.Auth.AccessToken)
	user := firstNonEmpty(opts.user, cfg.Auth.UserID)

	switch {
	case token != "":
		session, err := cartfacade.FromAccessToken(cfg.Auth, token)
		if err != nil {
			return nil, "", err
		}
		return session, token, nil
	case user != "":
		if cfg.Auth.JWTSecret == "" {
			return cartfacade.Authenticated(user), "", nil
		}
		minted, err := auth.MintAccessToken(cfg.Auth, now, user, mintedTokenTTL)
		if err != nil {
			return nil, "", err
		}
		return cartfacade.Authenticated(user), minted, nil
	default:
		return cartfacade.Anonymous(), "", nil
	}
}

// logout signs the shopper out and discards whatever guest cart is stored.
func (a *app) logout(ctx context.Context) {
	a.session.Set(cartfacade.Anonymous())
	a.facade.DiscardGuestCart(ctx)
}

func (a *app) Close() error {
	return a.store.Close()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
