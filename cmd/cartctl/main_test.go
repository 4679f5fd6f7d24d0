package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-cart/api/routes"
	"github.com/angelmondragon/storefront-cart/internal/cartserver"
	"github.com/angelmondragon/storefront-cart/pkg/auth"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

func memoryConfig(backendURL string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			Driver:       config.StorageDriverMemory,
			GuestCartKey: "guestCart",
		},
		Backend: config.BackendConfig{BaseURL: backendURL, Timeout: 2 * time.Second},
		Auth:    config.AuthConfig{JWTIssuer: "grocery-store"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, opts options) *app {
	t.Helper()
	a, err := newApp(context.Background(), cfg, opts, logger.Nop(), metrics.NewCartMetrics(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func newDevBackend(t *testing.T) string {
	t.Helper()
	svc, err := cartserver.NewService(cartserver.DefaultCatalog())
	require.NoError(t, err)
	srv := httptest.NewServer(routes.NewRouter(config.AuthConfig{}, logger.Nop(), svc, nil))
	t.Cleanup(srv.Close)
	return srv.URL + routes.APIPrefix
}

func TestParseFlags(t *testing.T) {
	t.Parallel()
	var stderr bytes.Buffer

	opts, rest, err := parseFlags([]string{"--user", "u1", "--storage", "memory", "get"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "u1", opts.user)
	assert.Equal(t, "memory", opts.storage)
	assert.Equal(t, defaultListenAddr, opts.listen)
	assert.Equal(t, []string{"get"}, rest)

	opts, _, err = parseFlags([]string{"-h"}, &stderr)
	require.NoError(t, err)
	assert.True(t, opts.help)

	_, _, err = parseFlags([]string{"--bogus"}, &stderr)
	require.Error(t, err)
}

func TestOptionsOverrideConfig(t *testing.T) {
	t.Parallel()
	cfg := memoryConfig("http://localhost:8081/api/v1")
	options{storage: "redis", backend: "http://cart.test/api/v1", metricsAddr: ":9100"}.apply(cfg)
	assert.Equal(t, "redis", cfg.Storage.Driver)
	assert.Equal(t, "http://cart.test/api/v1", cfg.Backend.BaseURL)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestRunHelp(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--help"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Commands:")
	assert.Contains(t, stderr.String(), "--metrics-addr")

	err := run(context.Background(), nil, strings.NewReader(""), &stdout, &stderr)
	require.Error(t, err)
}

func TestResolveSession(t *testing.T) {
	t.Parallel()
	now := time.Now()

	cfg := memoryConfig("http://localhost:8081/api/v1")
	session, token, err := resolveSession(cfg, options{}, now)
	require.NoError(t, err)
	assert.True(t, session.IsAnonymous())
	assert.Empty(t, token)

	session, token, err = resolveSession(cfg, options{user: "u1"}, now)
	require.NoError(t, err)
	assert.False(t, session.IsAnonymous())
	assert.Equal(t, "u1", session.SubjectID())
	assert.Empty(t, token, "no secret, no token")

	cfg.Auth.JWTSecret = "secret"
	session, token, err = resolveSession(cfg, options{user: "u2"}, now)
	require.NoError(t, err)
	assert.Equal(t, "u2", session.SubjectID())
	claims, err := auth.ParseAccessToken(cfg.Auth, token)
	require.NoError(t, err)
	assert.Equal(t, "u2", claims.SubjectID())

	session, same, err := resolveSession(cfg, options{token: token, user: "ignored"}, now)
	require.NoError(t, err)
	assert.Equal(t, "u2", session.SubjectID())
	assert.Equal(t, token, same)

	_, _, err = resolveSession(cfg, options{token: "not-a-jwt"}, now)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestDispatchGuestCommands(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestApp(t, memoryConfig("http://localhost:1/api/v1"), options{})
	var out bytes.Buffer

	require.NoError(t, a.dispatch(ctx, []string{"add", "p1", "Apples", "1.50", "10", "2"}, &out))
	assert.Contains(t, out.String(), "mode: guest")
	assert.Contains(t, out.String(), "items: 2  total: 3.00")

	out.Reset()
	require.NoError(t, a.dispatch(ctx, []string{"add", "p2", "Bread", "2.25", "5"}, &out))
	assert.Contains(t, out.String(), "items: 3  total: 5.25")

	c, err := a.facade.Get(ctx)
	require.NoError(t, err)
	line, ok := c.LineByProduct("p1")
	require.True(t, ok)

	out.Reset()
	require.NoError(t, a.dispatch(ctx, []string{"update", line.LineID, "4"}, &out))
	assert.Contains(t, out.String(), "items: 5  total: 8.25")

	out.Reset()
	require.NoError(t, a.dispatch(ctx, []string{"remove", line.LineID}, &out))
	assert.Contains(t, out.String(), "items: 1  total: 2.25")

	out.Reset()
	require.NoError(t, a.dispatch(ctx, []string{"clear"}, &out))
	assert.Contains(t, out.String(), "cart is empty")
}

func TestDispatchRejectsBadArguments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := newTestApp(t, memoryConfig("http://localhost:1/api/v1"), options{})
	var out bytes.Buffer

	cases := [][]string{
		{"add", "p1", "Apples"},
		{"add", "p1", "Apples", "cheap", "1"},
		{"add", "p1", "Apples", "1.00", "-1"},
		{"update", "line"},
		{"update", "line", "many"},
		{"remove"},
		{"checkout"},
	}
	for _, args := range cases {
		err := a.dispatch(ctx, args, &out)
		require.Error(t, err, "args %v", args)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code(), "args %v", args)
	}
	assert.Empty(t, out.String())
}

func TestRunAccountCommandsAgainstDevBackend(t *testing.T) {
	backend := newDevBackend(t)
	product := cartserver.DefaultCatalog()[0]
	base := []string{"--user", "u1", "--backend", backend, "--storage", "memory"}

	var stdout, stderr bytes.Buffer
	args := append(append([]string{}, base...), "add", product.ID, product.Name, product.Price.String(), "50", "2")
	require.NoError(t, run(context.Background(), args, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stdout.String(), "mode: account")
	assert.Contains(t, stdout.String(), "total: 599.98")

	stdout.Reset()
	args = append(append([]string{}, base...), "get")
	require.NoError(t, run(context.Background(), args, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stdout.String(), product.Name)
	assert.Contains(t, stdout.String(), "items: 2")
}

func TestShellDrivesWidgets(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, memoryConfig("http://localhost:1/api/v1"), options{})
	input := strings.NewReader("add 1\ninc 1\nadd 3\ndec 3\nbogus\nadd 9\nquit\n")
	var out bytes.Buffer

	require.NoError(t, runShell(context.Background(), a, input, &out))

	text := out.String()
	assert.Contains(t, text, "[cart: 0] guest")
	assert.Contains(t, text, "[cart: 2] guest")
	assert.Contains(t, text, `error: unknown command "bogus"`)
	assert.Contains(t, text, `error: no product tile "9"`)

	c, err := a.facade.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, cartserver.DefaultCatalog()[0].ID, c.Items[0].ProductID)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestShellLogoutDiscardsGuestCart(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, memoryConfig("http://localhost:1/api/v1"), options{})
	var out bytes.Buffer

	require.NoError(t, runShell(context.Background(), a, strings.NewReader("add 2\nlogout\n"), &out))

	c, err := a.facade.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.True(t, a.session.IsAnonymous())
}
