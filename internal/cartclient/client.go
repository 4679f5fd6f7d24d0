// Package cartclient talks to the backend cart endpoints on behalf of a signed
// in shopper. It holds no cart state of its own.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1 << 20

	requestIDHeader = "X-Request-Id"
)

var errBaseURLRequired = errors.New("cart backend base url is required")

// Client issues cart operations against the backend REST contract.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client. It has no effect
// on a client supplied through WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithBearerToken attaches an Authorization header to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New builds a client for the backend rooted at baseURL.
func New(baseURL string, logg *logger.Logger, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid cart backend base url %q", baseURL)
	}
	if logg == nil {
		logg = logger.Nop()
	}

	client := &Client{
		baseURL: trimmed,
		timeout: defaultTimeout,
		logg:    logg,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}
	return client, nil
}

// Fetch returns the shopper's cart. A missing cart or a failing backend reads
// as an empty cart; every other failure is returned.
func (c *Client) Fetch(ctx context.Context, userID string) (cart.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return cart.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	status, body, err := c.do(ctx, http.MethodGet, "cart/"+url.PathEscape(userID), nil)
	if err != nil {
		return cart.Cart{}, err
	}
	if status == http.StatusNotFound || status >= http.StatusInternalServerError {
		c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
			"user_id": userID,
			"status":  status,
		}), "cart fetch degraded to empty cart")
		return cart.Empty(), nil
	}
	if !isSuccess(status) {
		return cart.Cart{}, statusError(status, body, "fetch cart")
	}
	return c.decode(body, "fetch cart")
}

// AddLine asks the backend to add quantity units of productID and returns the
// server's cart.
func (c *Client) AddLine(ctx context.Context, userID, productID string, quantity int) (cart.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return cart.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	status, body, err := c.do(ctx, http.MethodPost, "cart/items", addLineRequest{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
	if err != nil {
		return cart.Cart{}, err
	}
	if !isSuccess(status) {
		return cart.Cart{}, statusError(status, body, "add cart item")
	}
	return c.decode(body, "add cart item")
}

// UpdateLine sets the quantity of lineID and returns the server's cart.
func (c *Client) UpdateLine(ctx context.Context, lineID string, quantity int) (cart.Cart, error) {
	status, body, err := c.do(ctx, http.MethodPut, "cart/items/"+url.PathEscape(lineID), updateLineRequest{Quantity: quantity})
	if err != nil {
		return cart.Cart{}, err
	}
	if !isSuccess(status) {
		return cart.Cart{}, statusError(status, body, "update cart item")
	}
	return c.decode(body, "update cart item")
}

// RemoveLine deletes lineID and re-reads the shopper's cart.
func (c *Client) RemoveLine(ctx context.Context, userID, lineID string) (cart.Cart, error) {
	status, body, err := c.do(ctx, http.MethodDelete, "cart/items/"+url.PathEscape(lineID), nil)
	if err != nil {
		return cart.Cart{}, err
	}
	if !isSuccess(status) {
		return cart.Cart{}, statusError(status, body, "remove cart item")
	}
	return c.Fetch(ctx, userID)
}

// Clear deletes the shopper's whole cart.
func (c *Client) Clear(ctx context.Context, userID string) (cart.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return cart.Cart{}, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	status, body, err := c.do(ctx, http.MethodDelete, "cart/"+url.PathEscape(userID), nil)
	if err != nil {
		return cart.Cart{}, err
	}
	if !isSuccess(status) {
		return cart.Cart{}, statusError(status, body, "clear cart")
	}
	return cart.Empty(), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal cart request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cart request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart backend unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read cart response")
	}

	c.logg.Debug(c.logg.WithFields(c.logg.WithRequestID(ctx, requestID), map[string]any{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}), "cart backend call")
	return resp.StatusCode, body, nil
}

func (c *Client) decode(body []byte, op string) (cart.Cart, error) {
	out, err := decodeCart(body)
	if err != nil {
		return cart.Cart{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode "+op+" response")
	}
	return out, nil
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// statusError carries the server message verbatim when it sent one.
func statusError(status int, body []byte, op string) error {
	code := pkgerrors.CodeForStatus(status)
	msg := decodeErrorMessage(body)
	if msg == "" {
		msg = fmt.Sprintf("%s failed with status %d", op, status)
	}
	return pkgerrors.New(code, msg).WithDetails(map[string]any{"status": status, "operation": op})
}
