// Package cartclient talks to the storefront cart API on behalf of a
// client application. The session cookie issued by the server rides in
// a cookie jar, so every call lands on the same visitor cart. When the
// API is unreachable the client flips to the local cart and keeps
// serving the same response shape, so callers never need to know which
// side answered.
package cartclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sony/gobreaker/v2"

	"curvot-backend/client/localcart"
	"curvot-backend/models"
)

// Response is the cart API envelope shared by every cart endpoint.
type Response struct {
	Success   bool                  `json:"success"`
	Message   string                `json:"message,omitempty"`
	Cart      []models.CartLineItem `json:"cart"`
	SessionID string                `json:"sessionId,omitempty"`
}

// Policy controls retries on a single cart call. Zero Attempts means
// one try and no retries.
type Policy struct {
	Attempts int
	Backoff  time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[Response]
	local   *localcart.Cart

	// addPolicy governs AddToCart only. Adds are the call users retry
	// by hand anyway, so the client does it for them.
	addPolicy Policy
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithAddPolicy(p Policy) Option {
	return func(c *Client) { c.addPolicy = p }
}

func New(baseURL string, local *localcart.Cart, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Jar: jar, Timeout: 10 * time.Second},
		local:     local,
		addPolicy: Policy{Attempts: 3, Backoff: time.Second},
	}
	c.breaker = gobreaker.NewCircuitBreaker[Response](gobreaker.Settings{
		Name:    "cart-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers mean the API is up and judging the request; only
		// transport errors and 5xx count toward opening the circuit.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *APIError
			return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetCart returns the current cart, remote when possible, local when
// the API is out of reach or the client was switched to local mode.
func (c *Client) GetCart(ctx context.Context) (Response, error) {
	if c.local.PreferLocal() {
		return c.localResponse(""), nil
	}
	resp, err := c.call(ctx, http.MethodGet, "/api/cart", Policy{})
	if err != nil {
		return c.fallback("")
	}
	return resp, nil
}

// AddToCart adds one unit of the product to the cart. Remote calls are
// retried per the add policy before giving up and falling back; the
// local fallback fetches the product snapshot first so the offline line
// carries real name and price data.
func (c *Client) AddToCart(ctx context.Context, productID string) (Response, error) {
	if c.local.PreferLocal() {
		return c.addLocal(ctx, productID)
	}
	resp, err := c.call(ctx, http.MethodPost, "/api/cart/add/"+productID, c.addPolicy)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == http.StatusNotFound {
			// The product genuinely does not exist; local mode cannot fix that.
			return Response{}, err
		}
		if err := c.switchToLocal(); err != nil {
			return Response{}, err
		}
		return c.addLocal(ctx, productID)
	}
	return resp, nil
}

func (c *Client) IncrementItem(ctx context.Context, productID string) (Response, error) {
	return c.mutate(ctx, "/api/cart/increment/"+productID, func() error {
		_, err := c.local.Increment(productID)
		return err
	}, "")
}

func (c *Client) DecrementItem(ctx context.Context, productID string) (Response, error) {
	return c.mutate(ctx, "/api/cart/decrement/"+productID, func() error {
		_, err := c.local.Decrement(productID)
		return err
	}, "")
}

func (c *Client) RemoveItem(ctx context.Context, productID string) (Response, error) {
	return c.mutate(ctx, "/api/cart/remove/"+productID, func() error {
		_, err := c.local.Remove(productID)
		return err
	}, "Product removed from cart")
}

func (c *Client) ClearCart(ctx context.Context) (Response, error) {
	return c.mutate(ctx, "/api/cart/clear", c.local.Clear, "Cart cleared")
}

func (c *Client) mutate(ctx context.Context, path string, localOp func() error, message string) (Response, error) {
	if c.local.PreferLocal() {
		if err := localOp(); err != nil {
			return Response{}, err
		}
		return c.localResponse(message), nil
	}
	resp, err := c.call(ctx, http.MethodPost, path, Policy{})
	if err != nil {
		if err := c.switchToLocal(); err != nil {
			return Response{}, err
		}
		if err := localOp(); err != nil {
			return Response{}, err
		}
		return c.localResponse(message), nil
	}
	return resp, nil
}

// TestConnection probes the cart API diagnostics endpoint and records
// the result as the preferred cart mode.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodGet, "/api/cart/test", Policy{})
	if err != nil {
		if serr := c.local.SetPreferLocal(true); serr != nil {
			return serr
		}
		return err
	}
	return c.local.SetPreferLocal(false)
}

// Sync pulls the server cart, merges local changes into it and leaves
// the client in remote mode. Used when connectivity comes back after a
// stretch of local-only operation.
func (c *Client) Sync(ctx context.Context) (Response, error) {
	resp, err := c.call(ctx, http.MethodGet, "/api/cart", Policy{})
	if err != nil {
		return Response{}, err
	}
	merged, err := c.local.Merge(resp.Cart)
	if err != nil {
		return Response{}, err
	}
	if err := c.local.SetPreferLocal(false); err != nil {
		return Response{}, err
	}
	resp.Cart = merged
	return resp, nil
}

// APIError is a non-2xx answer from the cart API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cart api: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("cart api: status %d", e.StatusCode)
}

func (c *Client) addLocal(ctx context.Context, productID string) (Response, error) {
	product, err := c.Product(ctx, productID)
	if err != nil {
		return Response{}, err
	}
	if _, err := c.local.Add(product.LineItem(1)); err != nil {
		return Response{}, err
	}
	return c.localResponse("Product added to cart"), nil
}

// Product fetches the current catalog entry. Product reads are
// deliberately outside the breaker: the catalog often stays up while
// the cart store is down, and local adds depend on it.
func (c *Client) Product(ctx context.Context, productID string) (models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/products/"+productID, nil)
	if err != nil {
		return models.Product{}, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return models.Product{}, fmt.Errorf("fetch product %s: %w", productID, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return models.Product{}, &APIError{StatusCode: res.StatusCode, Message: "Product not found"}
	}
	var product models.Product
	if err := json.NewDecoder(res.Body).Decode(&product); err != nil {
		return models.Product{}, fmt.Errorf("decode product %s: %w", productID, err)
	}
	return product, nil
}

func (c *Client) call(ctx context.Context, method, path string, policy Policy) (Response, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.breaker.Execute(func() (Response, error) {
			return c.doRequest(ctx, method, path)
		})
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// Client errors are definitive; retrying will not change them.
		if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode < http.StatusInternalServerError {
			return Response{}, err
		}
		// An open breaker stays open for its whole timeout window, so
		// further attempts inside this call are pointless.
		if errors.Is(err, gobreaker.ErrOpenState) {
			return Response{}, err
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(policy.Backoff):
			}
		}
	}
	return Response{}, lastErr
}

func (c *Client) doRequest(ctx context.Context, method, path string) (Response, error) {
	var body io.Reader
	if method == http.MethodPost {
		body = bytes.NewReader([]byte("{}"))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return Response{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer res.Body.Close()

	var resp Response
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil && res.StatusCode == http.StatusOK {
		return Response{}, fmt.Errorf("decode cart response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return Response{}, &APIError{StatusCode: res.StatusCode, Message: resp.Message}
	}
	return resp, nil
}

func (c *Client) switchToLocal() error {
	return c.local.SetPreferLocal(true)
}

func (c *Client) fallback(message string) (Response, error) {
	if err := c.switchToLocal(); err != nil {
		return Response{}, err
	}
	return c.localResponse(message), nil
}

func (c *Client) localResponse(message string) Response {
	return Response{
		Success: true,
		Message: message,
		Cart:    c.local.Items(),
	}
}
