// Package storefront is the client side of the checkout flow: an HTTP client for
// the storefront API plus the stateful cart, wishlist, coupon, shipping and
// checkout stores a UI drives.
package storefront

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

	pkgerrors "github.com/angelmondragon/storefront-checkout/pkg/errors"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/types"
)

// ErrUnauthorized is returned for any 401 so callers can fall back to
// anonymous endpoints.
var ErrUnauthorized = errors.New("storefront: unauthorized")

const (
	pathProducts     = "/api/v1/products/"
	pathPriceQuote   = "/api/v1/pricing/quote"
	pathCouponCheck  = "/api/v1/coupons/validate"
	pathShipping     = "/api/v1/shipping/quote"
	pathGuestQuote   = "/api/v1/shipping/guest-quote"
	pathCheckout     = "/api/v1/checkout"
	pathWishlist     = "/api/v1/wishlist/"
	headerIdemKey    = "Idempotency-Key"
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20
)

// APIError is a non-2xx, non-401 response. Message is the server's text verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("storefront: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("storefront: http %d %s: %s", e.Status, e.Code, e.Message)
}

// IsIntegrity reports whether the server refused a checkout as internally inconsistent.
func (e *APIError) IsIntegrity() bool {
	return e.Code == string(pkgerrors.CodeIntegrity)
}

// TokenSource returns the bearer token for the next request. An empty string
// sends the request anonymously.
type TokenSource func() string

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func() string { return token }
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTokenSource attaches bearer credentials to every request.
func WithTokenSource(src TokenSource) ClientOption {
	return func(c *Client) {
		c.token = src
	}
}

// Client talks to the storefront API.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("base url host is required")
	}

	c := &Client{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CheckoutReply carries exactly one of Success or Correction.
type CheckoutReply struct {
	Success    *types.CheckoutSuccess
	Correction *types.CheckoutCorrection
}

// GetProduct fetches the pricing snapshot used to build cart items.
func (c *Client) GetProduct(ctx context.Context, productID string) (*types.ProductSnapshot, error) {
	var out types.ProductSnapshot
	if err := c.call(ctx, http.MethodGet, pathProducts+url.PathEscape(productID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PriceQuote asks the server to price a selection.
func (c *Client) PriceQuote(ctx context.Context, req types.PriceQuoteRequest) (*pricing.LinePrice, error) {
	var out pricing.LinePrice
	if err := c.call(ctx, http.MethodPost, pathPriceQuote, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateCoupon checks a code. The response body is not enveloped and a
// rejected code is a successful call with Valid false.
func (c *Client) ValidateCoupon(ctx context.Context, req types.CouponValidateRequest) (*types.CouponValidateResponse, error) {
	status, body, err := c.send(ctx, http.MethodPost, pathCouponCheck, req, nil)
	if err != nil {
		return nil, err
	}
	if err := asError(status, body); err != nil {
		return nil, err
	}
	var out types.CouponValidateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode coupon response: %w", err)
	}
	return &out, nil
}

// ShippingQuote is the authenticated quote. Anonymous callers get ErrUnauthorized.
func (c *Client) ShippingQuote(ctx context.Context, req types.ShippingQuoteRequest) (*types.ShippingQuoteResponse, error) {
	var out types.ShippingQuoteResponse
	if err := c.call(ctx, http.MethodPost, pathShipping, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GuestQuote is the anonymous flat-rate quote.
func (c *Client) GuestQuote(ctx context.Context, req types.GuestQuoteRequest) (*types.GuestQuoteResponse, error) {
	var out types.GuestQuoteResponse
	if err := c.call(ctx, http.MethodPost, pathGuestQuote, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitCheckout posts the order. A correction may arrive as 200 or 400; both
// are returned as data. An integrity block is an *APIError with IsIntegrity.
func (c *Client) SubmitCheckout(ctx context.Context, req types.CheckoutRequest, idempotencyKey string) (*CheckoutReply, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, errors.New("idempotency key is required")
	}
	headers := map[string]string{headerIdemKey: idempotencyKey}
	status, body, err := c.send(ctx, http.MethodPost, pathCheckout, req, headers)
	if err != nil {
		return nil, err
	}

	if status == http.StatusOK || status == http.StatusBadRequest {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &env); err == nil && len(env.Data) > 0 {
			if reply, ok := decodeCheckout(env.Data); ok {
				return reply, nil
			}
		}
	}
	if err := asError(status, body); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("storefront: unexpected checkout response (http %d)", status)
}

// RemoteWishlist mirrors a Wishlist to the signed-in account. Pass it to
// NewWishlist only when the client carries a token.
func (c *Client) RemoteWishlist() WishlistSync {
	return remoteWishlist{c: c}
}

type remoteWishlist struct {
	c *Client
}

func (r remoteWishlist) Add(ctx context.Context, productID string) error {
	var out types.WishlistEntry
	return r.c.call(ctx, http.MethodPut, pathWishlist+url.PathEscape(productID), nil, nil, &out)
}

func (r remoteWishlist) Remove(ctx context.Context, productID string) error {
	var out types.WishlistEntry
	return r.c.call(ctx, http.MethodDelete, pathWishlist+url.PathEscape(productID), nil, nil, &out)
}

func decodeCheckout(raw json.RawMessage) (*CheckoutReply, bool) {
	var probe struct {
		NeedsUpdate bool   `json:"needsUpdate"`
		OrderID     string `json:"orderId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, false
	}
	switch {
	case probe.NeedsUpdate:
		var corr types.CheckoutCorrection
		if err := json.Unmarshal(raw, &corr); err != nil {
			return nil, false
		}
		return &CheckoutReply{Correction: &corr}, true
	case probe.OrderID != "":
		var ok types.CheckoutSuccess
		if err := json.Unmarshal(raw, &ok); err != nil {
			return nil, false
		}
		return &CheckoutReply{Success: &ok}, true
	}
	return nil, false
}

func (c *Client) call(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	status, body, err := c.send(ctx, method, path, in, headers)
	if err != nil {
		return err
	}
	if err := asError(status, body); err != nil {
		return err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("decode %s response: missing data", path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := strings.TrimSpace(c.token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func asError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	apiErr := &APIError{Status: status, Message: http.StatusText(status)}
	var env types.ErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Details = env.Error.Details
	}
	return apiErr
}
