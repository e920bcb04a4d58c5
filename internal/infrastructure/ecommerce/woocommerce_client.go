// Package ecommerce holds storefront REST clients.
package ecommerce

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kossanah/woocommerce-fusion/internal/domain/connection"
	"github.com/kossanah/woocommerce-fusion/internal/domain/integration"
)

const (
	restAPIPath = "/wp-json/wc/v3"

	// DefaultTimeout matches the storefront request timeout used by sync jobs
	DefaultTimeout = 40 * time.Second

	maxResponseSize = 2 << 20
	userAgent       = "woocommerce-fusion/1.0"
)

// ErrInvalidProductID is returned for product IDs that are not positive integers
var ErrInvalidProductID = errors.New("woocommerce: invalid product ID")

// WooCommerceClient talks to the WooCommerce REST API v3. Credentials are
// passed per call, so a single client serves every connection profile.
type WooCommerceClient struct {
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a WooCommerceClient
type Option func(*WooCommerceClient)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(w *WooCommerceClient) {
		w.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(w *WooCommerceClient) {
		w.logger = logger
	}
}

// NewWooCommerceClient creates a client. A non-positive timeout uses DefaultTimeout.
func NewWooCommerceClient(timeout time.Duration, opts ...Option) *WooCommerceClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &WooCommerceClient{
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// wooError is the error body returned by the REST API
type wooError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetProduct fetches GET products/{id}
func (c *WooCommerceClient) GetProduct(ctx context.Context, creds connection.Credentials, productID string) (*integration.StorefrontProduct, error) {
	if err := validateProductID(productID); err != nil {
		return nil, err
	}

	body, err := c.do(ctx, creds, http.MethodGet, "/products/"+productID, nil)
	if err != nil {
		return nil, err
	}

	var product integration.StorefrontProduct
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrStorefrontInvalidResponse, err)
	}
	return &product, nil
}

// UpdateStock sets stock_quantity. WooCommerce stores whole units, so the
// fractional part is dropped.
func (c *WooCommerceClient) UpdateStock(ctx context.Context, creds connection.Credentials, productID string, quantity decimal.Decimal) error {
	if err := validateProductID(productID); err != nil {
		return err
	}
	_, err := c.do(ctx, creds, http.MethodPut, "/products/"+productID, map[string]any{
		"stock_quantity": quantity.IntPart(),
	})
	return err
}

// UpdatePrice sets regular_price
func (c *WooCommerceClient) UpdatePrice(ctx context.Context, creds connection.Credentials, productID string, rate decimal.Decimal) error {
	if err := validateProductID(productID); err != nil {
		return err
	}
	_, err := c.do(ctx, creds, http.MethodPut, "/products/"+productID, map[string]any{
		"regular_price": rate.String(),
	})
	return err
}

// UpdateProduct writes arbitrary product fields with PUT products/{id}
func (c *WooCommerceClient) UpdateProduct(ctx context.Context, creds connection.Credentials, productID string, fields map[string]any) (*integration.StorefrontProduct, error) {
	if err := validateProductID(productID); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, creds, http.MethodPut, "/products/"+productID, fields)
	if err != nil {
		return nil, err
	}

	var product integration.StorefrontProduct
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrStorefrontInvalidResponse, err)
	}
	return &product, nil
}

func (c *WooCommerceClient) do(ctx context.Context, creds connection.Credentials, method, path string, payload any) ([]byte, error) {
	if creds.ServerURL == "" || creds.ConsumerKey == "" || creds.ConsumerSecret == "" {
		return nil, integration.ErrStorefrontNotConfigured
	}

	endpoint, err := url.Parse(strings.TrimSuffix(creds.ServerURL, "/") + restAPIPath + path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrStorefrontNotConfigured, err)
	}

	var bodyReader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	// Basic auth is only accepted over TLS; plain HTTP needs one-legged OAuth.
	if endpoint.Scheme != "https" {
		endpoint.RawQuery = c.oauthQuery(method, endpoint, creds).Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if endpoint.Scheme == "https" {
		req.SetBasicAuth(creds.ConsumerKey, creds.ConsumerSecret)
	}

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrStorefrontUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", integration.ErrStorefrontUnavailable, err)
	}

	c.logger.Debug("Storefront request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", c.now().Sub(start)),
	)

	if resp.StatusCode >= 400 {
		return nil, parseErrorResponse(resp.StatusCode, body)
	}
	return body, nil
}

// parseErrorResponse maps an HTTP failure onto the storefront error set
func parseErrorResponse(statusCode int, body []byte) error {
	var wcErr wooError
	_ = json.Unmarshal(body, &wcErr)

	detail := fmt.Sprintf("HTTP %d", statusCode)
	if wcErr.Code != "" {
		detail += ": " + wcErr.Code
		if wcErr.Message != "" {
			detail += " - " + wcErr.Message
		}
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", integration.ErrStorefrontAuthFailed, detail)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", integration.ErrStorefrontProductNotFound, detail)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", integration.ErrStorefrontRateLimited, detail)
	case statusCode >= 500:
		return fmt.Errorf("%w: %s", integration.ErrStorefrontUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", integration.ErrStorefrontRequestFailed, detail)
	}
}

func validateProductID(id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidProductID, id)
	}
	return nil
}

// oauthQuery returns the request query extended with an OAuth 1.0a
// HMAC-SHA256 signature. The signing key is the consumer secret followed by "&".
func (c *WooCommerceClient) oauthQuery(method string, endpoint *url.URL, creds connection.Credentials) url.Values {
	params := endpoint.Query()
	params.Set("oauth_consumer_key", creds.ConsumerKey)
	params.Set("oauth_nonce", newNonce())
	params.Set("oauth_signature_method", "HMAC-SHA256")
	params.Set("oauth_timestamp", strconv.FormatInt(c.now().Unix(), 10))

	base := *endpoint
	base.RawQuery = ""
	params.Set("oauth_signature", oauthSignature(method, base.String(), params, creds.ConsumerSecret))
	return params
}

func oauthSignature(method, baseURL string, params url.Values, secret string) string {
	pairs := make([]string, 0, len(params))
	for key, values := range params {
		if key == "oauth_signature" {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, percentEncode(key)+"="+percentEncode(v))
		}
	}
	sort.Strings(pairs)

	baseString := strings.ToUpper(method) + "&" + percentEncode(baseURL) + "&" + percentEncode(strings.Join(pairs, "&"))
	mac := hmac.New(sha256.New, []byte(secret+"&"))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

var _ integration.StorefrontClient = (*WooCommerceClient)(nil)
