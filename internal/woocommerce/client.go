package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/store"
	"bnpl-gateway/internal/transport"
)

// =============================================================================
// TWO APIS
// =============================================================================
//
// Carts live in the Store API, which is keyed by the shopper's Cart-Token
// and authenticates mutations with a Nonce header instead of credentials.
// Every mutation is preceded by a GET /cart preflight that returns a fresh
// nonce, which keeps the gateway stateless.
//
// Orders live in the REST API v3, authenticated with the merchant's consumer
// key and secret over basic auth. Cart contents are copied into a new pending
// order when the shopper completes express checkout.
// =============================================================================

const (
	storeAPIPath = "/wp-json/wc/store/v1"
	restAPIPath  = "/wp-json/wc/v3"

	// userAgent identifies this client to upstream servers.
	// Required: WooCommerce CDN/WAF rate-limits requests without User-Agent.
	userAgent = "bnpl-gateway/1.0"

	serviceName = "WooCommerce"
)

// Config holds WooCommerce connection settings.
type Config struct {
	StoreURL       string
	ConsumerKey    string
	ConsumerSecret string
	Timeout        time.Duration
	// Transport selects the TLS stack. Storefronts behind JA3-fingerprinting
	// CDNs need transport.Chrome.
	Transport transport.Kind
}

// Client implements store.Store for a WooCommerce site.
type Client struct {
	httpClient     *http.Client
	storeURL       string
	consumerKey    string
	consumerSecret string
	logger         *slog.Logger
}

// New creates a WooCommerce client with the given configuration.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	if cfg.ConsumerKey == "" || cfg.ConsumerSecret == "" {
		return nil, fmt.Errorf("API credentials are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rt, err := transport.New(cfg.Transport, timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:     &http.Client{Timeout: timeout, Transport: rt},
		storeURL:       strings.TrimSuffix(cfg.StoreURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		logger:         logger,
	}, nil
}

// === Cart (Store API) ===

// CurrentCart reads the live cart. It uses a no-op update-customer mutation
// because GET /cart can return stale data for a Cart-Token session.
func (c *Client) CurrentCart(ctx context.Context, cartToken string) (*model.CartSnapshot, error) {
	cart, err := c.cartMutation(ctx, cartToken, "/cart/update-customer", map[string]any{})
	if err != nil {
		return nil, err
	}
	return CartToSnapshot(cart), nil
}

func (c *Client) SetShippingAddress(ctx context.Context, cartToken string, addr model.Address) (*model.CartSnapshot, error) {
	if addr.Country == "" {
		return nil, model.NewValidationError("countryCode", "required")
	}
	body := map[string]any{"shipping_address": AddressToWoo(addr)}
	cart, err := c.cartMutation(ctx, cartToken, "/cart/update-customer", body)
	if err != nil {
		return nil, err
	}
	return CartToSnapshot(cart), nil
}

func (c *Client) SelectShipping(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error) {
	current, err := c.cartMutation(ctx, cartToken, "/cart/update-customer", map[string]any{})
	if err != nil {
		return nil, err
	}
	pkgID, ok := packageFor(current, optionID)
	if !ok {
		return nil, model.NewValidationError("shipping", fmt.Sprintf("unknown option %q", optionID))
	}

	body := map[string]any{"package_id": pkgID, "rate_id": optionID}
	cart, err := c.cartMutation(ctx, cartToken, "/cart/select-shipping-rate", body)
	if err != nil {
		return nil, err
	}
	return CartToSnapshot(cart), nil
}

func packageFor(cart *WooCartResponse, rateID string) (int, bool) {
	for _, pkg := range cart.ShippingRates {
		if slices.ContainsFunc(pkg.ShippingRates, func(r WooShippingRate) bool { return r.RateID == rateID }) {
			return pkg.PackageID, true
		}
	}
	return 0, false
}

// cartMutation posts body to a Store API cart route after a nonce preflight.
func (c *Client) cartMutation(ctx context.Context, cartToken, path string, body any) (*WooCartResponse, error) {
	if cartToken == "" {
		return nil, model.NewValidationError("cart token", "required")
	}
	nonce, err := c.fetchNonce(ctx, cartToken)
	if err != nil {
		return nil, err
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling cart request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storeURL+storeAPIPath+path, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("creating cart request: %w", err)
	}
	c.setStoreAPIHeaders(req, cartToken, nonce)

	var cart WooCartResponse
	if err := c.send(req, "cart", &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// fetchNonce performs a preflight GET /cart request to obtain a fresh nonce.
// The Store API returns nonce in response headers on every request.
func (c *Client) fetchNonce(ctx context.Context, cartToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storeURL+storeAPIPath+"/cart", nil)
	if err != nil {
		return "", fmt.Errorf("creating nonce request: %w", err)
	}
	c.setStoreAPIHeaders(req, cartToken, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", model.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	// Drain body to allow connection reuse
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return "", c.parseErrorResponse(resp.StatusCode, body, "cart")
	}

	nonce := resp.Header.Get("Nonce")
	if nonce == "" {
		return "", model.NewUpstreamError(serviceName, errors.New("no nonce returned from Store API"))
	}
	return nonce, nil
}

// setStoreAPIHeaders sets headers for Store API requests.
// Store API uses Cart-Token for session and Nonce for mutation auth.
func (c *Client) setStoreAPIHeaders(req *http.Request, cartToken, nonce string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if cartToken != "" {
		req.Header.Set("Cart-Token", cartToken)
	}
	if nonce != "" {
		req.Header.Set("Nonce", nonce)
	}
}

// === Orders (REST API v3) ===

// CreateOrder copies the live cart into a pending order.
func (c *Client) CreateOrder(ctx context.Context, cartToken string, req store.OrderRequest) (*model.LocalOrder, error) {
	cart, err := c.cartMutation(ctx, cartToken, "/cart/update-customer", map[string]any{})
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, model.NewValidationError("cart", "is empty")
	}
	snap := CartToSnapshot(cart)

	billing := cart.BillingAddress
	if billing.Email == "" {
		billing.Email = req.BillingEmail
	}
	body := WooOrderCreate{
		Status:        "pending",
		PaymentMethod: req.PaymentMethod,
		Billing:       billing,
		MetaData:      []WooMeta{{Key: "_cart_token", Value: cartToken}},
	}
	if cart.NeedsShipping {
		shipping := cart.ShippingAddress
		body.Shipping = &shipping
	}
	for _, item := range cart.Items {
		body.LineItems = append(body.LineItems, WooOrderItem{ProductID: item.ID, Quantity: item.Quantity})
	}
	for _, coupon := range cart.Coupons {
		body.CouponLines = append(body.CouponLines, WooCouponLine{Code: coupon.Code})
	}
	for _, opt := range snap.ShippingOptions {
		if opt.ID == snap.ShippingOptionID {
			body.ShippingLines = append(body.ShippingLines, shippingLineFor(opt))
		}
	}

	var order WooOrder
	if err := c.rest(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	c.logger.Info("woocommerce order created", "order_id", order.ID, "total", order.Total)
	return OrderToLocal(&order), nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.LocalOrder, error) {
	order, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return OrderToLocal(order), nil
}

func (c *Client) OrderSnapshot(ctx context.Context, orderID string) (*model.CartSnapshot, error) {
	order, err := c.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return OrderToSnapshot(order), nil
}

func (c *Client) getOrder(ctx context.Context, orderID string) (*WooOrder, error) {
	if _, err := strconv.Atoi(orderID); err != nil {
		return nil, model.NewNotFoundError("order")
	}
	var order WooOrder
	if err := c.rest(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) SetProviderToken(ctx context.Context, orderID, token string) error {
	body := WooOrderUpdate{MetaData: []WooMeta{{Key: providerTokenMeta, Value: token}}}
	return c.rest(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID), body, nil)
}

func (c *Client) AddNote(ctx context.Context, orderID, note string) error {
	return c.rest(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/notes", WooOrderNote{Note: note}, nil)
}

// MarkPaid completes payment. WooCommerce has no conditional update, so the
// paid check is a read before the write; callers hold the order lock.
func (c *Client) MarkPaid(ctx context.Context, orderID, transactionRef, note string) error {
	current, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if current.IsPaid() {
		return fmt.Errorf("order %s: %w", orderID, store.ErrAlreadyPaid)
	}

	body := WooOrderUpdate{Status: "processing", TransactionID: transactionRef, SetPaid: true}
	if err := c.rest(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID), body, nil); err != nil {
		return err
	}
	return c.AddNote(ctx, orderID, note)
}

func (c *Client) MarkFailed(ctx context.Context, orderID, note string) error {
	body := WooOrderUpdate{Status: "failed"}
	if err := c.rest(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID), body, nil); err != nil {
		return err
	}
	return c.AddNote(ctx, orderID, note)
}

// RecordRefund records a refund already sent through the provider.
func (c *Client) RecordRefund(ctx context.Context, orderID string, amount model.Money, note string) error {
	body := WooRefundCreate{Amount: model.FormatAmount(amount.Amount), APIRefund: false}
	if err := c.rest(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/refunds", body, nil); err != nil {
		return err
	}
	return c.AddNote(ctx, orderID, note)
}

// rest performs a REST v3 call with basic auth.
func (c *Client) rest(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyJSON, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.storeURL+restAPIPath+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	return c.send(req, "order", out)
}

// send executes req and decodes a successful JSON body into out.
func (c *Client) send(req *http.Request, resource string, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	c.logger.Debug("woocommerce request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 400 {
		return c.parseErrorResponse(resp.StatusCode, body, resource)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return model.NewUpstreamError(serviceName, fmt.Errorf("parsing %s response: %w", resource, err))
	}
	return nil
}

// parseErrorResponse converts a WooCommerce error to an APIError.
func (c *Client) parseErrorResponse(statusCode int, body []byte, resource string) error {
	var wcErr WooErrorResponse
	json.Unmarshal(body, &wcErr) // Best effort parse

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError(resource)
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.NewAuthError(serviceName)
	case http.StatusBadRequest:
		msg := wcErr.Message
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewValidationError(resource, msg)
	default:
		return model.NewUpstreamError(serviceName,
			fmt.Errorf("status %d: %s - %s", statusCode, wcErr.Code, wcErr.Message))
	}
}

var _ store.Store = (*Client)(nil)
