// Package provider is the HTTP client for the installment payment provider.
// Every call is a single request with a bounded timeout. Mutating calls are
// never retried here.
package provider

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
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"bnpl-gateway/internal/limits"
	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/model"
)

const (
	DefaultTimeout = 20 * time.Second
	MinTimeout     = 10 * time.Second
	MaxTimeout     = 30 * time.Second

	// compatibilityBelow is the first integration version that sends the
	// capture amount.
	compatibilityBelow = "v2.0.0"

	serviceName = "payment provider"
)

// Endpoint is the API and hosted-checkout base URL for one environment.
type Endpoint struct {
	APIURL string
	WebURL string
}

// Config configures the provider client.
type Config struct {
	// Endpoints per environment. Required for every environment that may be active.
	Endpoints map[merchant.Environment]Endpoint
	// USEndpoints serve every call of a USD or CAD store when present.
	USEndpoints map[merchant.Environment]Endpoint
	// StoreCurrency is the store's base currency. It fixes the region for
	// the client's lifetime.
	StoreCurrency string

	Timeout   time.Duration
	UserAgent string
	Transport http.RoundTripper
}

// Client talks to the provider on behalf of the merchant in settings.
type Client struct {
	httpClient  *http.Client
	settings    *merchant.Holder
	endpoints   map[merchant.Environment]Endpoint
	usEndpoints map[merchant.Environment]Endpoint
	usRegion    bool
	userAgent   string
	logger      *slog.Logger
}

// New creates a provider client. The timeout is clamped to [MinTimeout, MaxTimeout].
func New(cfg Config, settings *merchant.Holder, logger *slog.Logger) (*Client, error) {
	if settings == nil {
		return nil, fmt.Errorf("merchant settings are required")
	}
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one provider endpoint is required")
	}
	for env, ep := range cfg.Endpoints {
		if _, err := url.Parse(ep.APIURL); err != nil || ep.APIURL == "" {
			return nil, fmt.Errorf("invalid %s api url %q", env, ep.APIURL)
		}
	}

	timeout := cfg.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < MinTimeout:
		timeout = MinTimeout
	case timeout > MaxTimeout:
		timeout = MaxTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "bnpl-gateway/1.0"
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout, Transport: cfg.Transport},
		settings:    settings,
		endpoints:   cfg.Endpoints,
		usEndpoints: cfg.USEndpoints,
		usRegion:    usRegion(cfg.StoreCurrency),
		userAgent:   userAgent,
		logger:      logger,
	}, nil
}

// usRegion reports whether a store currency is served by the US API.
func usRegion(currency string) bool {
	cur := strings.ToUpper(currency)
	return cur == "USD" || cur == "CAD"
}

// endpoint selects the base URLs for the active environment in the store's region.
func (c *Client) endpoint(env merchant.Environment) (Endpoint, error) {
	if c.usRegion {
		if ep, ok := c.usEndpoints[env]; ok && ep.APIURL != "" {
			return ep, nil
		}
	}
	ep, ok := c.endpoints[env]
	if !ok || ep.APIURL == "" {
		return Endpoint{}, model.NewConfigurationError(fmt.Sprintf("no provider endpoint configured for %s", env))
	}
	return ep, nil
}

// CompatibilityMode reports whether an integration version predates
// amount-carrying captures. Unparseable or empty versions are current.
func CompatibilityMode(version string) bool {
	if version == "" {
		return false
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return false
	}
	return semver.Compare(version, compatibilityBelow) < 0
}

// CreateOrder quotes the cart to the provider and returns the checkout token.
func (c *Client) CreateOrder(ctx context.Context, cart *model.CartSnapshot, req CreateOrderRequest) (*OrderToken, error) {
	body := orderRequest{
		RequestID:   uuid.NewString(),
		TotalAmount: cart.Total,
		Consumer: wireConsumer{
			Email:      req.Consumer.Email,
			GivenNames: req.Consumer.GivenNames,
			Surname:    req.Consumer.Surname,
		},
		Items:          cart.Items,
		Discounts:      cart.Discounts,
		ShippingAmount: req.ShippingAmount,
		Merchant: wireMerchant{
			RedirectConfirmURL: req.ConfirmURL,
			RedirectCancelURL:  req.CancelURL,
			PopupOriginURL:     req.PopupOriginURL,
		},
		MerchantReference: req.MerchantReference,
	}
	if req.Express {
		body.Mode = "express"
	}

	var resp orderTokenResponse
	ep, err := c.do(ctx, http.MethodPost, "/v1/orders", body, &resp)
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	if resp.Token == "" {
		return nil, model.NewProviderError(http.StatusOK, "", "order response did not include a token")
	}

	redirect := resp.RedirectCheckoutURL
	if redirect == "" {
		redirect = strings.TrimSuffix(ep.WebURL, "/") + "/checkout/?token=" + url.QueryEscape(resp.Token)
	}
	return &OrderToken{Token: resp.Token, Expires: resp.Expires, RedirectURL: redirect}, nil
}

// GetOrderByToken fetches the provider order quoted under token. Safe to retry.
func (c *Client) GetOrderByToken(ctx context.Context, token string) (*model.RemoteOrder, error) {
	if token == "" {
		return nil, model.NewValidationError("token", "required")
	}
	var resp wireOrder
	if _, err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(token), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching order: %w", err)
	}
	if resp.Token == "" {
		resp.Token = token
	}
	return resp.toModel(), nil
}

// Capture captures the payment for token against merchantRef. A nil amount,
// or a merchant on a pre-v2 integration, captures the originally quoted
// amount. Any response that is not a well-formed APPROVED or DECLINED order
// is a provider error; the caller must not retry.
func (c *Client) Capture(ctx context.Context, token, merchantRef string, amount *model.Money) (*model.RemoteOrder, error) {
	if CompatibilityMode(c.settings.Load().IntegrationVersion) {
		amount = nil
	}
	body := captureRequest{
		RequestID:         uuid.NewString(),
		Token:             token,
		MerchantReference: merchantRef,
		Amount:            amount,
	}

	var resp wireOrder
	if _, err := c.do(ctx, http.MethodPost, "/v1/payments/capture", body, &resp); err != nil {
		return nil, fmt.Errorf("capturing payment: %w", err)
	}

	status := model.RemoteOrderStatus(resp.Status)
	if resp.ID == "" || (status != model.RemoteStatusApproved && status != model.RemoteStatusDeclined) {
		return nil, model.NewProviderError(http.StatusOK, "unexpected_capture_response",
			fmt.Sprintf("capture returned status %q for order %q", resp.Status, resp.ID))
	}
	if resp.Token == "" {
		resp.Token = token
	}
	return resp.toModel(), nil
}

// CreateRefund refunds part or all of a captured order. It reports false
// without error when the provider accepted the call but did not confirm a refund.
func (c *Client) CreateRefund(ctx context.Context, req RefundRequest) (bool, error) {
	if _, err := c.settings.Load().ActiveCredentials(); err != nil {
		return false, model.NewNotRefundableError("no provider credentials for the active environment")
	}
	if req.TransactionID == "" {
		return false, model.NewNotRefundableError("order has no provider transaction id")
	}

	body := refundRequest{
		RequestID:         uuid.NewString(),
		Amount:            req.Amount,
		MerchantReference: req.MerchantReference,
	}

	var resp refundResponse
	path := "/v1/payments/" + url.PathEscape(req.TransactionID) + "/refund"
	if _, err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return false, fmt.Errorf("creating refund: %w", err)
	}
	return resp.RefundID != "", nil
}

// FetchConfiguration reads the merchant's payment configuration, including
// the installment limits.
func (c *Client) FetchConfiguration(ctx context.Context) ([]limits.PaymentConfiguration, error) {
	var resp []limits.PaymentConfiguration
	if _, err := c.do(ctx, http.MethodGet, "/v1/configuration", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching configuration: %w", err)
	}
	return resp, nil
}

// do sends one authenticated request and decodes a 2xx body into out.
// It returns the endpoint used so callers can build hosted-checkout URLs.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (Endpoint, error) {
	s := c.settings.Load()
	creds, err := s.ActiveCredentials()
	if err != nil {
		return Endpoint{}, err
	}
	ep, err := c.endpoint(s.Environment)
	if err != nil {
		return Endpoint{}, err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return ep, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(ep.APIURL, "/")+path, bodyReader)
	if err != nil {
		return ep, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(creds.MerchantID, creds.SecretKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ep, model.NewNetworkError(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ep, model.NewNetworkError(serviceName, fmt.Errorf("reading response: %w", err))
	}

	c.logger.Debug("provider request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		return ep, c.parseErrorResponse(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return ep, model.NewProviderError(resp.StatusCode, "malformed_response", "provider response was not valid JSON")
		}
	}
	return ep, nil
}

// parseErrorResponse converts a provider error body into a typed error.
// A 401 also invalidates the cached limits so no new checkout is offered
// until credentials are fixed.
func (c *Client) parseErrorResponse(statusCode int, body []byte) error {
	var perr errorResponse
	_ = json.Unmarshal(body, &perr) // best effort

	if statusCode == http.StatusUnauthorized {
		c.settings.InvalidateLimits()
		c.logger.Warn("provider rejected credentials, payment limits invalidated")
		return model.NewAuthError(serviceName)
	}
	return model.NewProviderError(statusCode, perr.ErrorCode, perr.Message)
}

// IsRetryable reports whether err came from an idempotent read that may be
// repeated. Only network failures qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, model.ErrNetwork)
}
