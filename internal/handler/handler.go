// Package handler provides the HTTP and MCP surface of the payment gateway.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/capture"
	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/session"
)

// Payments is the capture orchestrator as seen by the HTTP layer.
type Payments interface {
	StartExpress(ctx context.Context, cartToken string) capture.Outcome
	CompleteExpress(ctx context.Context, cartToken, token string) capture.Outcome
	StartRedirect(ctx context.Context, orderID string) capture.Outcome
	CompleteRedirect(ctx context.Context, token, status, state string) capture.Outcome
	Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*model.Refund, error)
	ShippingOptions(ctx context.Context, cartToken string, addr model.Address) ([]model.ShippingOption, error)
	SelectShipping(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error)
	Flow(ctx context.Context, token string) (*model.FlowRecord, error)
}

var _ Payments = (*capture.Orchestrator)(nil)

// LimitsRefresher refetches the provider limits on demand.
type LimitsRefresher interface {
	RefreshOnce(ctx context.Context) error
}

// Options configure a Handler. Zero values disable the optional parts.
type Options struct {
	// Pages are the storefront destinations for shopper redirects.
	Pages Pages
	// AdminToken guards refunds, flow lookup, limit refresh and MCP.
	// Empty disables those routes.
	AdminToken string
	// Refresher backs POST /limits/refresh.
	Refresher LimitsRefresher
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	payments Payments
	settings *merchant.Holder
	opts     Options
	logger   *slog.Logger
}

// New creates a Handler over the orchestrator and the merchant settings.
func New(payments Payments, settings *merchant.Holder, opts Options, logger *slog.Logger) *Handler {
	return &Handler{
		payments: payments,
		settings: settings,
		opts:     opts,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	// Public pricing information
	mux.HandleFunc("GET /limits", h.handleLimits)
	mux.HandleFunc("GET /schedule", h.handleSchedule)

	// Redirect checkout, driven by the storefront's order-pay page
	mux.HandleFunc("POST /orders/{id}/payment", h.handleStartRedirect)
	mux.HandleFunc("GET /payment/return", h.handleRedirectReturn)

	// Express checkout, scoped to the Checkout-Session cart
	mux.HandleFunc("POST "+ExpressPrefix+"shipping-options", h.handleShippingOptions)
	mux.HandleFunc("POST "+ExpressPrefix+"shipping", h.handleSelectShipping)
	mux.HandleFunc("POST "+ExpressPrefix+"token", h.handleStartExpress)
	mux.HandleFunc("POST "+ExpressPrefix+"complete", h.handleCompleteExpress)

	// Merchant operations
	mux.Handle("POST /orders/{id}/refunds", h.requireAdmin(http.HandlerFunc(h.handleRefund)))
	mux.Handle("GET /flows/{token}", h.requireAdmin(http.HandlerFunc(h.handleGetFlow)))
	mux.Handle("POST /limits/refresh", h.requireAdmin(http.HandlerFunc(h.handleRefreshLimits)))

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.requireAdmin(h.NewMCPHandler()))
}

// ExpressPrefix is the path prefix of the routes that need a cart session.
// Pass it to session.Middleware.
const ExpressPrefix = "/express/"

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an error response, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	apiErr := h.apiError(err)
	h.writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{
			Code:    apiErr.Code,
			Message: apiErr.Message,
		},
	})
}

// apiError finds the APIError in err's chain. Anything else is an internal
// error whose details stay in the log.
func (h *Handler) apiError(err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	h.logger.Error("internal error", slog.String("error", err.Error()))
	return &model.APIError{
		Code:       "INTERNAL_ERROR",
		Message:    "an internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
}

// errorResponse is the JSON structure for error responses.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// cartToken returns the session cart token set by session.Middleware.
func cartToken(r *http.Request) (string, error) {
	sess := session.FromContext(r.Context())
	if sess == nil || sess.CartToken == "" {
		return "", model.NewValidationError(session.Header, "cart session required")
	}
	return sess.CartToken, nil
}

// requireAdmin checks the bearer token on merchant routes.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.AdminToken == "" {
			h.writeError(w, &model.APIError{
				Code:       "ADMIN_DISABLED",
				Message:    "merchant API is not configured",
				StatusCode: http.StatusForbidden,
			})
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(h.opts.AdminToken)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="bnpl-gateway"`)
			h.writeError(w, &model.APIError{
				Code:       "UNAUTHORIZED",
				Message:    "invalid or missing bearer token",
				StatusCode: http.StatusUnauthorized,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
