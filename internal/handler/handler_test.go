package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/capture"
	"bnpl-gateway/internal/integrity"
	"bnpl-gateway/internal/limits"
	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/session"
)

const testAdminToken = "admin-secret"

var testPages = Pages{
	OrderReceived: "https://shop.example/checkout/order-received/",
	PaymentPage:   "https://shop.example/checkout/order-pay/",
	Cart:          "https://shop.example/cart/",
}

func testSettings() *merchant.Holder {
	return merchant.NewHolder(merchant.Settings{
		Enabled:     true,
		Environment: merchant.Sandbox,
		Sandbox:     merchant.Credentials{MerchantID: "m", SecretKey: "s"},
		Limits:      limits.New(decimal.NewFromInt(50), decimal.NewFromInt(1000), "AUD"),
	})
}

// testServer wires the handler the way cmd/gateway does: session
// middleware in front of the mux.
func testServer(mock *MockPayments, opts Options) (*Handler, http.Handler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Pages == (Pages{}) {
		opts.Pages = testPages
	}
	h := New(mock, testSettings(), opts, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, session.Middleware(ExpressPrefix, logger)(mux)
}

func testHandler(mock *MockPayments) (*Handler, http.Handler) {
	return testServer(mock, Options{AdminToken: testAdminToken})
}

func getErrorCode(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error.Code
}

func doJSON(srv http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func sessionHeaders(cart string) map[string]string {
	return map[string]string{session.Header: `cart="` + cart + `"`}
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func TestHandleHealth(t *testing.T) {
	_, srv := testHandler(&MockPayments{})

	for _, path := range []string{"/health", "/healthz"} {
		w := doJSON(srv, "GET", path, nil, nil)
		if w.Code != http.StatusOK {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusOK)
		}
		var resp healthResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.Status != "ok" {
			t.Errorf("%s: Status = %s, want ok", path, resp.Status)
		}
	}
}

func TestHandleLimits(t *testing.T) {
	h, srv := testHandler(&MockPayments{})

	w := doJSON(srv, "GET", "/limits", nil, nil)
	var resp limitsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if !resp.Enabled || !resp.Available || resp.Minimum != "50.00" || resp.Maximum != "1000.00" || resp.Currency != "AUD" {
		t.Errorf("limits = %+v", resp)
	}

	h.settings.InvalidateLimits()
	w = doJSON(srv, "GET", "/limits", nil, nil)
	resp = limitsResponse{}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Available || resp.Minimum != "N/A" || resp.Maximum != "N/A" {
		t.Errorf("invalidated limits = %+v", resp)
	}
}

func TestHandleSchedule(t *testing.T) {
	_, srv := testHandler(&MockPayments{})

	tests := []struct {
		name         string
		query        string
		wantStatus   int
		wantCode     string
		wantAmounts  []string
		wantWithin   bool
		wantCurrency string
	}{
		{
			name:         "remainder on last installment",
			query:        "amount=100.01",
			wantStatus:   http.StatusOK,
			wantAmounts:  []string{"25.00", "25.00", "25.00", "25.01"},
			wantWithin:   true,
			wantCurrency: "AUD",
		},
		{
			name:         "above maximum",
			query:        "amount=1000.01&installments=2",
			wantStatus:   http.StatusOK,
			wantAmounts:  []string{"500.01", "500.00"},
			wantWithin:   false,
			wantCurrency: "AUD",
		},
		{
			name:         "other currency is never within limits",
			query:        "amount=100&currency=nzd",
			wantStatus:   http.StatusOK,
			wantAmounts:  []string{"25.00", "25.00", "25.00", "25.00"},
			wantWithin:   false,
			wantCurrency: "NZD",
		},
		{name: "not a number", query: "amount=ten", wantStatus: http.StatusBadRequest, wantCode: "INVALID_ARGUMENT"},
		{name: "negative", query: "amount=-1", wantStatus: http.StatusBadRequest, wantCode: "INVALID_ARGUMENT"},
		{name: "bad count", query: "amount=10&installments=x", wantStatus: http.StatusBadRequest, wantCode: "INVALID_ARGUMENT"},
		{name: "negative count", query: "amount=10&installments=-2", wantStatus: http.StatusBadRequest, wantCode: "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(srv, "GET", "/schedule?"+tt.query, nil, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if code := getErrorCode(w.Body.Bytes()); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
				return
			}

			var resp scheduleResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if len(resp.Installments) != len(tt.wantAmounts) {
				t.Fatalf("installments = %d, want %d", len(resp.Installments), len(tt.wantAmounts))
			}
			for i, want := range tt.wantAmounts {
				got := resp.Installments[i]
				if model.FormatAmount(got.Amount.Amount) != want || got.Number != i+1 {
					t.Errorf("installment %d = %+v, want %s", i, got, want)
				}
				if got.Amount.Currency != tt.wantCurrency {
					t.Errorf("currency = %q, want %q", got.Amount.Currency, tt.wantCurrency)
				}
			}
			if resp.WithinLimits != tt.wantWithin {
				t.Errorf("within_limits = %v, want %v", resp.WithinLimits, tt.wantWithin)
			}
		})
	}
}

func TestExpressRequiresSession(t *testing.T) {
	_, srv := testHandler(&MockPayments{})

	for _, path := range []string{"/express/token", "/express/complete", "/express/shipping", "/express/shipping-options"} {
		w := doJSON(srv, "POST", path, map[string]string{}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusBadRequest)
		}
		if code := getErrorCode(w.Body.Bytes()); code != "SESSION_REQUIRED" {
			t.Errorf("%s: code = %q, want SESSION_REQUIRED", path, code)
		}
	}
}

func TestHandleStartExpress(t *testing.T) {
	var gotCart string
	mock := &MockPayments{
		StartExpressFunc: func(ctx context.Context, cartToken string) capture.Outcome {
			gotCart = cartToken
			return capture.Outcome{
				State:    model.StateProviderOrderCreated,
				Redirect: capture.RedirectProvider,
				URL:      "https://portal.provider.example/checkout?token=tok_1",
				Token:    "tok_1",
			}
		},
	}
	_, srv := testHandler(mock)

	w := doJSON(srv, "POST", "/express/token", nil, sessionHeaders("cart-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if gotCart != "cart-1" {
		t.Errorf("cart token = %q, want cart-1", gotCart)
	}
	if got := w.Header().Get(session.Header); got != `cart="cart-1"` {
		t.Errorf("%s response header = %q", session.Header, got)
	}

	var resp flowResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token != "tok_1" || resp.RedirectURL != "https://portal.provider.example/checkout?token=tok_1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleStartExpress_OutsideLimits(t *testing.T) {
	mock := &MockPayments{
		StartExpressFunc: func(ctx context.Context, cartToken string) capture.Outcome {
			err := model.NewOutsideLimitsError(model.MustMoney("1200", "AUD"))
			return capture.Outcome{
				State:       model.StateFailed,
				Kind:        model.KindOutsideLimits,
				Description: err.Message,
				Redirect:    capture.RedirectCart,
				Err:         err,
			}
		},
	}
	_, srv := testHandler(mock)

	w := doJSON(srv, "POST", "/express/token", nil, map[string]string{session.CartTokenHeader: "cart-1"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	var resp flowResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Kind != model.KindOutsideLimits || !strings.HasPrefix(resp.RedirectURL, testPages.Cart) {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleCompleteExpress(t *testing.T) {
	tests := []struct {
		name       string
		outcome    capture.Outcome
		wantStatus int
		wantPage   string
		wantQuery  url.Values
	}{
		{
			name: "captured",
			outcome: capture.Outcome{
				State:         model.StateCaptured,
				Redirect:      capture.RedirectOrderReceived,
				Order:         &model.LocalOrder{ID: "1001"},
				Token:         "tok_1",
				RemoteOrderID: "A1",
			},
			wantStatus: http.StatusOK,
			wantPage:   testPages.OrderReceived,
			wantQuery:  url.Values{"order": {"1001"}},
		},
		{
			name: "cart changed",
			outcome: capture.Outcome{
				State:       model.StateFailed,
				Kind:        model.KindIntegrity,
				Description: "The order total has changed.",
				Redirect:    capture.RedirectCart,
				Err:         &integrity.Violation{Field: integrity.FieldTotal},
			},
			wantStatus: http.StatusConflict,
			wantPage:   testPages.Cart,
			wantQuery:  url.Values{"payment_error": {"The order total has changed."}},
		},
		{
			name: "declined",
			outcome: capture.Outcome{
				State:       model.StateFailed,
				Kind:        model.KindDeclined,
				Description: "Payment declined.",
				Redirect:    capture.RedirectPaymentPage,
				Order:       &model.LocalOrder{ID: "1001"},
				Err:         model.NewDeclinedError("A1"),
			},
			wantStatus: http.StatusPaymentRequired,
			wantPage:   testPages.PaymentPage,
			wantQuery:  url.Values{"order": {"1001"}, "payment_error": {"Payment declined."}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotCart, gotToken string
			mock := &MockPayments{
				CompleteExpressFunc: func(ctx context.Context, cartToken, token string) capture.Outcome {
					gotCart, gotToken = cartToken, token
					return tt.outcome
				},
			}
			_, srv := testHandler(mock)

			w := doJSON(srv, "POST", "/express/complete", completeExpressRequest{Token: "tok_1"}, sessionHeaders("cart-1"))

			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if gotCart != "cart-1" || gotToken != "tok_1" {
				t.Errorf("called with (%q, %q)", gotCart, gotToken)
			}

			var resp flowResponse
			json.NewDecoder(w.Body).Decode(&resp)
			u, err := url.Parse(resp.RedirectURL)
			if err != nil {
				t.Fatalf("redirect_url %q: %v", resp.RedirectURL, err)
			}
			if page := u.Scheme + "://" + u.Host + u.Path; page != tt.wantPage {
				t.Errorf("page = %q, want %q", page, tt.wantPage)
			}
			for k, v := range tt.wantQuery {
				if got := u.Query().Get(k); got != v[0] {
					t.Errorf("query %s = %q, want %q", k, got, v[0])
				}
			}
		})
	}
}

func TestHandleCompleteExpress_Validation(t *testing.T) {
	_, srv := testHandler(&MockPayments{})

	w := doJSON(srv, "POST", "/express/complete", map[string]string{}, sessionHeaders("cart-1"))
	if w.Code != http.StatusBadRequest || getErrorCode(w.Body.Bytes()) != "VALIDATION_ERROR" {
		t.Errorf("missing token: Status = %d, Body = %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest("POST", "/express/complete", strings.NewReader("{not json"))
	req.Header.Set(session.Header, `cart="cart-1"`)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON: Status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleShippingOptions(t *testing.T) {
	var gotAddr model.Address
	mock := &MockPayments{
		ShippingOptionsFunc: func(ctx context.Context, cartToken string, addr model.Address) ([]model.ShippingOption, error) {
			gotAddr = addr
			return []model.ShippingOption{{
				ID:         "flat_rate:1",
				Name:       "Standard",
				Cost:       model.MustMoney("20", "AUD"),
				OrderTotal: model.MustMoney("120", "AUD"),
			}}, nil
		},
	}
	_, srv := testHandler(mock)

	body := map[string]string{"name": "Jo Citizen", "countryCode": "AU", "postcode": "2000", "suburb": "Sydney"}
	w := doJSON(srv, "POST", "/express/shipping-options", body, sessionHeaders("cart-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	if gotAddr.Country != "AU" || gotAddr.City != "Sydney" {
		t.Errorf("address = %+v", gotAddr)
	}
	var resp struct {
		Options []struct {
			ID             string `json:"id"`
			ShippingAmount struct {
				Amount string `json:"amount"`
			} `json:"shippingAmount"`
		} `json:"options"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Options) != 1 || resp.Options[0].ID != "flat_rate:1" || resp.Options[0].ShippingAmount.Amount != "20.00" {
		t.Errorf("options = %+v", resp.Options)
	}
}

func TestHandleSelectShipping(t *testing.T) {
	mock := &MockPayments{
		SelectShippingFunc: func(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error) {
			if optionID != "flat_rate:2" {
				return nil, model.NewValidationError("shipping", "unknown option")
			}
			return &model.CartSnapshot{Total: model.MustMoney("135", "AUD"), ShippingOptionID: optionID}, nil
		},
	}
	_, srv := testHandler(mock)

	w := doJSON(srv, "POST", "/express/shipping", selectShippingRequest{OptionID: "flat_rate:2"}, sessionHeaders("cart-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	var resp cartResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Total.String() != "135.00 AUD" || resp.ShippingOptionID != "flat_rate:2" {
		t.Errorf("response = %+v", resp)
	}

	w = doJSON(srv, "POST", "/express/shipping", selectShippingRequest{OptionID: "pickup"}, sessionHeaders("cart-1"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown option: Status = %d", w.Code)
	}

	w = doJSON(srv, "POST", "/express/shipping", selectShippingRequest{}, sessionHeaders("cart-1"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing option: Status = %d", w.Code)
	}
}

func TestHandleStartRedirect(t *testing.T) {
	mock := &MockPayments{
		StartRedirectFunc: func(ctx context.Context, orderID string) capture.Outcome {
			if orderID != "2001" {
				return capture.Outcome{State: model.StateFailed, Kind: model.KindNotFound, Redirect: capture.RedirectCart, Err: model.NewNotFoundError("order")}
			}
			return capture.Outcome{
				State:    model.StateProviderOrderCreated,
				Redirect: capture.RedirectProvider,
				URL:      "https://portal.provider.example/checkout?token=tok_9",
				Token:    "tok_9",
				Order:    &model.LocalOrder{ID: "2001"},
			}
		},
	}
	_, srv := testHandler(mock)

	w := doJSON(srv, "POST", "/orders/2001/payment", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	var resp flowResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Token != "tok_9" || resp.OrderID != "2001" || !strings.Contains(resp.RedirectURL, "token=tok_9") {
		t.Errorf("response = %+v", resp)
	}

	w = doJSON(srv, "POST", "/orders/404/payment", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown order: Status = %d", w.Code)
	}
}

func TestHandleRedirectReturn(t *testing.T) {
	var got [3]string
	mock := &MockPayments{
		CompleteRedirectFunc: func(ctx context.Context, token, status, state string) capture.Outcome {
			got = [3]string{token, status, state}
			if status != "SUCCESS" {
				return capture.Outcome{
					State:       model.StateFailed,
					Kind:        model.KindInvalidRequest,
					Description: "Payment was cancelled.",
					Redirect:    capture.RedirectPaymentPage,
					Order:       &model.LocalOrder{ID: "2001"},
				}
			}
			return capture.Outcome{
				State:    model.StateCaptured,
				Redirect: capture.RedirectOrderReceived,
				Order:    &model.LocalOrder{ID: "2001"},
			}
		},
	}
	_, srv := testHandler(mock)

	tests := []struct {
		name      string
		query     string
		wantPage  string
		wantOrder string
		wantError bool
	}{
		{"success", "orderToken=tok_9&status=SUCCESS&state=s1", testPages.OrderReceived, "2001", false},
		{"cancelled", "orderToken=tok_9&status=CANCELLED&state=s1", testPages.PaymentPage, "2001", true},
		{"missing token", "status=SUCCESS", testPages.Cart, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(srv, "GET", "/payment/return?"+tt.query, nil, nil)
			if w.Code != http.StatusFound {
				t.Fatalf("Status = %d, want %d", w.Code, http.StatusFound)
			}
			loc, err := url.Parse(w.Header().Get("Location"))
			if err != nil {
				t.Fatalf("Location: %v", err)
			}
			if page := loc.Scheme + "://" + loc.Host + loc.Path; page != tt.wantPage {
				t.Errorf("page = %q, want %q", page, tt.wantPage)
			}
			if loc.Query().Get("order") != tt.wantOrder {
				t.Errorf("order = %q, want %q", loc.Query().Get("order"), tt.wantOrder)
			}
			if hasError := loc.Query().Get("payment_error") != ""; hasError != tt.wantError {
				t.Errorf("payment_error present = %v, want %v", hasError, tt.wantError)
			}
		})
	}

	if got != [3]string{"tok_9", "CANCELLED", "s1"} {
		t.Errorf("last call = %v", got)
	}
}

func TestHandleRedirectReturn_NoPages(t *testing.T) {
	mock := &MockPayments{
		CompleteRedirectFunc: func(ctx context.Context, token, status, state string) capture.Outcome {
			return capture.Outcome{State: model.StateCaptured, Redirect: capture.RedirectOrderReceived}
		},
	}
	h, srv := testHandler(mock)
	h.opts.Pages = Pages{}

	w := doJSON(srv, "GET", "/payment/return?orderToken=tok&status=SUCCESS", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestHandleRefund(t *testing.T) {
	var gotAmount decimal.Decimal
	mock := &MockPayments{
		RefundFunc: func(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*model.Refund, error) {
			gotAmount = amount
			switch orderID {
			case "1001":
				return &model.Refund{OrderID: orderID, Amount: model.Money{Amount: amount, Currency: "AUD"}, Reason: reason, Succeeded: true}, nil
			case "1002":
				return &model.Refund{OrderID: orderID, Amount: model.Money{Amount: amount, Currency: "AUD"}}, nil
			default:
				return nil, model.NewNotRefundableError("order has no captured payment")
			}
		},
	}
	_, srv := testHandler(mock)

	tests := []struct {
		name       string
		path       string
		body       any
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{"no token", "/orders/1001/refunds", refundRequest{Amount: "10"}, nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong token", "/orders/1001/refunds", refundRequest{Amount: "10"}, map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"refunded", "/orders/1001/refunds", refundRequest{Amount: "20.50", Reason: "damaged"}, adminHeaders(), http.StatusOK, ""},
		{"not confirmed", "/orders/1002/refunds", refundRequest{Amount: "5"}, adminHeaders(), http.StatusBadGateway, ""},
		{"not refundable", "/orders/1003/refunds", refundRequest{Amount: "5"}, adminHeaders(), http.StatusUnprocessableEntity, "NOT_REFUNDABLE"},
		{"bad amount", "/orders/1001/refunds", refundRequest{Amount: "lots"}, adminHeaders(), http.StatusBadRequest, "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(srv, "POST", tt.path, tt.body, tt.headers)
			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if code := getErrorCode(w.Body.Bytes()); code != tt.wantCode {
					t.Errorf("code = %q, want %q", code, tt.wantCode)
				}
			}
		})
	}

	if gotAmount.String() != "5" {
		t.Errorf("last amount = %s", gotAmount)
	}
}

func TestAdminDisabled(t *testing.T) {
	_, srv := testServer(&MockPayments{}, Options{})

	w := doJSON(srv, "GET", "/flows/tok_1", nil, map[string]string{"Authorization": "Bearer "})
	if w.Code != http.StatusForbidden || getErrorCode(w.Body.Bytes()) != "ADMIN_DISABLED" {
		t.Errorf("Status = %d, Body = %s", w.Code, w.Body.String())
	}
}

func TestHandleGetFlow(t *testing.T) {
	mock := &MockPayments{
		FlowFunc: func(ctx context.Context, token string) (*model.FlowRecord, error) {
			if token != "tok_1" {
				return nil, model.NewNotFoundError("flow")
			}
			return &model.FlowRecord{Token: token, Path: model.PathExpress, State: model.StateCaptured, OrderID: "1001"}, nil
		},
	}
	_, srv := testHandler(mock)

	w := doJSON(srv, "GET", "/flows/tok_1", nil, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	var rec model.FlowRecord
	json.NewDecoder(w.Body).Decode(&rec)
	if rec.State != model.StateCaptured || rec.OrderID != "1001" {
		t.Errorf("record = %+v", rec)
	}

	w = doJSON(srv, "GET", "/flows/missing", nil, adminHeaders())
	if w.Code != http.StatusNotFound {
		t.Errorf("missing flow: Status = %d", w.Code)
	}
}

type refresherFunc func(ctx context.Context) error

func (f refresherFunc) RefreshOnce(ctx context.Context) error { return f(ctx) }

func TestHandleRefreshLimits(t *testing.T) {
	settings := testSettings()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(&MockPayments{}, settings, Options{
		AdminToken: testAdminToken,
		Refresher: refresherFunc(func(ctx context.Context) error {
			settings.SetLimits(limits.New(decimal.NewFromInt(1), decimal.NewFromInt(2000), "AUD"))
			return nil
		}),
	}, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	w := doJSON(mux, "POST", "/limits/refresh", nil, adminHeaders())
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	var resp limitsResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Maximum != "2000.00" {
		t.Errorf("Maximum = %q, want 2000.00", resp.Maximum)
	}

	_, srv := testHandler(&MockPayments{})
	w = doJSON(srv, "POST", "/limits/refresh", nil, adminHeaders())
	if w.Code != http.StatusInternalServerError {
		t.Errorf("no refresher: Status = %d", w.Code)
	}
}

func TestOutcomeStatus(t *testing.T) {
	tests := []struct {
		name string
		out  capture.Outcome
		want int
	}{
		{"success", capture.Outcome{State: model.StateCaptured}, http.StatusOK},
		{"started", capture.Outcome{State: model.StateProviderOrderCreated}, http.StatusOK},
		{"declined", capture.Outcome{State: model.StateFailed, Err: model.NewDeclinedError("A1")}, http.StatusPaymentRequired},
		{"network", capture.Outcome{State: model.StateFailed, Err: model.NewNetworkError("provider", nil)}, http.StatusBadGateway},
		{"integrity", capture.Outcome{State: model.StateFailed, Kind: model.KindIntegrity, Err: &integrity.Violation{Field: integrity.FieldItems}}, http.StatusConflict},
		{"unknown", capture.Outcome{State: model.StateFailed, Kind: model.KindInternal}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeStatus(tt.out); got != tt.want {
				t.Errorf("outcomeStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPagesURL(t *testing.T) {
	pages := Pages{
		OrderReceived: "https://shop.example/thanks?lang=en",
		PaymentPage:   "https://shop.example/pay/",
		Cart:          "https://shop.example/cart/",
	}
	order := &model.LocalOrder{ID: "7"}

	tests := []struct {
		name string
		out  capture.Outcome
		want string
	}{
		{"provider passthrough", capture.Outcome{Redirect: capture.RedirectProvider, URL: "https://p.example/x"}, "https://p.example/x"},
		{"keeps existing query", capture.Outcome{State: model.StateCaptured, Redirect: capture.RedirectOrderReceived, Order: order}, "https://shop.example/thanks?lang=en&order=7"},
		{"cart omits order", capture.Outcome{State: model.StateFailed, Redirect: capture.RedirectCart, Order: order, Description: "Changed"}, "https://shop.example/cart/?payment_error=Changed"},
		{"generic falls back to cart", capture.Outcome{State: model.StateFailed, Redirect: capture.RedirectGeneric}, "https://shop.example/cart/"},
		{"payment page", capture.Outcome{State: model.StateFailed, Redirect: capture.RedirectPaymentPage, Order: order}, "https://shop.example/pay/?order=7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pages.URL(tt.out); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}

	if got := (Pages{}).URL(capture.Outcome{Redirect: capture.RedirectCart}); got != "" {
		t.Errorf("empty pages URL() = %q", got)
	}
}
