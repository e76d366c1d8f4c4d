package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/schedule"
)

// limitsResponse shows the cached limits the way merchant settings do:
// an unavailable bound reads "N/A".
type limitsResponse struct {
	Enabled   bool   `json:"enabled"`
	Available bool   `json:"available"`
	Minimum   string `json:"minimum"`
	Maximum   string `json:"maximum"`
	Currency  string `json:"currency,omitempty"`
}

func newLimitsResponse(s merchant.Settings) limitsResponse {
	return limitsResponse{
		Enabled:   s.Enabled,
		Available: s.Limits.Available(),
		Minimum:   s.Limits.Min.String(),
		Maximum:   s.Limits.Max.String(),
		Currency:  s.Limits.Currency,
	}
}

// handleLimits returns the cached payment limits.
// GET /limits
func (h *Handler) handleLimits(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newLimitsResponse(h.settings.Load()))
}

// scheduleResponse is an installment breakdown for one amount.
type scheduleResponse struct {
	Total        model.Money            `json:"total"`
	Installments []schedule.Installment `json:"installments"`
	WithinLimits bool                   `json:"within_limits"`
}

// quote builds the schedule for amount. An empty currency means the limits
// currency; a zero count means the default number of installments.
func quote(settings merchant.Settings, amount, currency string, count int) (*scheduleResponse, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, model.NewInvalidArgumentError("amount", "must be a decimal number")
	}
	if value.IsNegative() {
		return nil, model.NewInvalidArgumentError("amount", "must not be negative")
	}
	if currency == "" {
		currency = settings.Limits.Currency
	}
	if count == 0 {
		count = schedule.DefaultInstallments
	}

	total := model.Money{Amount: value, Currency: strings.ToUpper(currency)}
	installments, err := schedule.ForMoney(total, count)
	if err != nil {
		return nil, err
	}
	return &scheduleResponse{
		Total:        total,
		Installments: installments,
		WithinLimits: withinLimits(settings, total),
	}, nil
}

// withinLimits is the check a storefront runs before offering the method.
func withinLimits(s merchant.Settings, total model.Money) bool {
	if !s.Enabled || !merchant.CurrencySupported(total.Currency) {
		return false
	}
	return s.Limits.Accepts(total)
}

// handleSchedule returns the installment breakdown for an amount.
// GET /schedule?amount=&currency=&installments=
func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	count := 0
	if raw := q.Get("installments"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, model.NewInvalidArgumentError("installments", "must be an integer"))
			return
		}
		count = n
	}

	resp, err := quote(h.settings.Load(), q.Get("amount"), q.Get("currency"), count)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

