package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
)

type refundRequest struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

// handleRefund refunds part or all of a captured order.
// POST /orders/{id}/refunds
func (h *Handler) handleRefund(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		h.writeError(w, model.NewInvalidArgumentError("amount", "must be a decimal number"))
		return
	}

	h.logger.InfoContext(r.Context(), "refunding order",
		slog.String("order_id", orderID),
		slog.String("amount", model.FormatAmount(amount)),
	)

	refund, err := h.payments.Refund(r.Context(), orderID, amount, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if !refund.Succeeded {
		// The provider did not confirm; nothing was recorded locally.
		status = http.StatusBadGateway
	}
	h.writeJSON(w, status, refund)
}

// handleGetFlow returns the persisted progress of one capture flow.
// GET /flows/{token}
func (h *Handler) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	rec, err := h.payments.Flow(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// handleRefreshLimits refetches limits from the provider now.
// POST /limits/refresh
func (h *Handler) handleRefreshLimits(w http.ResponseWriter, r *http.Request) {
	if h.opts.Refresher == nil {
		h.writeError(w, model.NewConfigurationError("limits refresher not configured"))
		return
	}
	if err := h.opts.Refresher.RefreshOnce(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newLimitsResponse(h.settings.Load()))
}
