package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"bnpl-gateway/internal/capture"
	"bnpl-gateway/internal/model"
)

// Pages are the storefront URLs a shopper lands on after a flow step.
type Pages struct {
	OrderReceived string `json:"order_received" yaml:"order_received"`
	PaymentPage   string `json:"payment_page" yaml:"payment_page"`
	Cart          string `json:"cart" yaml:"cart"`
	// Generic defaults to Cart.
	Generic string `json:"generic" yaml:"generic"`
}

// URL resolves the page for out. The order id and, on failure, the
// shopper-facing description are added as query parameters.
func (p Pages) URL(out capture.Outcome) string {
	var base string
	switch out.Redirect {
	case capture.RedirectProvider:
		return out.URL
	case capture.RedirectOrderReceived:
		base = p.OrderReceived
	case capture.RedirectPaymentPage:
		base = p.PaymentPage
	case capture.RedirectCart:
		base = p.Cart
	default:
		base = p.Generic
		if base == "" {
			base = p.Cart
		}
	}
	if base == "" {
		return ""
	}

	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if out.Order != nil && out.Redirect != capture.RedirectCart {
		q.Set("order", out.Order.ID)
	}
	if out.Failed() && out.Description != "" {
		q.Set("payment_error", out.Description)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// flowResponse is the JSON view of an orchestrator outcome. It leaves out
// order notes and billing details.
type flowResponse struct {
	State         model.FlowState  `json:"state"`
	Kind          model.ErrorKind  `json:"kind,omitempty"`
	Description   string           `json:"description,omitempty"`
	Redirect      capture.Redirect `json:"redirect,omitempty"`
	RedirectURL   string           `json:"redirect_url,omitempty"`
	Token         string           `json:"token,omitempty"`
	OrderID       string           `json:"order_id,omitempty"`
	RemoteOrderID string           `json:"remote_order_id,omitempty"`
}

func (h *Handler) writeOutcome(w http.ResponseWriter, out capture.Outcome) {
	resp := flowResponse{
		State:         out.State,
		Kind:          out.Kind,
		Description:   out.Description,
		Redirect:      out.Redirect,
		RedirectURL:   h.opts.Pages.URL(out),
		Token:         out.Token,
		RemoteOrderID: out.RemoteOrderID,
	}
	if out.Order != nil {
		resp.OrderID = out.Order.ID
	}
	h.writeJSON(w, outcomeStatus(out), resp)
}

// outcomeStatus maps a failed outcome to the status of its error.
// Integrity violations are conflicts with the quote.
func outcomeStatus(out capture.Outcome) int {
	if !out.Failed() {
		return http.StatusOK
	}
	var apiErr *model.APIError
	if errors.As(out.Err, &apiErr) {
		return apiErr.StatusCode
	}
	if out.Kind == model.KindIntegrity {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// === Express checkout ===

// handleShippingOptions sets the popup address on the cart and returns the
// shipping options that keep the order within limits.
// POST /express/shipping-options
func (h *Handler) handleShippingOptions(w http.ResponseWriter, r *http.Request) {
	token, err := cartToken(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var addr model.Address
	if err := decodeJSON(r, &addr); err != nil {
		h.writeError(w, err)
		return
	}

	options, err := h.payments.ShippingOptions(r.Context(), token, addr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, shippingOptionsResponse{Options: options})
}

type shippingOptionsResponse struct {
	Options []model.ShippingOption `json:"options"`
}

type selectShippingRequest struct {
	OptionID string `json:"option_id"`
}

type cartResponse struct {
	Total            model.Money `json:"total"`
	ShippingOptionID string      `json:"shipping_option_id,omitempty"`
}

// handleSelectShipping chooses the shipping option picked in the popup.
// POST /express/shipping
func (h *Handler) handleSelectShipping(w http.ResponseWriter, r *http.Request) {
	token, err := cartToken(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req selectShippingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.OptionID == "" {
		h.writeError(w, model.NewValidationError("option_id", "required"))
		return
	}

	cart, err := h.payments.SelectShipping(r.Context(), token, req.OptionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cartResponse{Total: cart.Total, ShippingOptionID: cart.ShippingOptionID})
}

// handleStartExpress creates the provider order for the session cart.
// POST /express/token
func (h *Handler) handleStartExpress(w http.ResponseWriter, r *http.Request) {
	token, err := cartToken(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "starting express checkout")
	h.writeOutcome(w, h.payments.StartExpress(r.Context(), token))
}

type completeExpressRequest struct {
	Token string `json:"token"`
}

// handleCompleteExpress captures the express order once the popup approved it.
// POST /express/complete
func (h *Handler) handleCompleteExpress(w http.ResponseWriter, r *http.Request) {
	cart, err := cartToken(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req completeExpressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Token == "" {
		h.writeError(w, model.NewValidationError("token", "required"))
		return
	}

	h.logger.InfoContext(r.Context(), "completing express checkout", slog.String("token", req.Token))
	h.writeOutcome(w, h.payments.CompleteExpress(r.Context(), cart, req.Token))
}

// === Redirect checkout ===

// handleStartRedirect creates the provider order for an existing local order.
// POST /orders/{id}/payment
func (h *Handler) handleStartRedirect(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		h.writeError(w, model.NewValidationError("id", "order ID required"))
		return
	}
	h.logger.InfoContext(r.Context(), "starting redirect checkout", slog.String("order_id", orderID))
	h.writeOutcome(w, h.payments.StartRedirect(r.Context(), orderID))
}

// handleRedirectReturn is where the provider sends the shopper back. It
// always answers with a redirect to a storefront page.
// GET /payment/return?orderToken=&status=&state=
func (h *Handler) handleRedirectReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("orderToken")

	var out capture.Outcome
	if token == "" {
		out = capture.Outcome{
			State:       model.StateFailed,
			Kind:        model.KindInvalidRequest,
			Description: "Missing payment token.",
			Redirect:    capture.RedirectCart,
		}
	} else {
		out = h.payments.CompleteRedirect(r.Context(), token, q.Get("status"), q.Get("state"))
	}

	target := h.opts.Pages.URL(out)
	if target == "" {
		// No storefront pages configured; report the outcome directly.
		h.writeOutcome(w, out)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
