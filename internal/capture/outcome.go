package capture

import (
	"errors"

	"bnpl-gateway/internal/integrity"
	"bnpl-gateway/internal/model"
)

// Redirect is where the shopper is sent after a flow step.
type Redirect string

const (
	RedirectNone          Redirect = ""
	RedirectProvider      Redirect = "provider"
	RedirectOrderReceived Redirect = "order-received"
	RedirectPaymentPage   Redirect = "payment-page"
	RedirectCart          Redirect = "cart"
	RedirectGeneric       Redirect = "generic"
)

const genericDescription = "There was a problem processing your payment. Please try again."

// Outcome is the result of one orchestrator step. Kind is KindNone on
// success; Description is always safe to show the shopper.
type Outcome struct {
	State         model.FlowState   `json:"state"`
	Kind          model.ErrorKind   `json:"kind,omitempty"`
	Description   string            `json:"description,omitempty"`
	Redirect      Redirect          `json:"redirect,omitempty"`
	URL           string            `json:"url,omitempty"`
	Order         *model.LocalOrder `json:"order,omitempty"`
	Token         string            `json:"token,omitempty"`
	RemoteOrderID string            `json:"remote_order_id,omitempty"`

	// Err is the underlying failure, for callers that need errors.Is.
	Err error `json:"-"`
}

// Failed reports whether the flow ended in FAILED.
func (o Outcome) Failed() bool {
	return o.State == model.StateFailed
}

// RedirectFor picks the shopper's destination for a failure kind.
// Failures after a local order exists land on its payment page.
func RedirectFor(kind model.ErrorKind, hasOrder bool) Redirect {
	switch kind {
	case model.KindNone:
		return RedirectOrderReceived
	case model.KindDeclined:
		return RedirectPaymentPage
	case model.KindIntegrity, model.KindInvalidRequest, model.KindInvalidArgument,
		model.KindOutsideLimits, model.KindNotFound:
		return RedirectCart
	}
	if hasOrder {
		return RedirectPaymentPage
	}
	return RedirectGeneric
}

// describe renders a shopper-facing message for err.
func describe(err error) string {
	var v *integrity.Violation
	if errors.As(err, &v) {
		return v.Message()
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "INTERNAL_ERROR", "CONFIGURATION_ERROR", "AUTH_ERROR", "NETWORK_ERROR", "UPSTREAM_ERROR":
			return genericDescription
		}
		return apiErr.Message
	}
	return genericDescription
}
