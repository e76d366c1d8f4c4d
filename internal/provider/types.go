package provider

import (
	"time"

	"bnpl-gateway/internal/model"
)

// === Provider API wire types ===

// orderRequest is the body of POST /v1/orders.
type orderRequest struct {
	RequestID         string           `json:"requestId"`
	TotalAmount       model.Money      `json:"totalAmount"`
	Consumer          wireConsumer     `json:"consumer"`
	Items             []model.LineItem `json:"items"`
	Discounts         []model.Discount `json:"discounts,omitempty"`
	ShippingAmount    *model.Money     `json:"shippingAmount,omitempty"`
	Merchant          wireMerchant     `json:"merchant"`
	MerchantReference string           `json:"merchantReference,omitempty"`
	Mode              string           `json:"mode,omitempty"`
}

type wireConsumer struct {
	Email      string `json:"email,omitempty"`
	GivenNames string `json:"givenNames,omitempty"`
	Surname    string `json:"surname,omitempty"`
}

type wireMerchant struct {
	RedirectConfirmURL string `json:"redirectConfirmUrl,omitempty"`
	RedirectCancelURL  string `json:"redirectCancelUrl,omitempty"`
	PopupOriginURL     string `json:"popupOriginUrl,omitempty"`
}

// orderTokenResponse is the response of POST /v1/orders.
type orderTokenResponse struct {
	Token               string    `json:"token"`
	Expires             time.Time `json:"expires"`
	RedirectCheckoutURL string    `json:"redirectCheckoutUrl,omitempty"`
}

// wireOrder is a provider order as returned by GET /v1/orders/{token}
// and POST /v1/payments/capture.
type wireOrder struct {
	ID                       string           `json:"id,omitempty"`
	Token                    string           `json:"token"`
	Status                   string           `json:"status,omitempty"`
	Consumer                 wireConsumer     `json:"consumer"`
	MerchantReference        string           `json:"merchantReference,omitempty"`
	Items                    []model.LineItem `json:"items"`
	Discounts                []model.Discount `json:"discounts"`
	TotalAmount              *model.Money     `json:"totalAmount"`
	ShippingOptionIdentifier *string          `json:"shippingOptionIdentifier,omitempty"`
}

func (w *wireOrder) toModel() *model.RemoteOrder {
	o := &model.RemoteOrder{
		ID:                w.ID,
		Token:             w.Token,
		Status:            model.RemoteOrderStatus(w.Status),
		ConsumerEmail:     w.Consumer.Email,
		MerchantReference: w.MerchantReference,
		Items:             w.Items,
		Discounts:         w.Discounts,
	}
	if o.Items == nil {
		o.Items = []model.LineItem{}
	}
	if o.Discounts == nil {
		o.Discounts = []model.Discount{}
	}
	if w.TotalAmount != nil {
		o.Total = *w.TotalAmount
	}
	if w.ShippingOptionIdentifier != nil {
		o.ShippingOptionID = *w.ShippingOptionIdentifier
	}
	return o
}

// captureRequest is the body of POST /v1/payments/capture.
// Amount is omitted in compatibility mode.
type captureRequest struct {
	RequestID         string       `json:"requestId"`
	Token             string       `json:"token"`
	MerchantReference string       `json:"merchantReference,omitempty"`
	Amount            *model.Money `json:"amount,omitempty"`
}

// refundRequest is the body of POST /v1/payments/{id}/refund.
type refundRequest struct {
	RequestID         string      `json:"requestId"`
	Amount            model.Money `json:"amount"`
	MerchantReference string      `json:"merchantReference,omitempty"`
}

type refundResponse struct {
	RefundID   string      `json:"refundId"`
	RefundedAt time.Time   `json:"refundedAt"`
	Amount     model.Money `json:"amount"`
}

// errorResponse is the provider's error body.
type errorResponse struct {
	ErrorCode      string `json:"errorCode"`
	ErrorID        string `json:"errorId"`
	Message        string `json:"message"`
	HTTPStatusCode int    `json:"httpStatusCode"`
}

// === Client request/response types ===

// Consumer identifies the shopper on order creation.
type Consumer struct {
	Email      string
	GivenNames string
	Surname    string
}

// CreateOrderRequest carries what the provider needs beyond the cart itself.
type CreateOrderRequest struct {
	MerchantReference string
	Consumer          Consumer
	ConfirmURL        string
	CancelURL         string
	// Express creates an express-checkout order; the shopper picks shipping
	// in the provider popup opened from PopupOriginURL.
	Express        bool
	PopupOriginURL string
	ShippingAmount *model.Money
}

// OrderToken is the result of creating a provider order.
type OrderToken struct {
	Token       string    `json:"token"`
	Expires     time.Time `json:"expires"`
	RedirectURL string    `json:"redirect_url"`
}

// RefundRequest describes a refund against a captured provider order.
type RefundRequest struct {
	// TransactionID is the provider order id recorded at capture time.
	TransactionID     string
	MerchantReference string
	Amount            model.Money
	Reason            string
}
