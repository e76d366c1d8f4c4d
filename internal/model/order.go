package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RemoteOrderStatus is the provider-side status of an order.
type RemoteOrderStatus string

const (
	RemoteStatusPending  RemoteOrderStatus = "PENDING"
	RemoteStatusApproved RemoteOrderStatus = "APPROVED"
	RemoteStatusDeclined RemoteOrderStatus = "DECLINED"
)

// RemoteOrder is the provider's view of an order, as quoted at creation time.
// ShippingOptionID is empty when the order was created without shipping.
type RemoteOrder struct {
	ID                string
	Token             string
	Status            RemoteOrderStatus
	ConsumerEmail     string
	MerchantReference string
	Items             []LineItem
	Discounts         []Discount
	Total             Money
	ShippingOptionID  string
}

// PaymentStatus is the local order's payment state.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Note is one entry in a local order's append-only audit trail.
type Note struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

// LocalOrder is the merchant's own order record.
type LocalOrder struct {
	ID             string        `json:"id"`
	Number         string        `json:"number"` // display number used as merchant reference
	Amount         Money         `json:"amount"`
	Status         PaymentStatus `json:"status"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	TransactionRef string        `json:"transaction_ref,omitempty"`
	ProviderToken  string        `json:"provider_token,omitempty"`
	BillingEmail   string        `json:"billing_email,omitempty"`
	Refunded       Money         `json:"refunded"`
	Notes          []Note        `json:"notes,omitempty"`
}

// MerchantReference returns the identifier sent to the provider for this order.
func (o *LocalOrder) MerchantReference() string {
	if o.Number != "" {
		return o.Number
	}
	return o.ID
}

// IsPaid reports whether payment has been captured for this order.
func (o *LocalOrder) IsPaid() bool {
	return o.Status == PaymentPaid
}

// RefundableAmount is the captured amount not yet refunded.
func (o *LocalOrder) RefundableAmount() decimal.Decimal {
	remaining := o.Amount.Amount.Sub(o.Refunded.Amount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// Refund is a single refund against a captured order.
type Refund struct {
	OrderID   string `json:"order_id"`
	Amount    Money  `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	Succeeded bool   `json:"succeeded"`
}
