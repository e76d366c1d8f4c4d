// Package store defines what the payment core needs from the merchant's
// storefront: live cart state and local order records.
package store

import (
	"context"
	"errors"

	"bnpl-gateway/internal/model"
)

// ErrAlreadyPaid is returned by MarkPaid for an order that is already paid.
var ErrAlreadyPaid = errors.New("order already paid")

// Store abstracts the storefront. Each platform provides its own implementation.
// Cart methods are keyed by the shopper's cart token; order methods by local order id.
type Store interface {
	// CurrentCart derives a snapshot of the live cart, including the
	// shipping options available for its current destination.
	CurrentCart(ctx context.Context, cartToken string) (*model.CartSnapshot, error)

	// SetShippingAddress updates the cart's destination and returns the
	// recalculated cart with its shipping options.
	SetShippingAddress(ctx context.Context, cartToken string, addr model.Address) (*model.CartSnapshot, error)

	// SelectShipping chooses a shipping option for the cart.
	SelectShipping(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error)

	// CreateOrder turns the live cart into a pending local order.
	CreateOrder(ctx context.Context, cartToken string, req OrderRequest) (*model.LocalOrder, error)

	// GetOrder loads a local order by id or order number.
	GetOrder(ctx context.Context, orderID string) (*model.LocalOrder, error)

	// OrderSnapshot derives the quote for an existing local order
	// (the redirect path quotes an order, not a cart).
	OrderSnapshot(ctx context.Context, orderID string) (*model.CartSnapshot, error)

	// SetProviderToken records the provider token on the order.
	SetProviderToken(ctx context.Context, orderID, token string) error

	// AddNote appends to the order's audit trail.
	AddNote(ctx context.Context, orderID, note string) error

	// MarkPaid completes payment with the provider transaction reference.
	// Returns ErrAlreadyPaid if the order is already paid.
	MarkPaid(ctx context.Context, orderID, transactionRef, note string) error

	// MarkFailed sets the order's payment status to failed.
	MarkFailed(ctx context.Context, orderID, note string) error

	// RecordRefund adds amount to the order's refunded total.
	RecordRefund(ctx context.Context, orderID string, amount model.Money, note string) error
}

// OrderRequest carries checkout details that do not come from the cart.
type OrderRequest struct {
	PaymentMethod string
	// BillingEmail is used only when the cart has no billing email.
	BillingEmail string
}
