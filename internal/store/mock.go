package store

import (
	"context"

	"bnpl-gateway/internal/model"
)

// Mock implements Store for testing.
// Each method can be configured via function fields.
type Mock struct {
	CurrentCartFunc        func(ctx context.Context, cartToken string) (*model.CartSnapshot, error)
	SetShippingAddressFunc func(ctx context.Context, cartToken string, addr model.Address) (*model.CartSnapshot, error)
	SelectShippingFunc     func(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error)
	CreateOrderFunc        func(ctx context.Context, cartToken string, req OrderRequest) (*model.LocalOrder, error)
	GetOrderFunc           func(ctx context.Context, orderID string) (*model.LocalOrder, error)
	OrderSnapshotFunc      func(ctx context.Context, orderID string) (*model.CartSnapshot, error)
	SetProviderTokenFunc   func(ctx context.Context, orderID, token string) error
	AddNoteFunc            func(ctx context.Context, orderID, note string) error
	MarkPaidFunc           func(ctx context.Context, orderID, transactionRef, note string) error
	MarkFailedFunc         func(ctx context.Context, orderID, note string) error
	RecordRefundFunc       func(ctx context.Context, orderID string, amount model.Money, note string) error
}

// CurrentCart calls the configured CurrentCartFunc or returns not found.
func (m *Mock) CurrentCart(ctx context.Context, cartToken string) (*model.CartSnapshot, error) {
	if m.CurrentCartFunc != nil {
		return m.CurrentCartFunc(ctx, cartToken)
	}
	return nil, model.NewNotFoundError("cart")
}

// SetShippingAddress calls the configured SetShippingAddressFunc or returns not found.
func (m *Mock) SetShippingAddress(ctx context.Context, cartToken string, addr model.Address) (*model.CartSnapshot, error) {
	if m.SetShippingAddressFunc != nil {
		return m.SetShippingAddressFunc(ctx, cartToken, addr)
	}
	return nil, model.NewNotFoundError("cart")
}

// SelectShipping calls the configured SelectShippingFunc or returns not found.
func (m *Mock) SelectShipping(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error) {
	if m.SelectShippingFunc != nil {
		return m.SelectShippingFunc(ctx, cartToken, optionID)
	}
	return nil, model.NewNotFoundError("cart")
}

// CreateOrder calls the configured CreateOrderFunc or returns an error.
func (m *Mock) CreateOrder(ctx context.Context, cartToken string, req OrderRequest) (*model.LocalOrder, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, cartToken, req)
	}
	return nil, model.NewInternalError(nil)
}

// GetOrder calls the configured GetOrderFunc or returns not found.
func (m *Mock) GetOrder(ctx context.Context, orderID string) (*model.LocalOrder, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, orderID)
	}
	return nil, model.NewNotFoundError("order")
}

// OrderSnapshot calls the configured OrderSnapshotFunc or returns not found.
func (m *Mock) OrderSnapshot(ctx context.Context, orderID string) (*model.CartSnapshot, error) {
	if m.OrderSnapshotFunc != nil {
		return m.OrderSnapshotFunc(ctx, orderID)
	}
	return nil, model.NewNotFoundError("order")
}

// SetProviderToken calls the configured SetProviderTokenFunc or succeeds.
func (m *Mock) SetProviderToken(ctx context.Context, orderID, token string) error {
	if m.SetProviderTokenFunc != nil {
		return m.SetProviderTokenFunc(ctx, orderID, token)
	}
	return nil
}

// AddNote calls the configured AddNoteFunc or succeeds.
func (m *Mock) AddNote(ctx context.Context, orderID, note string) error {
	if m.AddNoteFunc != nil {
		return m.AddNoteFunc(ctx, orderID, note)
	}
	return nil
}

// MarkPaid calls the configured MarkPaidFunc or succeeds.
func (m *Mock) MarkPaid(ctx context.Context, orderID, transactionRef, note string) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, orderID, transactionRef, note)
	}
	return nil
}

// MarkFailed calls the configured MarkFailedFunc or succeeds.
func (m *Mock) MarkFailed(ctx context.Context, orderID, note string) error {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, orderID, note)
	}
	return nil
}

// RecordRefund calls the configured RecordRefundFunc or succeeds.
func (m *Mock) RecordRefund(ctx context.Context, orderID string, amount model.Money, note string) error {
	if m.RecordRefundFunc != nil {
		return m.RecordRefundFunc(ctx, orderID, amount, note)
	}
	return nil
}

// Verify Mock implements Store at compile time.
var _ Store = (*Mock)(nil)
