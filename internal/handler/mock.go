package handler

import (
	"context"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/capture"
	"bnpl-gateway/internal/model"
)

// MockPayments implements Payments for testing.
// Each method can be configured via function fields.
type MockPayments struct {
	StartExpressFunc     func(ctx context.Context, cartToken string) capture.Outcome
	CompleteExpressFunc  func(ctx context.Context, cartToken, token string) capture.Outcome
	StartRedirectFunc    func(ctx context.Context, orderID string) capture.Outcome
	CompleteRedirectFunc func(ctx context.Context, token, status, state string) capture.Outcome
	RefundFunc           func(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*model.Refund, error)
	ShippingOptionsFunc  func(ctx context.Context, cartToken string, addr model.Address) ([]model.ShippingOption, error)
	SelectShippingFunc   func(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error)
	FlowFunc             func(ctx context.Context, token string) (*model.FlowRecord, error)
}

// unconfigured is the outcome of a step the test did not set up.
func unconfigured() capture.Outcome {
	return capture.Outcome{
		State: model.StateFailed,
		Kind:  model.KindInternal,
		Err:   model.NewInternalError(nil),
	}
}

func (m *MockPayments) StartExpress(ctx context.Context, cartToken string) capture.Outcome {
	if m.StartExpressFunc != nil {
		return m.StartExpressFunc(ctx, cartToken)
	}
	return unconfigured()
}

func (m *MockPayments) CompleteExpress(ctx context.Context, cartToken, token string) capture.Outcome {
	if m.CompleteExpressFunc != nil {
		return m.CompleteExpressFunc(ctx, cartToken, token)
	}
	return unconfigured()
}

func (m *MockPayments) StartRedirect(ctx context.Context, orderID string) capture.Outcome {
	if m.StartRedirectFunc != nil {
		return m.StartRedirectFunc(ctx, orderID)
	}
	return unconfigured()
}

func (m *MockPayments) CompleteRedirect(ctx context.Context, token, status, state string) capture.Outcome {
	if m.CompleteRedirectFunc != nil {
		return m.CompleteRedirectFunc(ctx, token, status, state)
	}
	return unconfigured()
}

func (m *MockPayments) Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*model.Refund, error) {
	if m.RefundFunc != nil {
		return m.RefundFunc(ctx, orderID, amount, reason)
	}
	return nil, model.NewNotFoundError("order")
}

func (m *MockPayments) ShippingOptions(ctx context.Context, cartToken string, addr model.Address) ([]model.ShippingOption, error) {
	if m.ShippingOptionsFunc != nil {
		return m.ShippingOptionsFunc(ctx, cartToken, addr)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockPayments) SelectShipping(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error) {
	if m.SelectShippingFunc != nil {
		return m.SelectShippingFunc(ctx, cartToken, optionID)
	}
	return nil, model.NewNotFoundError("cart")
}

func (m *MockPayments) Flow(ctx context.Context, token string) (*model.FlowRecord, error) {
	if m.FlowFunc != nil {
		return m.FlowFunc(ctx, token)
	}
	return nil, model.NewNotFoundError("flow")
}

var _ Payments = (*MockPayments)(nil)
