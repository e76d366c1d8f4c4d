package capture

import (
	"context"
	"fmt"
	"net/url"

	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/provider"
)

// StatusSuccess is the provider's return status for a confirmed checkout.
const StatusSuccess = "SUCCESS"

// StartRedirect quotes an existing pending order and returns the hosted
// checkout URL for the shopper.
func (o *Orchestrator) StartRedirect(ctx context.Context, orderID string) Outcome {
	rec := &model.FlowRecord{Path: model.PathRedirect, OrderID: orderID, State: model.StateInitiated}

	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	rec.OrderID = order.ID
	if order.IsPaid() {
		return o.fail(ctx, rec, order, model.NewValidationError("order", "is already paid"))
	}
	if err := o.checkReady(order.Amount); err != nil {
		return o.fail(ctx, rec, order, err)
	}

	snapshot, err := o.store.OrderSnapshot(ctx, order.ID)
	if err != nil {
		return o.fail(ctx, rec, order, err)
	}

	confirm, err := o.returnURL(o.cfg.ConfirmURL, order.ID)
	if err != nil {
		return o.fail(ctx, rec, order, err)
	}
	cancel, err := o.returnURL(o.cfg.CancelURL, order.ID)
	if err != nil {
		return o.fail(ctx, rec, order, err)
	}

	email := order.BillingEmail
	if email == "" {
		email = snapshot.BillingEmail
	}
	tok, err := o.provider.CreateOrder(ctx, snapshot, provider.CreateOrderRequest{
		MerchantReference: order.MerchantReference(),
		Consumer:          provider.Consumer{Email: email},
		ConfirmURL:        confirm,
		CancelURL:         cancel,
	})
	if err != nil {
		return o.fail(ctx, rec, order, err)
	}

	rec.Token = tok.Token
	if err := o.advance(rec, model.StateProviderOrderCreated); err != nil {
		return o.fail(ctx, rec, order, err)
	}
	if err := o.store.SetProviderToken(ctx, order.ID, tok.Token); err != nil {
		return o.fail(ctx, rec, order, err)
	}
	if err := o.store.AddNote(ctx, order.ID, tokenNote(tok.Token)); err != nil {
		o.logger.Warn("failed to add order note", "order_id", order.ID, "error", err)
	}
	if err := o.save(ctx, rec); err != nil {
		return o.fail(ctx, rec, order, err)
	}

	o.logger.Info("redirect order created", "order_id", order.ID, "token", tok.Token)
	return Outcome{
		State:    rec.State,
		Redirect: RedirectProvider,
		URL:      tok.RedirectURL,
		Order:    order,
		Token:    tok.Token,
	}
}

// returnURL appends the signed order state to base.
func (o *Orchestrator) returnURL(base, orderID string) (string, error) {
	if base == "" || o.signer == nil {
		return base, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", model.NewConfigurationError(fmt.Sprintf("invalid return url %q", base))
	}
	state, err := o.signer.Sign(orderID)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CompleteRedirect captures the order the shopper confirmed on the hosted
// checkout. The provider validates the amount itself, so the cart is not
// re-checked and the capture carries no amount.
func (o *Orchestrator) CompleteRedirect(ctx context.Context, token, status, state string) Outcome {
	if token == "" {
		rec := &model.FlowRecord{Path: model.PathRedirect, State: model.StateInitiated}
		return o.fail(ctx, rec, nil, model.NewValidationError("orderToken", "required"))
	}

	release, err := o.locks.Acquire(ctx, "token:"+token)
	if err != nil {
		return o.fail(ctx, &model.FlowRecord{Path: model.PathRedirect, Token: token}, nil, fmt.Errorf("locking token: %w", err))
	}
	defer release()

	rec, err := o.loadFlow(ctx, token, model.PathRedirect)
	if err != nil {
		return o.fail(ctx, &model.FlowRecord{Path: model.PathRedirect}, nil, err)
	}
	if rec.State.IsTerminal() {
		return o.replay(ctx, rec)
	}

	if s := normalizeStatus(status); s != StatusSuccess {
		var order *model.LocalOrder
		if rec.OrderID != "" {
			order, _ = o.store.GetOrder(ctx, rec.OrderID)
		}
		return o.fail(ctx, rec, order, model.NewValidationError("status", fmt.Sprintf("payment was not completed (%s)", s)))
	}

	if rec.State == model.StateProviderOrderCreated {
		if err := o.advance(rec, model.StateReturned); err != nil {
			return o.fail(ctx, rec, nil, err)
		}
	}

	quote, err := o.provider.GetOrderByToken(ctx, token)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	order, err := o.store.GetOrder(ctx, quote.MerchantReference)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	if err := o.verifyReturn(rec, order, state); err != nil {
		return o.reject(rec, order, err)
	}
	rec.OrderID = order.ID

	if rec.State == model.StateReturned {
		if err := o.advance(rec, model.StateLocalOrderCreated); err != nil {
			return o.fail(ctx, rec, order, err)
		}
	}
	if err := o.save(ctx, rec); err != nil {
		return o.fail(ctx, rec, order, err)
	}

	return o.capture(ctx, rec, order.ID, nil)
}

// verifyReturn checks that the returning shopper is completing the order
// the token was created for, with this payment method.
func (o *Orchestrator) verifyReturn(rec *model.FlowRecord, order *model.LocalOrder, state string) error {
	if rec.OrderID != "" && rec.OrderID != order.ID {
		return model.NewValidationError("orderToken", "does not belong to this order")
	}
	if order.PaymentMethod != "" && order.PaymentMethod != o.cfg.PaymentMethod {
		return model.NewValidationError("order", "was not placed with this payment method")
	}
	if order.ProviderToken != "" && order.ProviderToken != rec.Token {
		return model.NewValidationError("orderToken", "is not the order's current token")
	}
	if o.signer == nil {
		return nil
	}
	if state == "" {
		return model.NewValidationError("state", "required")
	}
	orderID, err := o.signer.Verify(state)
	if err != nil {
		return err
	}
	if orderID != order.ID {
		return model.NewValidationError("state", "does not match order")
	}
	return nil
}
