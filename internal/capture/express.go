package capture

import (
	"context"
	"fmt"

	"bnpl-gateway/internal/integrity"
	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/provider"
	"bnpl-gateway/internal/store"
)

// StartExpress quotes the live cart to the provider and returns the token
// for the express popup.
func (o *Orchestrator) StartExpress(ctx context.Context, cartToken string) Outcome {
	rec := &model.FlowRecord{Path: model.PathExpress, CartToken: cartToken, State: model.StateInitiated}
	if cartToken == "" {
		return o.fail(ctx, rec, nil, model.NewValidationError("cart token", "required"))
	}

	cart, err := o.store.CurrentCart(ctx, cartToken)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	if cart.IsEmpty() {
		return o.fail(ctx, rec, nil, model.NewValidationError("cart", "is empty"))
	}
	if err := o.checkReady(cart.Total); err != nil {
		return o.fail(ctx, rec, nil, err)
	}

	tok, err := o.provider.CreateOrder(ctx, cart, provider.CreateOrderRequest{
		Consumer:       provider.Consumer{Email: cart.BillingEmail},
		ConfirmURL:     o.cfg.ConfirmURL,
		CancelURL:      o.cfg.CancelURL,
		Express:        true,
		PopupOriginURL: o.cfg.PopupOriginURL,
	})
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}

	rec.Token = tok.Token
	if err := o.advance(rec, model.StateProviderOrderCreated); err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	if err := o.save(ctx, rec); err != nil {
		return o.fail(ctx, rec, nil, err)
	}

	o.logger.Info("express order created", "cart_token", cartToken, "token", tok.Token)
	return Outcome{
		State:    rec.State,
		Redirect: RedirectProvider,
		URL:      tok.RedirectURL,
		Token:    tok.Token,
	}
}

// CompleteExpress finishes an express checkout the shopper confirmed in
// the provider popup. The live cart must still match the provider's quote
// before a local order is created. Completing the same token twice returns
// the first result.
func (o *Orchestrator) CompleteExpress(ctx context.Context, cartToken, token string) Outcome {
	if token == "" || cartToken == "" {
		rec := &model.FlowRecord{Path: model.PathExpress, CartToken: cartToken, State: model.StateInitiated}
		return o.fail(ctx, rec, nil, model.NewValidationError("token", "cart and provider tokens are required"))
	}

	release, err := o.locks.Acquire(ctx, "token:"+token)
	if err != nil {
		rec := &model.FlowRecord{Path: model.PathExpress, CartToken: cartToken}
		return o.fail(ctx, rec, nil, fmt.Errorf("locking token: %w", err))
	}
	defer release()

	rec, err := o.loadFlow(ctx, token, model.PathExpress)
	if err != nil {
		return o.fail(ctx, &model.FlowRecord{Path: model.PathExpress, CartToken: cartToken}, nil, err)
	}
	if rec.State.IsTerminal() {
		return o.replay(ctx, rec)
	}
	if rec.CartToken != "" && rec.CartToken != cartToken {
		return o.reject(rec, nil, model.NewValidationError("token", "does not belong to this cart"))
	}
	rec.CartToken = cartToken

	if rec.State == model.StateLocalOrderCreated {
		// An earlier attempt stopped before capture finished.
		order, err := o.store.GetOrder(ctx, rec.OrderID)
		if err != nil {
			return o.fail(ctx, rec, nil, err)
		}
		return o.capture(ctx, rec, rec.OrderID, &order.Amount)
	}
	if rec.State != model.StateReturned {
		if err := o.advance(rec, model.StateReturned); err != nil {
			return o.fail(ctx, rec, nil, err)
		}
		if err := o.save(ctx, rec); err != nil {
			return o.fail(ctx, rec, nil, err)
		}
	}

	quote, err := o.provider.GetOrderByToken(ctx, token)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	cart, err := o.store.CurrentCart(ctx, cartToken)
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	if err := integrity.Check(cart, quote); err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	if err := o.advance(rec, model.StateIntegrityVerified); err != nil {
		return o.fail(ctx, rec, nil, err)
	}

	order, err := o.store.CreateOrder(ctx, cartToken, store.OrderRequest{
		PaymentMethod: o.cfg.PaymentMethod,
		BillingEmail:  quote.ConsumerEmail,
	})
	if err != nil {
		return o.fail(ctx, rec, nil, err)
	}
	rec.OrderID = order.ID
	if err := o.advance(rec, model.StateLocalOrderCreated); err != nil {
		return o.fail(ctx, rec, order, err)
	}
	if err := o.save(ctx, rec); err != nil {
		return o.fail(ctx, rec, order, err)
	}

	if err := o.store.SetProviderToken(ctx, order.ID, token); err != nil {
		return o.fail(ctx, rec, order, err)
	}
	if err := o.store.AddNote(ctx, order.ID, tokenNote(token)); err != nil {
		o.logger.Warn("failed to add order note", "order_id", order.ID, "error", err)
	}

	return o.capture(ctx, rec, order.ID, &order.Amount)
}
