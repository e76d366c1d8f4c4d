package capture

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
	"bnpl-gateway/internal/provider"
)

// Refund sends a refund for part or all of a captured order. A refund the
// provider accepted but did not confirm is returned with Succeeded false.
func (o *Orchestrator) Refund(ctx context.Context, orderID string, amount decimal.Decimal, reason string) (*model.Refund, error) {
	release, err := o.locks.Acquire(ctx, "order:"+orderID)
	if err != nil {
		return nil, fmt.Errorf("locking order %s: %w", orderID, err)
	}
	defer release()

	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, model.NewInvalidArgumentError("amount", "must be positive")
	}
	if order.TransactionRef == "" {
		return nil, model.NewNotRefundableError("order has no provider transaction id")
	}
	if remaining := order.RefundableAmount(); amount.GreaterThan(remaining) {
		return nil, model.NewValidationError("amount",
			fmt.Sprintf("%s exceeds the refundable amount %s", model.FormatAmount(amount), model.FormatAmount(remaining)))
	}

	money := model.Money{Amount: amount, Currency: order.Amount.Currency}
	refund := &model.Refund{OrderID: order.ID, Amount: money, Reason: reason}

	ok, err := o.provider.CreateRefund(ctx, provider.RefundRequest{
		TransactionID:     order.TransactionRef,
		MerchantReference: order.MerchantReference(),
		Amount:            money,
		Reason:            reason,
	})
	if err != nil || !ok {
		note := fmt.Sprintf("Failed to send refund of %s to the payment provider.", money)
		if nerr := o.store.AddNote(context.WithoutCancel(ctx), order.ID, note); nerr != nil {
			o.logger.Warn("failed to add order note", "order_id", order.ID, "error", nerr)
		}
		if err != nil {
			o.logger.Error("refund failed", "order_id", order.ID, "amount", money.String(), "error", err)
			return nil, err
		}
		o.logger.Warn("refund not confirmed", "order_id", order.ID, "amount", money.String())
		return refund, nil
	}

	refund.Succeeded = true
	note := fmt.Sprintf("Refund of %s sent to the payment provider. Reason: %s", money, reason)
	if err := o.store.RecordRefund(context.WithoutCancel(ctx), order.ID, money, note); err != nil {
		return refund, fmt.Errorf("recording refund on order %s: %w", order.ID, err)
	}
	o.logger.Info("refund sent", "order_id", order.ID, "amount", money.String())
	return refund, nil
}
