package capture

import (
	"context"
	"net/http"

	"bnpl-gateway/internal/model"
)

// Shopper-facing express shipping errors.
var (
	errShippingUnavailable = &model.APIError{
		Code:       "SHIPPING_UNAVAILABLE",
		Message:    "Shipping is unavailable for this address.",
		StatusCode: http.StatusUnprocessableEntity,
		Err:        model.ErrInvalidRequest,
	}
	errShippingOverLimit = &model.APIError{
		Code:       "SHIPPING_OVER_LIMIT",
		Message:    "All shipping options exceed the payment limit for this order.",
		StatusCode: http.StatusUnprocessableEntity,
		Err:        model.ErrOutsideLimits,
	}
)

// ShippingOptions sets the cart's destination to addr and returns the
// options whose order total stays within the payment limits.
func (o *Orchestrator) ShippingOptions(ctx context.Context, cartToken string, addr model.Address) ([]model.ShippingOption, error) {
	if addr.Country == "" {
		return nil, model.NewValidationError("countryCode", "required")
	}
	cart, err := o.store.SetShippingAddress(ctx, cartToken, addr)
	if err != nil {
		return nil, err
	}
	if len(cart.ShippingOptions) == 0 {
		return nil, errShippingUnavailable
	}

	goods := cart.Subtotal
	for _, d := range cart.Discounts {
		goods.Amount = goods.Amount.Sub(d.Amount.Amount)
	}
	affordable := o.settings.Limits().AffordableShipping(goods, cart.ShippingOptions)
	if len(affordable) == 0 {
		return nil, errShippingOverLimit
	}
	return affordable, nil
}

// SelectShipping chooses the option the shopper picked in the popup.
func (o *Orchestrator) SelectShipping(ctx context.Context, cartToken, optionID string) (*model.CartSnapshot, error) {
	if optionID == "" {
		return nil, model.NewValidationError("shipping option", "required")
	}
	return o.store.SelectShipping(ctx, cartToken, optionID)
}
