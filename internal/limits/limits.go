// Package limits decides whether an amount can be paid in installments
// under the merchant's cached provider limits.
package limits

import (
	"strings"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
)

// Bound is one side of the limits. A bound that is not Valid is the
// "unavailable" sentinel written after the provider rejected our credentials,
// or a bound that was never fetched.
type Bound struct {
	Amount decimal.Decimal
	Valid  bool
}

// At returns a valid bound.
func At(amount decimal.Decimal) Bound {
	return Bound{Amount: amount, Valid: true}
}

// String renders the bound the way merchant settings show it.
func (b Bound) String() string {
	if !b.Valid {
		return "N/A"
	}
	return model.FormatAmount(b.Amount)
}

// value is the bound as a number; unavailable reads as zero.
func (b Bound) value() decimal.Decimal {
	if !b.Valid {
		return decimal.Zero
	}
	return b.Amount
}

// Limits are the cached minimum and maximum orderable amounts.
type Limits struct {
	Min      Bound
	Max      Bound
	Currency string
}

// New returns limits with both bounds set.
func New(lo, hi decimal.Decimal, currency string) Limits {
	return Limits{Min: At(lo), Max: At(hi), Currency: currency}
}

// Unavailable returns the sentinel stored after an authentication failure.
func Unavailable() Limits {
	return Limits{}
}

// Available is false iff both bounds are unavailable.
func (l Limits) Available() bool {
	return l.Min.Valid || l.Max.Valid
}

// WithinLimits is the cart-level check: only the maximum and the provider's
// minimum transactable amount apply.
func (l Limits) WithinLimits(amount decimal.Decimal) bool {
	if !l.Available() {
		return false
	}
	if amount.LessThan(model.MinimumTransactable) {
		return false
	}
	return !amount.GreaterThan(l.Max.value())
}

// Accepts is WithinLimits for an amount in a given currency. Limits quoted in
// another currency accept nothing.
func (l Limits) Accepts(amount model.Money) bool {
	if l.Currency != "" && !strings.EqualFold(l.Currency, amount.Currency) {
		return false
	}
	return l.WithinLimits(amount.Amount)
}

// ItemWithinLimits checks a single item price. When alone is true the item is
// being shown on its own and must also reach the merchant minimum.
func (l Limits) ItemWithinLimits(amount decimal.Decimal, alone bool) bool {
	if !l.WithinLimits(amount) {
		return false
	}
	if alone && amount.LessThan(l.Min.value()) {
		return false
	}
	return true
}

// AffordableShipping keeps the options whose order total stays at or under the
// maximum. OrderTotal is filled in from subtotal plus the option cost.
func (l Limits) AffordableShipping(subtotal model.Money, options []model.ShippingOption) []model.ShippingOption {
	var out []model.ShippingOption
	if !l.Available() {
		return out
	}
	ceiling := l.Max.value()
	for _, opt := range options {
		total := subtotal.Amount.Add(opt.Cost.Amount)
		if total.GreaterThan(ceiling) {
			continue
		}
		opt.OrderTotal = model.Money{Amount: total, Currency: subtotal.Currency}
		out = append(out, opt)
	}
	return out
}

// PaymentConfiguration is one entry of the provider's /configuration response.
type PaymentConfiguration struct {
	Type          string       `json:"type"`
	Description   string       `json:"description,omitempty"`
	MinimumAmount *model.Money `json:"minimumAmount,omitempty"`
	MaximumAmount *model.Money `json:"maximumAmount,omitempty"`
}

// PayByInstallment is the configuration type that carries the limits.
const PayByInstallment = "PAY_BY_INSTALLMENT"

// FromConfiguration extracts the installment limits. A missing amount reads
// as zero. ok is false when no PAY_BY_INSTALLMENT entry exists.
func FromConfiguration(configs []PaymentConfiguration) (Limits, bool) {
	for _, c := range configs {
		if c.Type != PayByInstallment {
			continue
		}
		l := Limits{Min: At(decimal.Zero), Max: At(decimal.Zero)}
		if c.MinimumAmount != nil {
			l.Min = At(c.MinimumAmount.Amount)
			l.Currency = c.MinimumAmount.Currency
		}
		if c.MaximumAmount != nil {
			l.Max = At(c.MaximumAmount.Amount)
			l.Currency = c.MaximumAmount.Currency
		}
		return l, true
	}
	return Limits{}, false
}

// Equal reports whether two limits have the same bounds.
func (l Limits) Equal(other Limits) bool {
	return l.Min.String() == other.Min.String() && l.Max.String() == other.Max.String()
}
