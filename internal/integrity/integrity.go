// Package integrity verifies that the live cart still matches what was quoted
// to the payment provider before any money is captured.
//
// Both sides are reduced to canonical JSON (fixed field order, amounts as
// two-decimal strings, upper-case currencies) and compared as strings, one
// field group at a time: items, discounts, shipping, total. The first group
// that differs is reported.
package integrity

import (
	"encoding/json"
	"fmt"
	"strings"

	"bnpl-gateway/internal/model"
)

// Field names the part of the cart that changed.
type Field string

const (
	FieldItems     Field = "items"
	FieldDiscounts Field = "discounts"
	FieldShipping  Field = "shipping"
	FieldTotal     Field = "total"
)

// Violation reports which field group no longer matches the quote.
type Violation struct {
	Field   Field
	Details []string
}

func (v *Violation) Error() string {
	if len(v.Details) == 0 {
		return fmt.Sprintf("integrity violation: %s changed", v.Field)
	}
	return fmt.Sprintf("integrity violation: %s changed: %s", v.Field, strings.Join(v.Details, "; "))
}

func (v *Violation) Unwrap() error {
	return model.ErrIntegrity
}

// Message is the shopper-facing explanation.
func (v *Violation) Message() string {
	switch v.Field {
	case FieldItems:
		return "Cart items were changed unexpectedly. Please try again."
	case FieldDiscounts:
		return "Cart coupons were changed unexpectedly. Please try again."
	case FieldShipping:
		if len(v.Details) > 0 && v.Details[0] == detailNeedsShipping {
			return "Product types were changed unexpectedly. Please try again."
		}
		return "Shipping method was changed unexpectedly. Please try again."
	default:
		return "Cart totals were changed unexpectedly. Please try again."
	}
}

const detailNeedsShipping = "quote has no shipping option but the cart contains items that need shipping"

// Check compares the live cart against the provider's quote.
// It returns nil or a *Violation.
func Check(cart *model.CartSnapshot, quote *model.RemoteOrder) error {
	if canonicalItems(cart.Items) != canonicalItems(quote.Items) {
		return &Violation{Field: FieldItems, Details: describeItemChanges(cart.Items, quote.Items)}
	}
	if canonicalDiscounts(cart.Discounts) != canonicalDiscounts(quote.Discounts) {
		return &Violation{Field: FieldDiscounts, Details: describeDiscountChanges(cart.Discounts, quote.Discounts)}
	}
	if v := checkShipping(cart, quote); v != nil {
		return v
	}
	if canonicalMoney(cart.Total) != canonicalMoney(quote.Total) {
		return &Violation{Field: FieldTotal, Details: []string{
			fmt.Sprintf("quoted %s, cart is now %s", formatMoney(quote.Total), formatMoney(cart.Total)),
		}}
	}
	return nil
}

// checkShipping applies the virtual-cart carve-out: a quote without a
// shipping option is only valid for a cart that ships nothing.
func checkShipping(cart *model.CartSnapshot, quote *model.RemoteOrder) *Violation {
	if quote.ShippingOptionID == "" {
		if !cart.AllVirtual() {
			return &Violation{Field: FieldShipping, Details: []string{detailNeedsShipping}}
		}
		return nil
	}
	if cart.ShippingOptionID != quote.ShippingOptionID {
		selected := cart.ShippingOptionID
		if selected == "" {
			selected = "none"
		}
		return &Violation{Field: FieldShipping, Details: []string{
			fmt.Sprintf("quoted %q, cart has %q", quote.ShippingOptionID, selected),
		}}
	}
	return nil
}

// === Canonical forms ===

type wireMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type wireItem struct {
	Name     string    `json:"name"`
	SKU      string    `json:"sku"`
	Quantity int       `json:"quantity"`
	Price    wireMoney `json:"price"`
}

type wireDiscount struct {
	DisplayName string    `json:"displayName"`
	Amount      wireMoney `json:"amount"`
}

func toWireMoney(m model.Money) wireMoney {
	return wireMoney{Amount: model.FormatAmount(m.Amount), Currency: strings.ToUpper(m.Currency)}
}

func canonicalItems(items []model.LineItem) string {
	out := make([]wireItem, len(items))
	for i, item := range items {
		out[i] = wireItem{Name: item.Name, SKU: item.SKU, Quantity: item.Quantity, Price: toWireMoney(item.Price)}
	}
	return mustJSON(out)
}

func canonicalDiscounts(discounts []model.Discount) string {
	out := make([]wireDiscount, len(discounts))
	for i, d := range discounts {
		out[i] = wireDiscount{DisplayName: d.DisplayName, Amount: toWireMoney(d.Amount)}
	}
	return mustJSON(out)
}

func canonicalMoney(m model.Money) string {
	return mustJSON(toWireMoney(m))
}

// mustJSON marshals values built only from strings and ints, which cannot fail.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("integrity: marshaling canonical form: %v", err))
	}
	return string(b)
}

func formatMoney(m model.Money) string {
	return model.FormatAmount(m.Amount) + " " + strings.ToUpper(m.Currency)
}
