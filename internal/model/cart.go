package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one cart line as quoted to the provider.
// ProductID and Virtual are store-side data and never sent or compared.
type LineItem struct {
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Price     Money  `json:"price"` // unit price, tax inclusive
	ProductID string `json:"-"`
	Virtual   bool   `json:"-"`
}

// Discount is an applied coupon as quoted to the provider.
type Discount struct {
	DisplayName string `json:"displayName"`
	Amount      Money  `json:"amount"`
}

// ShippingOption is a rate the shopper can choose between during express checkout.
type ShippingOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        Money  `json:"shippingAmount"`
	OrderTotal  Money  `json:"orderAmount"`
}

// CartSnapshot is derived on demand from live store state.
// It is never persisted; it exists to be quoted and compared.
type CartSnapshot struct {
	Items            []LineItem
	Discounts        []Discount
	ShippingOptionID string
	Total            Money

	// Store-side context, excluded from integrity comparison.
	BillingEmail    string
	Subtotal        Money
	ShippingOptions []ShippingOption
}

// AllVirtual reports whether nothing in the cart requires shipping.
func (c *CartSnapshot) AllVirtual() bool {
	for _, item := range c.Items {
		if !item.Virtual {
			return false
		}
	}
	return true
}

// Currency returns the cart currency (taken from the total).
func (c *CartSnapshot) Currency() string {
	return c.Total.Currency
}

// IsEmpty reports whether the cart has no items.
func (c *CartSnapshot) IsEmpty() bool {
	return len(c.Items) == 0
}

// PositiveTotal reports whether the cart total is above zero.
func (c *CartSnapshot) PositiveTotal() bool {
	return c.Total.Amount.GreaterThan(decimal.Zero)
}

// Address is a shipping destination as entered in the provider's express popup.
type Address struct {
	Name     string `json:"name"`
	Line1    string `json:"address1"`
	Line2    string `json:"address2,omitempty"`
	City     string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`
	Country  string `json:"countryCode"`
	Phone    string `json:"phoneNumber,omitempty"`
}

// SplitName splits a full name into given names and surname.
// A single word is treated as the given name.
func (a Address) SplitName() (first, last string) {
	parts := strings.Fields(a.Name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
