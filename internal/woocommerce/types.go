// Package woocommerce implements the store for WooCommerce: live carts come
// from the Store API, local orders from the REST API v3.
package woocommerce

import "encoding/json"

// === Store API (cart) types ===

// WooCartResponse represents a WooCommerce Store API cart response.
// All amounts are minor units as strings.
type WooCartResponse struct {
	Items           []WooCartItem    `json:"items"`
	Totals          WooTotals        `json:"totals"`
	ShippingRates   []WooShippingPkg `json:"shipping_rates,omitempty"`
	Coupons         []WooCoupon      `json:"coupons,omitempty"`
	NeedsShipping   bool             `json:"needs_shipping"`
	BillingAddress  WooAddress       `json:"billing_address"`
	ShippingAddress WooAddress       `json:"shipping_address"`
	Errors          []WooCartError   `json:"errors,omitempty"`
}

// WooCartError represents an error in cart state.
type WooCartError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WooCartItem represents an item in a cart response.
type WooCartItem struct {
	Key      string            `json:"key"`
	ID       int               `json:"id"` // product or variation id
	Name     string            `json:"name"`
	SKU      string            `json:"sku"`
	Quantity int               `json:"quantity"`
	Prices   WooCartItemPrices `json:"prices"`
}

// WooCartItemPrices contains price info for a cart item.
type WooCartItemPrices struct {
	Price             string `json:"price"` // unit price in minor units
	RegularPrice      string `json:"regular_price"`
	SalePrice         string `json:"sale_price"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
}

// WooTotals contains the cart totals.
type WooTotals struct {
	CurrencyCode      string `json:"currency_code"`
	CurrencyMinorUnit int    `json:"currency_minor_unit"`
	TotalItems        string `json:"total_items"`
	TotalItemsTax     string `json:"total_items_tax"`
	TotalDiscount     string `json:"total_discount"`
	TotalDiscountTax  string `json:"total_discount_tax"`
	TotalShipping     string `json:"total_shipping"`
	TotalShippingTax  string `json:"total_shipping_tax"`
	TotalPrice        string `json:"total_price"`
	TotalTax          string `json:"total_tax"`
}

// WooAddress represents a WooCommerce address.
type WooAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WooShippingPkg represents a shipping package with available rates.
type WooShippingPkg struct {
	PackageID     int               `json:"package_id"`
	Name          string            `json:"name"`
	ShippingRates []WooShippingRate `json:"shipping_rates"`
}

// WooShippingRate represents a single shipping option.
type WooShippingRate struct {
	RateID       string `json:"rate_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DeliveryTime string `json:"delivery_time,omitempty"`
	Price        string `json:"price"` // minor units
	Taxes        string `json:"taxes"` // minor units
	MethodID     string `json:"method_id"`
	Selected     bool   `json:"selected"`
}

// WooCoupon represents an applied discount code.
type WooCoupon struct {
	Code   string          `json:"code"`
	Totals WooCouponTotals `json:"totals"`
}

// WooCouponTotals contains the calculated discount amounts for a coupon.
type WooCouponTotals struct {
	TotalDiscount    string `json:"total_discount"`
	TotalDiscountTax string `json:"total_discount_tax"`
}

// WooErrorResponse represents a WooCommerce API error.
type WooErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// === REST API v3 (order) types ===

// WooOrder is a REST v3 order. Amounts are major-unit decimal strings.
type WooOrder struct {
	ID            int               `json:"id"`
	Number        string            `json:"number"`
	Status        string            `json:"status"`
	Currency      string            `json:"currency"`
	Total         string            `json:"total"`
	ShippingTotal string            `json:"shipping_total"`
	PaymentMethod string            `json:"payment_method"`
	TransactionID string            `json:"transaction_id"`
	DatePaid      *string           `json:"date_paid"`
	Billing       WooAddress        `json:"billing"`
	LineItems     []WooOrderItem    `json:"line_items"`
	CouponLines   []WooCouponLine   `json:"coupon_lines"`
	ShippingLines []WooShippingLine `json:"shipping_lines"`
	Refunds       []WooRefundLine   `json:"refunds"`
	MetaData      []WooMeta         `json:"meta_data"`
}

// WooOrderItem is an order line. Price is the unit price.
type WooOrderItem struct {
	ProductID   int         `json:"product_id"`
	VariationID int         `json:"variation_id,omitempty"`
	Name        string      `json:"name,omitempty"`
	SKU         string      `json:"sku,omitempty"`
	Quantity    int         `json:"quantity"`
	Price       json.Number `json:"price,omitempty"`
	Total       string      `json:"total,omitempty"`
	TotalTax    string      `json:"total_tax,omitempty"`
}

// WooCouponLine is an applied coupon on an order.
type WooCouponLine struct {
	Code     string `json:"code"`
	Discount string `json:"discount,omitempty"`
}

// WooShippingLine is the shipping charge on an order.
type WooShippingLine struct {
	MethodID    string `json:"method_id"`
	InstanceID  string `json:"instance_id,omitempty"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// WooRefundLine summarizes a refund on an order. Total is negative.
type WooRefundLine struct {
	ID     int    `json:"id"`
	Reason string `json:"reason"`
	Total  string `json:"total"`
}

// WooMeta is an order meta entry.
type WooMeta struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// WooOrderCreate is the body of POST /orders.
type WooOrderCreate struct {
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	SetPaid       bool              `json:"set_paid"`
	Billing       WooAddress        `json:"billing"`
	Shipping      *WooAddress       `json:"shipping,omitempty"`
	LineItems     []WooOrderItem    `json:"line_items"`
	CouponLines   []WooCouponLine   `json:"coupon_lines,omitempty"`
	ShippingLines []WooShippingLine `json:"shipping_lines,omitempty"`
	MetaData      []WooMeta         `json:"meta_data,omitempty"`
}

// WooOrderUpdate is the body of PUT /orders/{id}.
type WooOrderUpdate struct {
	Status        string    `json:"status,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	SetPaid       bool      `json:"set_paid,omitempty"`
	MetaData      []WooMeta `json:"meta_data,omitempty"`
}

// WooOrderNote is the body of POST /orders/{id}/notes.
type WooOrderNote struct {
	Note string `json:"note"`
}

// WooRefundCreate is the body of POST /orders/{id}/refunds. APIRefund is
// false: the money has already moved through the provider.
type WooRefundCreate struct {
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	APIRefund bool   `json:"api_refund"`
}
