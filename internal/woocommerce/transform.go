package woocommerce

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
)

// providerTokenMeta is the order meta key holding the provider token.
const providerTokenMeta = "_bnpl_token"

// paymentStatusMap translates WooCommerce order statuses to payment status.
var paymentStatusMap = map[string]model.PaymentStatus{
	"checkout-draft": model.PaymentPending,
	"pending":        model.PaymentPending,
	"on-hold":        model.PaymentPending,
	"processing":     model.PaymentPaid,
	"completed":      model.PaymentPaid,
	"failed":         model.PaymentFailed,
	"cancelled":      model.PaymentFailed,
	"refunded":       model.PaymentRefunded,
}

// MapPaymentStatus converts a WooCommerce order status. Unknown statuses
// are pending.
func MapPaymentStatus(wcStatus string) model.PaymentStatus {
	if status, ok := paymentStatusMap[wcStatus]; ok {
		return status
	}
	return model.PaymentPending
}

// CartToSnapshot converts a Store API cart. The Store API does not expose
// per-item shipping needs, so items are virtual only when the whole cart
// needs no shipping.
func CartToSnapshot(cart *WooCartResponse) *model.CartSnapshot {
	if cart == nil {
		return nil
	}
	currency := cart.Totals.CurrencyCode
	exp := cart.Totals.CurrencyMinorUnit
	money := func(minor string) model.Money {
		return model.Money{Amount: model.MinorUnitsToAmount(minor, exp), Currency: currency}
	}

	snap := &model.CartSnapshot{
		Items:        make([]model.LineItem, 0, len(cart.Items)),
		Discounts:    make([]model.Discount, 0, len(cart.Coupons)),
		Total:        money(cart.Totals.TotalPrice),
		BillingEmail: cart.BillingAddress.Email,
		Subtotal:     money(cart.Totals.TotalItems),
	}
	// Quoted item prices are tax inclusive.
	snap.Subtotal.Amount = snap.Subtotal.Amount.Add(model.MinorUnitsToAmount(cart.Totals.TotalItemsTax, exp))

	for _, item := range cart.Items {
		snap.Items = append(snap.Items, model.LineItem{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			Price:     money(item.Prices.Price),
			ProductID: strconv.Itoa(item.ID),
			Virtual:   !cart.NeedsShipping,
		})
	}
	for _, c := range cart.Coupons {
		amount := money(c.Totals.TotalDiscount)
		amount.Amount = amount.Amount.Add(model.MinorUnitsToAmount(c.Totals.TotalDiscountTax, exp))
		snap.Discounts = append(snap.Discounts, model.Discount{DisplayName: c.Code, Amount: amount})
	}
	for _, pkg := range cart.ShippingRates {
		for _, rate := range pkg.ShippingRates {
			cost := money(rate.Price)
			cost.Amount = cost.Amount.Add(model.MinorUnitsToAmount(rate.Taxes, exp))
			snap.ShippingOptions = append(snap.ShippingOptions, model.ShippingOption{
				ID:          rate.RateID,
				Name:        rate.Name,
				Description: rate.DeliveryTime,
				Cost:        cost,
			})
			if rate.Selected {
				snap.ShippingOptionID = rate.RateID
			}
		}
	}
	return snap
}

// OrderToLocal converts a REST v3 order.
func OrderToLocal(o *WooOrder) *model.LocalOrder {
	if o == nil {
		return nil
	}
	id := strconv.Itoa(o.ID)
	number := o.Number
	if number == "" {
		number = id
	}

	refunded := decimal.Zero
	for _, r := range o.Refunds {
		refunded = refunded.Add(parseAmount(r.Total).Abs())
	}

	status := MapPaymentStatus(o.Status)
	if status == model.PaymentPending && o.DatePaid != nil && *o.DatePaid != "" {
		status = model.PaymentPaid
	}

	return &model.LocalOrder{
		ID:             id,
		Number:         number,
		Amount:         model.Money{Amount: parseAmount(o.Total), Currency: o.Currency},
		Status:         status,
		PaymentMethod:  o.PaymentMethod,
		TransactionRef: o.TransactionID,
		ProviderToken:  metaString(o.MetaData, providerTokenMeta),
		BillingEmail:   o.Billing.Email,
		Refunded:       model.Money{Amount: refunded, Currency: o.Currency},
	}
}

// OrderToSnapshot derives the provider quote for an existing order.
func OrderToSnapshot(o *WooOrder) *model.CartSnapshot {
	if o == nil {
		return nil
	}
	money := func(d decimal.Decimal) model.Money { return model.Money{Amount: d, Currency: o.Currency} }

	snap := &model.CartSnapshot{
		Items:        make([]model.LineItem, 0, len(o.LineItems)),
		Discounts:    make([]model.Discount, 0, len(o.CouponLines)),
		Total:        money(parseAmount(o.Total)),
		BillingEmail: o.Billing.Email,
	}
	subtotal := decimal.Zero
	for _, item := range o.LineItems {
		qty := decimal.NewFromInt(int64(max(item.Quantity, 1)))
		lineTotal := parseAmount(item.Total).Add(parseAmount(item.TotalTax))
		unit := lineTotal.Div(qty).Round(2)
		subtotal = subtotal.Add(lineTotal)
		productID := item.ProductID
		if item.VariationID != 0 {
			productID = item.VariationID
		}
		snap.Items = append(snap.Items, model.LineItem{
			Name:      item.Name,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			Price:     money(unit),
			ProductID: strconv.Itoa(productID),
			Virtual:   len(o.ShippingLines) == 0,
		})
	}
	for _, c := range o.CouponLines {
		snap.Discounts = append(snap.Discounts, model.Discount{DisplayName: c.Code, Amount: money(parseAmount(c.Discount))})
	}
	if len(o.ShippingLines) > 0 {
		line := o.ShippingLines[0]
		snap.ShippingOptionID = line.MethodID
		if line.InstanceID != "" {
			snap.ShippingOptionID = line.MethodID + ":" + line.InstanceID
		}
	}
	snap.Subtotal = money(subtotal)
	return snap
}

// AddressToWoo maps a provider popup address onto a WooCommerce address.
func AddressToWoo(a model.Address) WooAddress {
	first, last := a.SplitName()
	return WooAddress{
		FirstName: first,
		LastName:  last,
		Address1:  a.Line1,
		Address2:  a.Line2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   strings.ToUpper(a.Country),
		Phone:     a.Phone,
	}
}

// shippingLineFor builds the order shipping line for a Store API rate id
// such as "flat_rate:3".
func shippingLineFor(opt model.ShippingOption) WooShippingLine {
	methodID, instanceID, _ := strings.Cut(opt.ID, ":")
	return WooShippingLine{
		MethodID:    methodID,
		InstanceID:  instanceID,
		MethodTitle: opt.Name,
		Total:       model.FormatAmount(opt.Cost.Amount),
	}
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func metaString(meta []WooMeta, key string) string {
	for _, m := range meta {
		if m.Key == key {
			return fmt.Sprint(m.Value)
		}
	}
	return ""
}
