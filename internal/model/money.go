// Package model defines the payment types shared across the gateway and the
// error taxonomy every component reports through.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MinimumTransactable is the smallest amount the provider will accept for an order.
var MinimumTransactable = decimal.RequireFromString("0.04")

// Money is an amount in major currency units paired with an ISO 4217 currency code.
// On the wire the amount is always a fixed two-decimal string: {"amount":"10.00","currency":"AUD"}.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney builds a Money from a decimal string such as "120.00".
func NewMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return Money{Amount: d, Currency: currency}, nil
}

// MustMoney is NewMoney for constants and tests. Panics on malformed input.
func MustMoney(amount, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// FormatAmount renders an amount with exactly two decimal places.
// All canonical comparisons and wire payloads go through here.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// String returns "120.00 AUD".
func (m Money) String() string {
	return FormatAmount(m.Amount) + " " + m.Currency
}

// Equal compares the two-decimal representation and the currency.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && FormatAmount(m.Amount) == FormatAmount(other.Amount)
}

type moneyWire struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyWire{Amount: FormatAmount(m.Amount), Currency: m.Currency})
}

// UnmarshalJSON accepts the amount as either a JSON string or a number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	amount := strings.Trim(string(raw.Amount), `"`)
	if amount == "" || amount == "null" {
		amount = "0"
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("invalid money amount %q: %w", amount, err)
	}

	m.Amount = d
	m.Currency = raw.Currency
	return nil
}

// ToMinorUnits converts a major-unit amount to integer minor units (cents), rounding half away from zero.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back into a two-decimal amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// ParseMinorUnits converts string amounts already in minor units to int64.
// WooCommerce Store API uses this format for all price fields ("8900" = $89.00).
// Examples: "8900" → 8900, "123456" → 123456, "" → 0
func ParseMinorUnits(s string) int64 {
	if s == "" {
		return 0
	}
	// Parse as float to handle potential decimal values, then truncate
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// MinorUnitsToAmount converts a minor-unit string with the given exponent
// (Store API currency_minor_unit) into a major-unit decimal.
func MinorUnitsToAmount(s string, exponent int) decimal.Decimal {
	if exponent <= 0 {
		exponent = 2
	}
	return decimal.New(ParseMinorUnits(s), int32(-exponent))
}
