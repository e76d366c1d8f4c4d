// Package schedule splits an order total into equal installments.
package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"

	"bnpl-gateway/internal/model"
)

// DefaultInstallments is the number of payments offered by the provider.
const DefaultInstallments = 4

// Generate splits total into n installments in minor units.
// Each installment is total/n rounded half-up to the cent; whatever the
// rounding leaves over (positive or negative) lands on the last installment,
// so the sum is always exactly total.
func Generate(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, model.NewInvalidArgumentError("installments", fmt.Sprintf("must be at least 1, got %d", n))
	}

	totalMinor := model.ToMinorUnits(total)
	each := decimal.NewFromInt(totalMinor).Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
	remainder := totalMinor - each*int64(n)

	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = model.FromMinorUnits(each)
	}
	out[n-1] = model.FromMinorUnits(each + remainder)
	return out, nil
}

// Default is Generate with DefaultInstallments.
func Default(total decimal.Decimal) ([]decimal.Decimal, error) {
	return Generate(total, DefaultInstallments)
}

// Installment is one entry of a displayed schedule.
type Installment struct {
	Number int         `json:"number"`
	Amount model.Money `json:"amount"`
}

// ForMoney returns the schedule for m as numbered Money values.
func ForMoney(m model.Money, n int) ([]Installment, error) {
	amounts, err := Generate(m.Amount, n)
	if err != nil {
		return nil, err
	}
	out := make([]Installment, len(amounts))
	for i, a := range amounts {
		out[i] = Installment{Number: i + 1, Amount: model.Money{Amount: a, Currency: m.Currency}}
	}
	return out, nil
}
