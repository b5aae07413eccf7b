package payment

import (
	"nochex-be/internal/order"

	"github.com/shopspring/decimal"
)

// Amounts is the money the gateway is asked to collect.
type Amounts struct {
	Charge           decimal.Decimal
	Shipping         decimal.Decimal
	SeparateShipping bool
}

// CalculateAmounts splits the order total into charge and postage. Both
// parts are rounded before subtracting so the two wire values always add up
// to the rounded total.
func CalculateAmounts(o *order.Order, separateShipping bool) Amounts {
	total := o.Total.Round(2)
	if !separateShipping {
		return Amounts{Charge: total}
	}

	shipping := o.ShippingTotal.Round(2)
	return Amounts{
		Charge:           total.Sub(shipping),
		Shipping:         shipping,
		SeparateShipping: true,
	}
}

// ChargeField is the value of the amount field.
func (a Amounts) ChargeField() string {
	return FormatAmount(a.Charge)
}

// PostageField is the value of the postage field, empty when shipping is
// not sent on its own line.
func (a Amounts) PostageField() string {
	if !a.SeparateShipping {
		return ""
	}
	return FormatAmount(a.Shipping)
}

// FormatAmount renders d with exactly two decimals, half away from zero.
func FormatAmount(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
