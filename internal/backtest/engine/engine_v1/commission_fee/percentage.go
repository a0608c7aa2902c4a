package commission_fee

import "github.com/shopspring/decimal"

// PercentageCommissionFee charges rate * price * quantity.
type PercentageCommissionFee struct {
	rate decimal.Decimal
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{rate: decimal.NewFromFloat(rate)}
}

func (c *PercentageCommissionFee) Calculate(price float64, quantity float64) float64 {
	if quantity <= 0 || price <= 0 {
		return 0
	}

	fee := c.rate.Mul(decimal.NewFromFloat(price)).Mul(decimal.NewFromFloat(quantity))

	return fee.InexactFloat64()
}
