package commission_fee

import "github.com/shopspring/decimal"

// PerShareCommissionFee charges a fixed amount per unit, never less than
// Minimum per fill and never more than MaxRate of the traded value.
// A zero MaxRate disables the cap.
type PerShareCommissionFee struct {
	PerShare float64
	Minimum  float64
	MaxRate  float64
}

// NewInteractiveBrokerCommissionFee follows the fixed pricing of Interactive
// Brokers: 0.005 per share, 1 minimum, 1% of the trade value maximum.
func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &PerShareCommissionFee{PerShare: 0.005, Minimum: 1, MaxRate: 0.01}
}

func (c *PerShareCommissionFee) Calculate(price float64, quantity float64) float64 {
	if quantity <= 0 {
		return 0
	}

	fee := decimal.NewFromFloat(c.PerShare).Mul(decimal.NewFromFloat(quantity))
	fee = decimal.Max(fee, decimal.NewFromFloat(c.Minimum))

	if c.MaxRate > 0 && price > 0 {
		limit := decimal.NewFromFloat(c.MaxRate).Mul(decimal.NewFromFloat(price)).Mul(decimal.NewFromFloat(quantity))
		fee = decimal.Min(fee, limit)
	}

	return fee.InexactFloat64()
}
