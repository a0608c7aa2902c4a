package commission_fee

// CommissionFee prices one fill.
type CommissionFee interface {
	// Calculate returns the fee charged for filling quantity units at price.
	Calculate(price float64, quantity float64) float64
}

// CommissionFunc adapts a plain function to CommissionFee.
type CommissionFunc func(price float64, quantity float64) float64

func (f CommissionFunc) Calculate(price float64, quantity float64) float64 {
	return f(price, quantity)
}

type Broker string

const (
	BrokerPercentage        Broker = "percentage"
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerPercentage,
	BrokerInteractiveBroker,
	BrokerZero,
}

// NewZeroCommissionFee charges nothing.
func NewZeroCommissionFee() CommissionFee {
	return CommissionFunc(func(float64, float64) float64 { return 0 })
}

// GetCommissionFeeHandler returns the fee model of broker. rate is only used
// by the percentage model. Unknown brokers fall back to the percentage model.
func GetCommissionFeeHandler(broker Broker, rate float64) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewPercentageCommissionFee(rate)
	}
}
