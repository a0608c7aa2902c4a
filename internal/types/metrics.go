package types

import (
	"encoding/json"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// Metrics are the performance statistics of one run.
type Metrics struct {
	TotalReturn   float64
	SharpeRatio   float64
	MaxDrawdown   float64
	WinRate       float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	AvgWin        float64
	AvgLoss       float64
	// ProfitFactor is None when there are no losing trades.
	ProfitFactor optional.Option[float64]
	FinalValue   float64
	CAGR         float64

	// Risk metrics computed from the per-bar returns.
	Volatility          float64
	VaR95               float64
	VaR99               float64
	ExpectedShortfall95 float64
}

// MetricsRecord is the serialized form of Metrics. A nil ProfitFactor means undefined.
type MetricsRecord struct {
	TotalReturn         float64  `yaml:"total_return" json:"total_return"`
	SharpeRatio         float64  `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown         float64  `yaml:"max_drawdown" json:"max_drawdown"`
	WinRate             float64  `yaml:"win_rate" json:"win_rate"`
	TotalTrades         int      `yaml:"total_trades" json:"total_trades"`
	WinningTrades       int      `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades        int      `yaml:"losing_trades" json:"losing_trades"`
	AvgWin              float64  `yaml:"avg_win" json:"avg_win"`
	AvgLoss             float64  `yaml:"avg_loss" json:"avg_loss"`
	ProfitFactor        *float64 `yaml:"profit_factor" json:"profit_factor"`
	FinalValue          float64  `yaml:"final_value" json:"final_value"`
	CAGR                float64  `yaml:"cagr" json:"cagr"`
	Volatility          float64  `yaml:"volatility" json:"volatility"`
	VaR95               float64  `yaml:"var_95" json:"var_95"`
	VaR99               float64  `yaml:"var_99" json:"var_99"`
	ExpectedShortfall95 float64  `yaml:"expected_shortfall_95" json:"expected_shortfall_95"`
}

func (m Metrics) Record() MetricsRecord {
	record := MetricsRecord{
		TotalReturn:         m.TotalReturn,
		SharpeRatio:         m.SharpeRatio,
		MaxDrawdown:         m.MaxDrawdown,
		WinRate:             m.WinRate,
		TotalTrades:         m.TotalTrades,
		WinningTrades:       m.WinningTrades,
		LosingTrades:        m.LosingTrades,
		AvgWin:              m.AvgWin,
		AvgLoss:             m.AvgLoss,
		FinalValue:          m.FinalValue,
		CAGR:                m.CAGR,
		Volatility:          m.Volatility,
		VaR95:               m.VaR95,
		VaR99:               m.VaR99,
		ExpectedShortfall95: m.ExpectedShortfall95,
	}

	if m.ProfitFactor.IsSome() {
		value := m.ProfitFactor.Unwrap()
		record.ProfitFactor = &value
	}

	return record
}

// Metrics converts the serialized form back into Metrics.
func (r MetricsRecord) Metrics() Metrics {
	profitFactor := optional.None[float64]()
	if r.ProfitFactor != nil {
		profitFactor = optional.Some(*r.ProfitFactor)
	}

	return Metrics{
		TotalReturn:         r.TotalReturn,
		SharpeRatio:         r.SharpeRatio,
		MaxDrawdown:         r.MaxDrawdown,
		WinRate:             r.WinRate,
		TotalTrades:         r.TotalTrades,
		WinningTrades:       r.WinningTrades,
		LosingTrades:        r.LosingTrades,
		AvgWin:              r.AvgWin,
		AvgLoss:             r.AvgLoss,
		ProfitFactor:        profitFactor,
		FinalValue:          r.FinalValue,
		CAGR:                r.CAGR,
		Volatility:          r.Volatility,
		VaR95:               r.VaR95,
		VaR99:               r.VaR99,
		ExpectedShortfall95: r.ExpectedShortfall95,
	}
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Record())
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	var record MetricsRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}

	*m = record.Metrics()

	return nil
}

func (m Metrics) MarshalYAML() (any, error) {
	return m.Record(), nil
}

func (m *Metrics) UnmarshalYAML(value *yaml.Node) error {
	var record MetricsRecord
	if err := value.Decode(&record); err != nil {
		return err
	}

	*m = record.Metrics()

	return nil
}
