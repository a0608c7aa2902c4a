package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type TradeTestSuite struct {
	suite.Suite
	entry time.Time
	exit  time.Time
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) SetupTest() {
	suite.entry = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	suite.exit = suite.entry.AddDate(0, 0, 5)
}

func (suite *TradeTestSuite) TestNewTrade() {
	tests := []struct {
		name              string
		position          Position
		exitPrice         float64
		exitCommission    float64
		expectedPnL       float64
		expectedReturnPct float64
	}{
		{
			name: "long round trip with commission",
			position: Position{
				Side: PositionSideLong, Quantity: 10, EntryPrice: 100, EntryDate: suite.entry, EntryCommission: 10,
			},
			exitPrice:         110,
			exitCommission:    11,
			expectedPnL:       79,
			expectedReturnPct: 0.079,
		},
		{
			name: "short profits when price falls",
			position: Position{
				Side: PositionSideShort, Quantity: 5, EntryPrice: 50, EntryDate: suite.entry,
			},
			exitPrice:         40,
			expectedPnL:       50,
			expectedReturnPct: 0.2,
		},
		{
			name: "long loss",
			position: Position{
				Side: PositionSideLong, Quantity: 2, EntryPrice: 20, EntryDate: suite.entry, EntryCommission: 1,
			},
			exitPrice:         18,
			exitCommission:    1,
			expectedPnL:       -6,
			expectedReturnPct: -0.15,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			trade, err := NewTrade(tt.position, suite.exit, tt.exitPrice, tt.exitCommission)
			suite.Require().NoError(err)
			suite.InDelta(tt.expectedPnL, trade.PnL(), 1e-9)
			suite.InDelta(tt.expectedReturnPct, trade.ReturnPct(), 1e-9)
			suite.Equal(tt.position.Side, trade.Side())
			suite.True(trade.ExitDate().After(trade.EntryDate()))
		})
	}
}

func (suite *TradeTestSuite) TestNewTradeRejectsInvalidInput() {
	_, err := NewTrade(Position{Side: PositionSideFlat}, suite.exit, 10, 0)
	suite.Error(err)

	position := Position{Side: PositionSideLong, Quantity: 1, EntryPrice: 10, EntryDate: suite.entry}
	_, err = NewTrade(position, suite.entry, 11, 0)
	suite.Error(err)
}

func (suite *TradeTestSuite) TestDecodedTradeRecomputesPnL() {
	trade, err := NewTrade(Position{
		Side: PositionSideLong, Quantity: 10, EntryPrice: 100, EntryDate: suite.entry,
	}, suite.exit, 110, 0)
	suite.Require().NoError(err)

	record := trade.Record()
	record.PnL = 12345
	data, err := json.Marshal(record)
	suite.Require().NoError(err)

	var decoded Trade
	suite.Require().NoError(json.Unmarshal(data, &decoded))
	suite.InDelta(100.0, decoded.PnL(), 1e-9)

	yamlData, err := yaml.Marshal(trade)
	suite.Require().NoError(err)

	var fromYAML Trade
	suite.Require().NoError(yaml.Unmarshal(yamlData, &fromYAML))
	suite.Equal(trade, fromYAML)
}
