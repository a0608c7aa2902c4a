package strategy

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const CompositeName = "composite"

type CompositeParams struct {
	Members []types.StrategyConfig `yaml:"members" json:"members" validate:"min=1,dive" jsonschema:"title=Members,description=Strategies whose signals are combined"`
	// MinAgreement is how many members must emit the same entry on a bar.
	MinAgreement int `yaml:"min_agreement" json:"min_agreement" validate:"gt=0" jsonschema:"title=Minimum Agreement,minimum=1,default=1"`
}

func DefaultCompositeParams() CompositeParams {
	return CompositeParams{MinAgreement: 1}
}

// Composite combines member signals bar by bar. An EXIT from any member wins
// over entries. Entries in both directions on the same bar cancel out.
type Composite struct {
	params  CompositeParams
	members []Strategy
}

func NewComposite(params CompositeParams, members []Strategy) *Composite {
	return &Composite{params: params, members: members}
}

func (s *Composite) Name() string {
	return CompositeName
}

func (s *Composite) Validate() error {
	if err := validateParams(s.params); err != nil {
		return err
	}

	if s.params.MinAgreement > len(s.members) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"min_agreement %d exceeds the number of members %d", s.params.MinAgreement, len(s.members))
	}

	for _, member := range s.members {
		if err := member.Validate(); err != nil {
			return err
		}
	}

	return nil
}

func (s *Composite) Describe() types.StrategyInfo {
	members := make([]any, len(s.members))
	for i, member := range s.members {
		info := member.Describe()
		members[i] = map[string]any{"name": info.Name, "parameters": info.Parameters}
	}

	return types.StrategyInfo{
		Name:        CompositeName,
		Type:        types.StrategyTypeComposite,
		Description: "Ensemble of strategies: exits take precedence, entries need agreement",
		Parameters: map[string]any{
			"members":       members,
			"min_agreement": s.params.MinAgreement,
		},
	}
}

func (s *Composite) GenerateSignals(ctx context.Context, bars types.PriceSeries) (types.SignalSeries, error) {
	memberSignals := make([]types.SignalSeries, len(s.members))

	for i, member := range s.members {
		signals, err := member.GenerateSignals(ctx, bars)
		if err != nil {
			return nil, err
		}

		if err := signals.Validate(len(bars)); err != nil {
			return nil, err
		}

		memberSignals[i] = signals
	}

	return Combine(memberSignals, len(bars), s.params.MinAgreement), nil
}

// Combine merges aligned signal series. EXIT takes precedence, disagreeing
// entries resolve to HOLD, and an entry needs at least minAgreement votes.
func Combine(series []types.SignalSeries, bars, minAgreement int) types.SignalSeries {
	combined := types.NewHoldSeries(bars)

	for i := 0; i < bars; i++ {
		var longs, shorts int

		exit := false

		for _, signals := range series {
			switch signals[i] {
			case types.SignalTypeExit:
				exit = true
			case types.SignalTypeLongEntry:
				longs++
			case types.SignalTypeShortEntry:
				shorts++
			}
		}

		switch {
		case exit:
			combined[i] = types.SignalTypeExit
		case longs > 0 && shorts > 0:
			combined[i] = types.SignalTypeHold
		case longs >= minAgreement:
			combined[i] = types.SignalTypeLongEntry
		case shorts >= minAgreement:
			combined[i] = types.SignalTypeShortEntry
		}
	}

	return combined
}
