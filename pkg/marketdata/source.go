package marketdata

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Source returns the bars of one instrument for a time range.
//
// Fetch returns an UnknownTicker error when the source has never heard of
// ticker, an EmptyRange error when it knows the ticker but has no bars in
// [start, end], and a TransientFetch error for failures worth retrying.
// A returned series is ascending with unique dates.
type Source interface {
	Name() string
	Fetch(ctx context.Context, ticker string, start, end time.Time) (types.PriceSeries, error)
}
