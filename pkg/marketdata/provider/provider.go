package provider

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
	ProviderFile    ProviderType = "file"
	ProviderCSV     ProviderType = "csv"
)

// DefaultMaxRetries bounds the attempts of a transient fetch failure.
const DefaultMaxRetries = 4

// RetryPolicy returns the backoff used for remote fetches.
func RetryPolicy(ctx context.Context, maxRetries uint64) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = time.Minute

	return backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx)
}

// DefaultBackOff is RetryPolicy with DefaultMaxRetries.
func DefaultBackOff(ctx context.Context) backoff.BackOff {
	return RetryPolicy(ctx, DefaultMaxRetries)
}

// retry runs op under policy. Errors that are not transient stop the retries
// and are returned as they are.
func retry(ctx context.Context, policy backoff.BackOff, op func() error) error {
	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}

		if errors.KindOf(err) != errors.KindTransientFetch {
			return backoff.Permanent(err)
		}

		return err
	}, policy)
	if err == nil {
		return nil
	}

	if ctxErr := errors.FromContext(ctx, "market data fetch interrupted"); ctxErr != nil {
		return ctxErr
	}

	return err
}

// checkRange rejects an inverted time range.
func checkRange(start, end time.Time) error {
	if end.Before(start) {
		return errors.Newf(errors.ErrCodeEmptyRange, "end %s is before start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	return nil
}

// normalize sorts bars by date, drops repeated dates keeping the first one
// and drops bars outside [start, end].
func normalize(bars []types.PriceBar, start, end time.Time) types.PriceSeries {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	series := make(types.PriceSeries, 0, len(bars))

	for _, bar := range bars {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}

		if len(series) > 0 && series[len(series)-1].Date.Equal(bar.Date) {
			continue
		}

		series = append(series, bar)
	}

	return series
}

// emptyRange is returned when a known ticker has no bars in the range.
func emptyRange(ticker string, start, end time.Time) error {
	return errors.Newf(errors.ErrCodeEmptyRange, "no bars for %s between %s and %s",
		ticker, start.Format(time.DateOnly), end.Format(time.DateOnly))
}
