package marketdata

import (
	"strconv"
	"strings"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Timespan is a bar size written the Binance way, e.g. "5m" or "1d".
type Timespan string

const (
	TimespanOneSecond      Timespan = "1s"
	TimespanOneMinute      Timespan = "1m"
	TimespanThreeMinutes   Timespan = "3m"
	TimespanFiveMinutes    Timespan = "5m"
	TimespanFifteenMinutes Timespan = "15m"
	TimespanThirtyMinutes  Timespan = "30m"
	TimespanOneHour        Timespan = "1h"
	TimespanTwoHours       Timespan = "2h"
	TimespanFourHours      Timespan = "4h"
	TimespanSixHours       Timespan = "6h"
	TimespanEightHours     Timespan = "8h"
	TimespanTwelveHours    Timespan = "12h"
	TimespanOneDay         Timespan = "1d"
	TimespanThreeDays      Timespan = "3d"
	TimespanOneWeek        Timespan = "1w"
	TimespanOneMonth       Timespan = "1M"
)

var timespanUnits = map[byte]models.Timespan{
	's': models.Second,
	'm': models.Minute,
	'h': models.Hour,
	'd': models.Day,
	'w': models.Week,
	'M': models.Month,
}

// Validate rejects sizes no provider understands.
func (t Timespan) Validate() error {
	if _, _, err := t.parse(); err != nil {
		return err
	}

	return nil
}

// Multiplier returns the count part, 5 for "5m". Invalid sizes give 1.
func (t Timespan) Multiplier() int {
	multiplier, _, err := t.parse()
	if err != nil {
		return 1
	}

	return multiplier
}

// Timespan returns the unit part as a polygon timespan. Invalid sizes give a day.
func (t Timespan) Timespan() models.Timespan {
	_, unit, err := t.parse()
	if err != nil {
		return models.Day
	}

	return unit
}

// BarsPerYear returns the annualization factor for bars of this size,
// assuming equity market sessions for intraday and daily bars.
func (t Timespan) BarsPerYear() int {
	multiplier, unit, err := t.parse()
	if err != nil {
		return 252
	}

	perYear := map[models.Timespan]int{
		models.Second: 252 * 6.5 * 3600,
		models.Minute: 252 * 6.5 * 60,
		models.Hour:   252 * 6.5,
		models.Day:    252,
		models.Week:   52,
		models.Month:  12,
	}[unit]

	return max(perYear/multiplier, 1)
}

func (t Timespan) parse() (int, models.Timespan, error) {
	value := string(t)
	if len(value) < 2 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval %q", value)
	}

	unit, ok := timespanUnits[value[len(value)-1]]
	if !ok {
		return 0, "", errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval unit in %q", value)
	}

	multiplier, err := strconv.Atoi(strings.TrimSpace(value[:len(value)-1]))
	if err != nil || multiplier < 1 {
		return 0, "", errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval count in %q", value)
	}

	return multiplier, unit, nil
}
