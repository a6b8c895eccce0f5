// Package expiry selects option expiration dates from a broker-supplied
// catalog.
package expiry

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoExpiries is returned when a selection is attempted against an empty
// set of dates.
var ErrNoExpiries = errors.New("no expiry dates available")

// Closest returns the date with the smallest absolute distance to target.
// Ties break to the first occurrence in slice order, matching the behavior
// callers have historically depended on; it does not prefer the future date.
func Closest(dates []time.Time, target time.Time) (time.Time, error) {
	if len(dates) == 0 {
		return time.Time{}, ErrNoExpiries
	}

	best := dates[0]
	bestDist := absDuration(dates[0].Sub(target))
	for _, d := range dates[1:] {
		if dist := absDuration(d.Sub(target)); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, nil
}

// NearestToHorizon returns the date closest to numDays from now. Useful when
// the trading time-frame is fixed, e.g. numDays=30 for mid-term contracts.
func NearestToHorizon(dates []time.Time, numDays int) (time.Time, error) {
	return Closest(dates, time.Now().AddDate(0, 0, numDays))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// DateFormat is the YYYY-MM-DD layout the broker uses for expiration dates.
const DateFormat = "2006-01-02"

// Catalog is a read-only snapshot of the expirations available for an
// underlying, optionally with the strike ladder per date. It is produced by
// one expirations query and never cached across calls.
type Catalog struct {
	Underlying    string
	Dates         []time.Time
	StrikesByDate map[string][]decimal.Decimal // keyed by DateFormat
}

func (c *Catalog) Closest(target time.Time) (time.Time, error) {
	return Closest(c.Dates, target)
}

func (c *Catalog) NearestToHorizon(numDays int) (time.Time, error) {
	return NearestToHorizon(c.Dates, numDays)
}

// Strikes returns the strike ladder for a date, or nil when the catalog was
// fetched without strikes or the date is not listed.
func (c *Catalog) Strikes(date time.Time) []decimal.Decimal {
	if c.StrikesByDate == nil {
		return nil
	}
	return c.StrikesByDate[date.Format(DateFormat)]
}
