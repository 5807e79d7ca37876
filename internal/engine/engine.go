// Package engine computes the monetary cost of a usage report against rate
// and surcharge intervals. It performs no I/O and is a pure function of its
// inputs.
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vnmchuo/billing-gateway/internal/provider"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
)

// UnresolvedTariffError reports a usage datum with no matching rate interval.
// One unresolved datum aborts the whole calculation; no partial total is
// ever returned.
type UnresolvedTariffError struct {
	Category provider.TariffCategory
	Date     time.Time
}

func (e *UnresolvedTariffError) Error() string {
	return fmt.Sprintf("no rate interval covers category %q on %s", e.Category, e.Date.Format("2006-01-02"))
}

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// Compute returns the total cost in dollars for the given usage report.
//
// For each datum the applicable rate interval is the first stored one whose
// half-open range [ValidFrom, ValidUntil) contains the datum's date. Should
// intervals overlap the first in stored order wins; overlaps are a
// data-quality problem upstream, not something to crash on here. A missing
// surcharge contributes exactly zero. All arithmetic is exact decimal, so the
// final cents-to-dollars division carries no rounding.
func Compute(
	report *provider.UsageReport,
	rates map[provider.TariffCategory][]tariff.RateInterval,
	surcharges map[provider.TariffCategory][]tariff.SurchargeInterval,
) (decimal.Decimal, error) {
	totalCents := decimal.Zero

	for _, d := range report.Data {
		rate, ok := matchRate(d, rates[d.Category])
		if !ok {
			return decimal.Zero, &UnresolvedTariffError{Category: d.Category, Date: d.Date}
		}

		cents := decimal.NewFromInt(rate.RatePerMinuteCents).
			Mul(decimal.NewFromFloat(d.DurationHours)).
			Mul(sixty)

		if sc, ok := matchSurcharge(d, surcharges[d.Category]); ok {
			multiplier := decimal.NewFromInt(1).Add(decimal.NewFromFloat(sc.PercentIncrease).Div(hundred))
			cents = cents.Mul(multiplier)
		}

		totalCents = totalCents.Add(cents)
	}

	return totalCents.Div(hundred), nil
}

func matchRate(d provider.UsageDatum, intervals []tariff.RateInterval) (tariff.RateInterval, bool) {
	for _, iv := range intervals {
		if covers(d.Date, iv.ValidFrom, iv.ValidUntil) {
			return iv, true
		}
	}
	return tariff.RateInterval{}, false
}

func matchSurcharge(d provider.UsageDatum, intervals []tariff.SurchargeInterval) (tariff.SurchargeInterval, bool) {
	for _, iv := range intervals {
		if covers(d.Date, iv.ValidFrom, iv.ValidUntil) {
			return iv, true
		}
	}
	return tariff.SurchargeInterval{}, false
}

// covers reports whether t falls in the half-open range [from, until): the
// interval has started and has not yet ended.
func covers(t, from, until time.Time) bool {
	return !t.Before(from) && t.Before(until)
}
