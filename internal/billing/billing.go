package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vnmchuo/billing-gateway/internal/engine"
	"github.com/vnmchuo/billing-gateway/internal/provider"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
)

// Stages identify which step of the calculation a wrapped failure came from,
// so callers can tell bad input from an upstream data problem from a gap in
// our own tariff data without unwrapping.
const (
	StageUsage       = "usage"
	StageTariffs     = "tariffs"
	StageCalculation = "calculation"
)

type InvalidDateRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s to %s: %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Reason)
}

type CalculationError struct {
	Stage string
	Err   error
}

func (e *CalculationError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *CalculationError) Unwrap() error { return e.Err }

type UsageFetcher interface {
	Fetch(ctx context.Context, accountID string, start, end time.Time) (*provider.UsageReport, error)
}

// Service orchestrates one cost calculation: validate the range, fetch usage,
// load the account's tariff intervals, run the engine. All-or-nothing; a
// failure at any step aborts the call with a stage-tagged error.
type Service struct {
	fetcher UsageFetcher
	store   tariff.Store
	now     func() time.Time
}

func NewService(fetcher UsageFetcher, store tariff.Store) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
	}
}

func (s *Service) CalculateCost(ctx context.Context, accountID string, start, end time.Time) (decimal.Decimal, error) {
	now := s.now()
	if start.After(now) || end.After(now) {
		return decimal.Zero, &InvalidDateRangeError{Start: start, End: end, Reason: "range extends into the future"}
	}
	if !start.Before(end) {
		return decimal.Zero, &InvalidDateRangeError{Start: start, End: end, Reason: "start must be before end"}
	}

	report, err := s.fetcher.Fetch(ctx, accountID, start, end)
	if err != nil {
		return decimal.Zero, &CalculationError{Stage: StageUsage, Err: err}
	}

	rates, err := s.store.GetRates(ctx, accountID)
	if err != nil {
		return decimal.Zero, &CalculationError{Stage: StageTariffs, Err: err}
	}
	surcharges, err := s.store.GetSurcharges(ctx, accountID)
	if err != nil {
		return decimal.Zero, &CalculationError{Stage: StageTariffs, Err: err}
	}

	total, err := engine.Compute(report, rates, surcharges)
	if err != nil {
		return decimal.Zero, &CalculationError{Stage: StageCalculation, Err: err}
	}

	return total, nil
}
