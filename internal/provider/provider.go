package provider

import (
	"context"
	"fmt"
	"time"
)

// TariffCategory is a usage-time band. Rates and surcharges are keyed by it.
type TariffCategory string

const (
	CategoryPeak     TariffCategory = "peak"
	CategoryShoulder TariffCategory = "shoulder"
	CategoryOffPeak  TariffCategory = "offpeak"
)

// AllCategories returns the fixed set of tariff categories.
func AllCategories() []TariffCategory {
	return []TariffCategory{CategoryPeak, CategoryShoulder, CategoryOffPeak}
}

// UsageDatum is one day of metered usage in a single tariff category.
type UsageDatum struct {
	Date          time.Time
	Category      TariffCategory
	DurationHours float64
}

// UsageReport is the canonical result of one fetch against a utility provider.
// It is never persisted.
type UsageReport struct {
	AccountID string
	Provider  string
	Data      []UsageDatum
}

type Provider interface {
	Name() string
	FetchUsage(ctx context.Context, accountID string, start, end time.Time) (*UsageReport, error)
}

// TransientError signals a failure that may clear on its own: a rate-limit
// response or a transport-level error. Only the rate-limited kind is retried.
type TransientError struct {
	RateLimited bool
	Err         error
}

func (e *TransientError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("rate limited: %v", e.Err)
	}
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError signals a failure that a retry cannot fix: a non-2xx,
// non-429 status or a payload that does not match the provider's schema.
type PermanentError struct {
	Provider string
	Status   int
	Message  string
}

func (e *PermanentError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
