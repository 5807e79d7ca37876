package tariff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

var ErrAccountNotFound = errors.New("account not found")

// Account ties a customer to the utility provider that holds their usage data.
type Account struct {
	ID        string
	Provider  string
	CreatedAt time.Time
}

// RateInterval is a time-bounded price for one tariff category. Intervals for
// the same account and category are expected not to overlap; the store does
// not enforce that.
type RateInterval struct {
	Category           provider.TariffCategory
	RatePerMinuteCents int64
	ValidFrom          time.Time
	ValidUntil         time.Time
}

// SurchargeInterval is a time-bounded percentage markup. Categories lists the
// tariff categories it was restricted to when stored; an unrestricted
// surcharge has already been expanded to every category by the time it leaves
// the store.
type SurchargeInterval struct {
	PercentIncrease float64
	ValidFrom       time.Time
	ValidUntil      time.Time
	Categories      []provider.TariffCategory
}

type Store interface {
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	GetRates(ctx context.Context, accountID string) (map[provider.TariffCategory][]RateInterval, error)
	GetSurcharges(ctx context.Context, accountID string) (map[provider.TariffCategory][]SurchargeInterval, error)
}

// StorageError wraps any underlying storage failure. It is never retried.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// expandSurcharge maps one stored surcharge into the per-category lookup. A
// record with no category restriction applies to every category in the fixed
// enumeration; a restricted record applies only to its subset.
func expandSurcharge(s SurchargeInterval, out map[provider.TariffCategory][]SurchargeInterval) {
	categories := s.Categories
	if len(categories) == 0 {
		categories = provider.AllCategories()
	}
	for _, c := range categories {
		out[c] = append(out[c], s)
	}
}
