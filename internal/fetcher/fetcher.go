package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vnmchuo/billing-gateway/internal/provider"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
)

const (
	// 3 attempts total, including the first.
	maxAttempts = 3

	// Retry delay is drawn uniformly from [minRetryDelay, minRetryDelay+retryJitter).
	minRetryDelay = 1 * time.Second
	retryJitter   = 2 * time.Second
)

// FetchError is the terminal failure of a usage fetch. Attempts is non-zero
// only when the rate-limit retry budget was exhausted.
type FetchError struct {
	AccountID string
	Attempts  int
	Err       error
}

func (e *FetchError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("fetch usage for account %s failed after %d attempts: %v", e.AccountID, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch usage for account %s: %v", e.AccountID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*tariff.Account, error)
}

// Fetcher resolves which provider owns an account and delegates to the
// matching adapter, retrying rate-limited calls with a jittered delay.
// Adapters are registered at startup; dispatch never branches on the
// provider name beyond the registry lookup.
type Fetcher struct {
	store     AccountStore
	providers map[string]provider.Provider
	breakers  map[string]*gobreaker.CircuitBreaker

	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

func New(store AccountStore, providers []provider.Provider) *Fetcher {
	registry := make(map[string]provider.Provider)
	breakers := make(map[string]*gobreaker.CircuitBreaker)
	for _, p := range providers {
		registry[p.Name()] = p
		settings := gobreaker.Settings{
			Name:        p.Name(),
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}
		breakers[p.Name()] = gobreaker.NewCircuitBreaker(settings)
	}
	return &Fetcher{
		store:     store,
		providers: registry,
		breakers:  breakers,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:     sleepCtx,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, accountID string, start, end time.Time) (*provider.UsageReport, error) {
	account, err := f.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, &FetchError{AccountID: accountID, Err: err}
	}

	p, ok := f.providers[account.Provider]
	if !ok {
		return nil, &FetchError{AccountID: accountID, Err: fmt.Errorf("no adapter registered for provider %q", account.Provider)}
	}
	cb := f.breakers[p.Name()]

	for attempt := 1; ; attempt++ {
		result, err := cb.Execute(func() (interface{}, error) {
			return p.FetchUsage(ctx, accountID, start, end)
		})
		if err == nil {
			return result.(*provider.UsageReport), nil
		}

		var transient *provider.TransientError
		if !errors.As(err, &transient) || !transient.RateLimited {
			// Permanent failures, transport-level transients and an open
			// breaker all convert immediately. Only rate limits are retried.
			return nil, &FetchError{AccountID: accountID, Err: err}
		}
		if attempt >= maxAttempts {
			return nil, &FetchError{
				AccountID: accountID,
				Attempts:  attempt,
				Err:       fmt.Errorf("%s rate limit persisted: %w", p.Name(), transient.Err),
			}
		}
		delay := minRetryDelay + time.Duration(f.rng.Int63n(int64(retryJitter)))
		if err := f.sleep(ctx, delay); err != nil {
			// Cancellation, not exhaustion: the attempt count stays out of
			// the error.
			return nil, &FetchError{AccountID: accountID, Err: err}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
