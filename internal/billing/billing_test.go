package billing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vnmchuo/billing-gateway/internal/engine"
	"github.com/vnmchuo/billing-gateway/internal/fetcher"
	"github.com/vnmchuo/billing-gateway/internal/provider"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
)

var (
	fixedNow  = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	rangeFrom = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	rangeTo   = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	usageDay  = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	planFrom  = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	planTo    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

type mockFetcher struct {
	report *provider.UsageReport
	err    error
	calls  int
}

func (m *mockFetcher) Fetch(ctx context.Context, accountID string, start, end time.Time) (*provider.UsageReport, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

type mockTariffStore struct {
	rates         map[provider.TariffCategory][]tariff.RateInterval
	surcharges    map[provider.TariffCategory][]tariff.SurchargeInterval
	ratesErr      error
	surchargesErr error
}

func (m *mockTariffStore) GetAccount(ctx context.Context, accountID string) (*tariff.Account, error) {
	return &tariff.Account{ID: accountID, Provider: "voltra"}, nil
}

func (m *mockTariffStore) GetRates(ctx context.Context, accountID string) (map[provider.TariffCategory][]tariff.RateInterval, error) {
	if m.ratesErr != nil {
		return nil, m.ratesErr
	}
	return m.rates, nil
}

func (m *mockTariffStore) GetSurcharges(ctx context.Context, accountID string) (map[provider.TariffCategory][]tariff.SurchargeInterval, error) {
	if m.surchargesErr != nil {
		return nil, m.surchargesErr
	}
	return m.surcharges, nil
}

func newTestService(f UsageFetcher, store tariff.Store) *Service {
	s := NewService(f, store)
	s.now = func() time.Time { return fixedNow }
	return s
}

func peakUsage(hours float64) *provider.UsageReport {
	return &provider.UsageReport{
		AccountID: "acc-1",
		Provider:  "voltra",
		Data: []provider.UsageDatum{
			{Date: usageDay, Category: provider.CategoryPeak, DurationHours: hours},
		},
	}
}

func peakStore(centsPerMinute int64) *mockTariffStore {
	return &mockTariffStore{
		rates: map[provider.TariffCategory][]tariff.RateInterval{
			provider.CategoryPeak: {
				{Category: provider.CategoryPeak, RatePerMinuteCents: centsPerMinute, ValidFrom: planFrom, ValidUntil: planTo},
			},
		},
		surcharges: map[provider.TariffCategory][]tariff.SurchargeInterval{},
	}
}

func TestCalculateCost_HappyPath(t *testing.T) {
	f := &mockFetcher{report: peakUsage(3)}
	store := peakStore(20)
	store.surcharges = map[provider.TariffCategory][]tariff.SurchargeInterval{
		provider.CategoryPeak: {{PercentIncrease: 5, ValidFrom: planFrom, ValidUntil: planTo}},
	}
	svc := newTestService(f, store)

	total, err := svc.CalculateCost(context.Background(), "acc-1", rangeFrom, rangeTo)
	if err != nil {
		t.Fatalf("CalculateCost failed: %v", err)
	}
	if want := decimal.RequireFromString("37.80"); !total.Equal(want) {
		t.Errorf("Expected %s, got %s", want, total)
	}
}

func TestCalculateCost_InvalidRanges(t *testing.T) {
	cases := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"start in future", fixedNow.AddDate(0, 0, 1), fixedNow.AddDate(0, 0, 2)},
		{"end in future", rangeFrom, fixedNow.AddDate(0, 0, 1)},
		{"start equals end", rangeFrom, rangeFrom},
		{"start after end", rangeTo, rangeFrom},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &mockFetcher{report: peakUsage(3)}
			svc := newTestService(f, peakStore(20))

			_, err := svc.CalculateCost(context.Background(), "acc-1", tc.start, tc.end)
			var invalid *InvalidDateRangeError
			if !errors.As(err, &invalid) {
				t.Fatalf("Expected InvalidDateRangeError, got %v", err)
			}
			if f.calls != 0 {
				t.Errorf("Validation must happen before any I/O, fetcher called %d times", f.calls)
			}
		})
	}
}

func TestCalculateCost_WrapsUsageStage(t *testing.T) {
	cause := &fetcher.FetchError{AccountID: "acc-1", Attempts: 3, Err: errors.New("rate limit persisted")}
	svc := newTestService(&mockFetcher{err: cause}, peakStore(20))

	_, err := svc.CalculateCost(context.Background(), "acc-1", rangeFrom, rangeTo)
	var calcErr *CalculationError
	if !errors.As(err, &calcErr) {
		t.Fatalf("Expected CalculationError, got %v", err)
	}
	if calcErr.Stage != StageUsage {
		t.Errorf("Expected stage %q, got %q", StageUsage, calcErr.Stage)
	}
	if !strings.Contains(err.Error(), "rate limit persisted") {
		t.Errorf("Expected original cause text preserved, got %q", err.Error())
	}
}

func TestCalculateCost_WrapsTariffStage(t *testing.T) {
	store := peakStore(20)
	store.ratesErr = &tariff.StorageError{Err: errors.New("connection reset")}
	svc := newTestService(&mockFetcher{report: peakUsage(3)}, store)

	_, err := svc.CalculateCost(context.Background(), "acc-1", rangeFrom, rangeTo)
	var calcErr *CalculationError
	if !errors.As(err, &calcErr) {
		t.Fatalf("Expected CalculationError, got %v", err)
	}
	if calcErr.Stage != StageTariffs {
		t.Errorf("Expected stage %q, got %q", StageTariffs, calcErr.Stage)
	}

	store = peakStore(20)
	store.surchargesErr = &tariff.StorageError{Err: errors.New("schema mismatch")}
	svc = newTestService(&mockFetcher{report: peakUsage(3)}, store)

	_, err = svc.CalculateCost(context.Background(), "acc-1", rangeFrom, rangeTo)
	if !errors.As(err, &calcErr) || calcErr.Stage != StageTariffs {
		t.Errorf("Expected surcharge failure wrapped under stage %q, got %v", StageTariffs, err)
	}
}

func TestCalculateCost_WrapsCalculationStage(t *testing.T) {
	report := &provider.UsageReport{
		AccountID: "acc-1",
		Provider:  "voltra",
		Data: []provider.UsageDatum{
			{Date: usageDay, Category: provider.CategoryOffPeak, DurationHours: 2},
		},
	}
	svc := newTestService(&mockFetcher{report: report}, peakStore(20))

	_, err := svc.CalculateCost(context.Background(), "acc-1", rangeFrom, rangeTo)
	var calcErr *CalculationError
	if !errors.As(err, &calcErr) {
		t.Fatalf("Expected CalculationError, got %v", err)
	}
	if calcErr.Stage != StageCalculation {
		t.Errorf("Expected stage %q, got %q", StageCalculation, calcErr.Stage)
	}
	var unresolved *engine.UnresolvedTariffError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Expected UnresolvedTariffError in chain, got %v", err)
	}
}

func TestCalculateCost_EmptySurchargesIsNotAnError(t *testing.T) {
	svc := newTestService(&mockFetcher{report: peakUsage(3)}, peakStore(20))

	total, err := svc.CalculateCost(context.Background(), "acc-1", rangeFrom, rangeTo)
	if err != nil {
		t.Fatalf("CalculateCost failed: %v", err)
	}
	if want := decimal.RequireFromString("36.00"); !total.Equal(want) {
		t.Errorf("Expected %s with zero surcharge, got %s", want, total)
	}
}
