package tariff

import (
	"testing"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

func TestExpandSurcharge_NoRestrictionAppliesToAll(t *testing.T) {
	sc := SurchargeInterval{
		PercentIncrease: 5,
		ValidFrom:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	out := make(map[provider.TariffCategory][]SurchargeInterval)
	expandSurcharge(sc, out)

	if len(out) != len(provider.AllCategories()) {
		t.Fatalf("Expected %d categories, got %d", len(provider.AllCategories()), len(out))
	}
	for _, c := range provider.AllCategories() {
		got, ok := out[c]
		if !ok || len(got) != 1 {
			t.Fatalf("Expected one surcharge under %s, got %v", c, got)
		}
		if got[0].PercentIncrease != 5 {
			t.Errorf("Expected identical surcharge under %s, got %+v", c, got[0])
		}
	}
}

func TestExpandSurcharge_SubsetRestriction(t *testing.T) {
	sc := SurchargeInterval{
		PercentIncrease: 10,
		Categories:      []provider.TariffCategory{provider.CategoryPeak, provider.CategoryShoulder},
	}

	out := make(map[provider.TariffCategory][]SurchargeInterval)
	expandSurcharge(sc, out)

	if len(out) != 2 {
		t.Fatalf("Expected 2 categories, got %d", len(out))
	}
	if _, ok := out[provider.CategoryOffPeak]; ok {
		t.Error("Surcharge restricted to peak/shoulder must not expand into offpeak")
	}
}

func TestExpandSurcharge_MultipleRecordsAccumulate(t *testing.T) {
	out := make(map[provider.TariffCategory][]SurchargeInterval)
	expandSurcharge(SurchargeInterval{PercentIncrease: 5}, out)
	expandSurcharge(SurchargeInterval{PercentIncrease: 10, Categories: []provider.TariffCategory{provider.CategoryPeak}}, out)

	if len(out[provider.CategoryPeak]) != 2 {
		t.Errorf("Expected 2 surcharges under peak, got %d", len(out[provider.CategoryPeak]))
	}
	if len(out[provider.CategoryOffPeak]) != 1 {
		t.Errorf("Expected 1 surcharge under offpeak, got %d", len(out[provider.CategoryOffPeak]))
	}
}
