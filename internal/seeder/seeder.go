package seeder

import (
	"context"
	"log"
	"time"

	"github.com/vnmchuo/billing-gateway/internal/provider"
	"github.com/vnmchuo/billing-gateway/internal/tariff"
)

const (
	DemoAccountID = "00000000-0000-0000-0000-000000000001"
	DemoProvider  = "voltra"
)

type Store interface {
	CreateAccount(ctx context.Context, a *tariff.Account) error
	CreateRateInterval(ctx context.Context, accountID string, r tariff.RateInterval) error
	CreateSurcharge(ctx context.Context, accountID string, sc tariff.SurchargeInterval) error
}

// SeedDemoAccount inserts a demo account with a rate plan per tariff category
// and a green-power surcharge on peak usage.
func SeedDemoAccount(ctx context.Context, store Store) {
	account := &tariff.Account{
		ID:       DemoAccountID,
		Provider: DemoProvider,
	}
	if err := store.CreateAccount(ctx, account); err != nil {
		log.Printf("[Seeder] demo account may already exist, skipping: %v", err)
		return
	}

	validFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	validUntil := time.Date(2028, 1, 1, 0, 0, 0, 0, time.UTC)

	rates := []tariff.RateInterval{
		{Category: provider.CategoryPeak, RatePerMinuteCents: 20, ValidFrom: validFrom, ValidUntil: validUntil},
		{Category: provider.CategoryShoulder, RatePerMinuteCents: 10, ValidFrom: validFrom, ValidUntil: validUntil},
		{Category: provider.CategoryOffPeak, RatePerMinuteCents: 3, ValidFrom: validFrom, ValidUntil: validUntil},
	}
	for _, r := range rates {
		if err := store.CreateRateInterval(ctx, DemoAccountID, r); err != nil {
			log.Printf("[Seeder] failed to seed %s rate: %v", r.Category, err)
			return
		}
	}

	surcharge := tariff.SurchargeInterval{
		PercentIncrease: 5,
		ValidFrom:       validFrom,
		ValidUntil:      validUntil,
		Categories:      []provider.TariffCategory{provider.CategoryPeak},
	}
	if err := store.CreateSurcharge(ctx, DemoAccountID, surcharge); err != nil {
		log.Printf("[Seeder] failed to seed surcharge: %v", err)
		return
	}

	log.Printf("[Seeder] Demo account created successfully")
	log.Printf("[Seeder] AccountID: %s", DemoAccountID)
	log.Printf("[Seeder] Provider: %s", DemoProvider)
}
