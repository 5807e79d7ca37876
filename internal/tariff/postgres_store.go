package tariff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vnmchuo/billing-gateway/internal/provider"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	query := `
		SELECT id, provider, created_at
		FROM accounts
		WHERE id = $1
	`
	var a Account
	err := s.db.QueryRow(ctx, query, accountID).Scan(&a.ID, &a.Provider, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("query account: %w", err)}
	}
	return &a, nil
}

func (s *PostgresStore) GetRates(ctx context.Context, accountID string) (map[provider.TariffCategory][]RateInterval, error) {
	query := `
		SELECT tariff_category, rate_per_minute_cents, valid_from, valid_until
		FROM rate_intervals
		WHERE account_id = $1
		ORDER BY tariff_category, valid_from
	`
	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("query rate intervals: %w", err)}
	}
	defer rows.Close()

	rates := make(map[provider.TariffCategory][]RateInterval)
	for rows.Next() {
		var r RateInterval
		if err := rows.Scan(&r.Category, &r.RatePerMinuteCents, &r.ValidFrom, &r.ValidUntil); err != nil {
			return nil, &StorageError{Err: fmt.Errorf("scan rate interval: %w", err)}
		}
		rates[r.Category] = append(rates[r.Category], r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Err: fmt.Errorf("iterate rate intervals: %w", err)}
	}

	return rates, nil
}

func (s *PostgresStore) GetSurcharges(ctx context.Context, accountID string) (map[provider.TariffCategory][]SurchargeInterval, error) {
	query := `
		SELECT percent_increase, valid_from, valid_until, applies_to
		FROM surcharge_intervals
		WHERE account_id = $1
		ORDER BY valid_from
	`
	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, &StorageError{Err: fmt.Errorf("query surcharge intervals: %w", err)}
	}
	defer rows.Close()

	surcharges := make(map[provider.TariffCategory][]SurchargeInterval)
	for rows.Next() {
		var sc SurchargeInterval
		var appliesTo []string
		if err := rows.Scan(&sc.PercentIncrease, &sc.ValidFrom, &sc.ValidUntil, &appliesTo); err != nil {
			return nil, &StorageError{Err: fmt.Errorf("scan surcharge interval: %w", err)}
		}
		for _, c := range appliesTo {
			sc.Categories = append(sc.Categories, provider.TariffCategory(c))
		}
		expandSurcharge(sc, surcharges)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Err: fmt.Errorf("iterate surcharge intervals: %w", err)}
	}

	return surcharges, nil
}

func (s *PostgresStore) CreateAccount(ctx context.Context, a *Account) error {
	query := `
		INSERT INTO accounts (id, provider)
		VALUES ($1, $2)
		RETURNING created_at
	`
	if err := s.db.QueryRow(ctx, query, a.ID, a.Provider).Scan(&a.CreatedAt); err != nil {
		return &StorageError{Err: fmt.Errorf("insert account: %w", err)}
	}
	return nil
}

func (s *PostgresStore) CreateRateInterval(ctx context.Context, accountID string, r RateInterval) error {
	if !r.ValidFrom.Before(r.ValidUntil) {
		return fmt.Errorf("rate interval valid_from %s is not before valid_until %s", r.ValidFrom, r.ValidUntil)
	}
	query := `
		INSERT INTO rate_intervals (account_id, tariff_category, rate_per_minute_cents, valid_from, valid_until)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query, accountID, r.Category, r.RatePerMinuteCents, r.ValidFrom, r.ValidUntil)
	if err != nil {
		return &StorageError{Err: fmt.Errorf("insert rate interval: %w", err)}
	}
	return nil
}

func (s *PostgresStore) CreateSurcharge(ctx context.Context, accountID string, sc SurchargeInterval) error {
	if !sc.ValidFrom.Before(sc.ValidUntil) {
		return fmt.Errorf("surcharge valid_from %s is not before valid_until %s", sc.ValidFrom, sc.ValidUntil)
	}
	var appliesTo []string
	for _, c := range sc.Categories {
		appliesTo = append(appliesTo, string(c))
	}
	query := `
		INSERT INTO surcharge_intervals (account_id, percent_increase, valid_from, valid_until, applies_to)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.Exec(ctx, query, accountID, sc.PercentIncrease, sc.ValidFrom, sc.ValidUntil, appliesTo)
	if err != nil {
		return &StorageError{Err: fmt.Errorf("insert surcharge interval: %w", err)}
	}
	return nil
}
