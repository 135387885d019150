package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/cache"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

// Repository is the persistence surface the store needs: transactional
// upserts and single-rate lookups.
type Repository interface {
	UpsertRates(ctx context.Context, rates map[string]decimal.Decimal) error
	RateByCode(ctx context.Context, code string) (decimal.Decimal, error)
	SupportedCurrencies(ctx context.Context) ([]string, error)
}

// Store holds the latest rate of each currency against the configured
// base. Lookups go through a small cache that is purged on every
// successful update, so a refresh is immediately visible.
type Store struct {
	repo  Repository
	base  string
	cache *cache.LRU[decimal.Decimal]
	log   *log.Logger
}

func NewStore(repo Repository, base string, logger *log.Logger) *Store {
	return &Store{
		repo:  repo,
		base:  base,
		cache: cache.NewLRU[decimal.Decimal](256, 10*time.Minute),
		log:   logger.WithComponent(log.ComponentRates),
	}
}

func (s *Store) Base() string {
	return s.base
}

// UpdateRates applies a feed snapshot. A snapshot whose declared base
// differs from the configured base is a configuration error and leaves
// stored rates untouched. Replaying the same snapshot is a no-op in
// effect: every rate is an upsert.
func (s *Store) UpdateRates(ctx context.Context, set core.RateSet) error {
	if set.Base != s.base {
		return fmt.Errorf("rate set base %q, configured base %q: %w", set.Base, s.base, core.ErrBaseMismatch)
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("validate rate set: %w", err)
	}

	if err := s.repo.UpsertRates(ctx, set.Rates); err != nil {
		return fmt.Errorf("store rates: %w", err)
	}
	s.cache.Purge()

	s.log.InfoContext(ctx, "Exchange rates updated",
		log.FieldBase, set.Base,
		log.FieldRateCount, len(set.Rates))
	return nil
}

// RateToBase resolves a currency's rate against the base currency. The
// base itself has an implicit rate of 1. A currency without a stored
// rate yields core.ErrRateUnavailable.
func (s *Store) RateToBase(ctx context.Context, code string) (decimal.Decimal, error) {
	if code == s.base {
		return decimal.NewFromInt(1), nil
	}

	if rate, ok := s.cache.Get(code); ok {
		return rate, nil
	}

	rate, err := s.repo.RateByCode(ctx, code)
	if err != nil {
		return decimal.Decimal{}, err
	}
	s.cache.Set(code, rate)
	return rate, nil
}

func (s *Store) SupportedCurrencies(ctx context.Context) ([]string, error) {
	return s.repo.SupportedCurrencies(ctx)
}
