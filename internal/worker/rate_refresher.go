package worker

import (
	"context"
	"fmt"
	"time"

	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

// RateFeed fetches a rate snapshot from the external provider.
type RateFeed interface {
	Fetch(ctx context.Context) (core.RateSet, error)
}

// RateStore applies a fetched snapshot.
type RateStore interface {
	UpdateRates(ctx context.Context, set core.RateSet) error
}

// RateRefresher keeps stored rates current. Run refreshes immediately
// on start, then on every tick. A failed fetch or a rejected snapshot
// is logged and retried on the next tick; stored rates are untouched
// in the meantime.
type RateRefresher struct {
	feed     RateFeed
	store    RateStore
	interval time.Duration
	log      *log.Logger
}

func NewRateRefresher(feed RateFeed, store RateStore, interval time.Duration, logger *log.Logger) *RateRefresher {
	return &RateRefresher{
		feed:     feed,
		store:    store,
		interval: interval,
		log:      logger.WithComponent(log.ComponentRefresher),
	}
}

func (r *RateRefresher) Run(ctx context.Context) error {
	if err := r.RefreshOnce(ctx); err != nil {
		r.log.ErrorContext(ctx, "Initial rate refresh failed", log.FieldError, err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RefreshOnce(ctx); err != nil {
				r.log.ErrorContext(ctx, "Rate refresh failed", log.FieldError, err)
			}
		}
	}
}

// RefreshOnce performs a single fetch-and-update cycle.
func (r *RateRefresher) RefreshOnce(ctx context.Context) error {
	set, err := r.feed.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}
	if err := r.store.UpdateRates(ctx, set); err != nil {
		return fmt.Errorf("apply rates: %w", err)
	}
	return nil
}
