package scheduler

import (
	"context"
	"fmt"

	"github.com/ndewijer/Investment-Ledger-Backend/internal/service"
)

// PriceRefreshJob fetches quotes for every open equity position.
type PriceRefreshJob struct {
	prices *service.PriceService
}

// NewPriceRefreshJob creates a new PriceRefreshJob.
func NewPriceRefreshJob(prices *service.PriceService) *PriceRefreshJob {
	return &PriceRefreshJob{prices: prices}
}

// Name returns the job name.
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes the quotes.
func (j *PriceRefreshJob) Run(ctx context.Context) error {
	_, err := j.prices.Refresh(ctx)
	return err
}

// CacheWarmJob derives every instrument's position so that the first request after an
// out-of-band ledger edit does not pay for derivation.
type CacheWarmJob struct {
	positions *service.PositionService
}

// NewCacheWarmJob creates a new CacheWarmJob.
func NewCacheWarmJob(positions *service.PositionService) *CacheWarmJob {
	return &CacheWarmJob{positions: positions}
}

// Name returns the job name.
func (j *CacheWarmJob) Name() string {
	return "cache_warm"
}

// Run derives all positions.
func (j *CacheWarmJob) Run(ctx context.Context) error {
	if _, err := j.positions.ListPositions(ctx); err != nil {
		return fmt.Errorf("failed to warm position cache: %w", err)
	}
	return nil
}
