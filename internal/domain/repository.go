package domain

import (
	"context"
	"time"
)

// MarketSearcher defines the interface for the market search API
type MarketSearcher interface {
	Search(ctx context.Context, query SearchQuery) ([]MarketOffer, error)
}

// RunRepository defines the interface for holding finished runs until they expire
type RunRepository interface {
	Save(ctx context.Context, run *RunResult, ttl time.Duration) error
	Get(ctx context.Context, id string) (*RunResult, error)
	Delete(ctx context.Context, id string) error
}
