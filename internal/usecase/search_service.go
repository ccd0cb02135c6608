package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
)

// SearchConfig holds configuration for the individual search service
type SearchConfig struct {
	Rules              TableRules
	RunTTL             time.Duration
	EnableDebugLogging bool
}

// SearchService handles operator keyword searches
type SearchService struct {
	searcher domain.MarketSearcher
	builder  *QueryBuilder
	runs     domain.RunRepository
	config   SearchConfig
	now      func() time.Time
}

// NewSearchService creates an individual search service with dependencies
func NewSearchService(
	searcher domain.MarketSearcher,
	builder *QueryBuilder,
	runs domain.RunRepository,
	config SearchConfig,
) *SearchService {
	if config.RunTTL == 0 {
		config.RunTTL = DefaultRunTTL
	}
	return &SearchService{
		searcher: searcher,
		builder:  builder,
		runs:     runs,
		config:   config,
		now:      time.Now,
	}
}

// Search runs one individual query.
// Flow: build query -> search -> derive points -> sort ascending -> table -> store
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*domain.RunResult, error) {
	query, err := s.builder.BuildIndividual(in)
	if err != nil {
		return nil, err
	}

	offers, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	tax := domain.TaxStandard
	if in.ReducedTax {
		tax = domain.TaxReduced
	}

	rows := make([]domain.ReconciledRow, 0, len(offers))
	for _, offer := range offers {
		rows = append(rows, ReconcileRow(nil, offer, tax))
	}
	SortByPrice(rows)

	run := &domain.RunResult{
		ID:        uuid.NewString(),
		Mode:      domain.ModeIndividual,
		CreatedAt: s.now(),
		Rows:      rows,
		Table:     BuildTable(domain.ModeIndividual, rows, s.config.Rules),
		Summary:   domain.RunSummary{Total: len(rows), Matched: len(rows)},
	}

	if s.config.EnableDebugLogging {
		log.Debug().Str("run_id", run.ID).Str("keyword", query.Keyword).Int("offers", len(rows)).Msg("individual search finished")
	}

	if err := saveRun(ctx, s.runs, run, s.config.RunTTL); err != nil {
		return nil, err
	}
	return run, nil
}
