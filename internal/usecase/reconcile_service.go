package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
)

// DefaultRunTTL is how long finished runs stay downloadable
const DefaultRunTTL = time.Hour

// ReconcileConfig holds configuration for the reconciliation service
type ReconcileConfig struct {
	// Concurrency bounds in-flight searches; 1 or less runs sequentially
	Concurrency        int
	Rules              TableRules
	RunTTL             time.Duration
	EnableDebugLogging bool
}

// ReconcileService runs catalog rows through search, pricing and table building
type ReconcileService struct {
	searcher domain.MarketSearcher
	builder  *QueryBuilder
	runs     domain.RunRepository
	config   ReconcileConfig
	now      func() time.Time
}

// NewReconcileService creates a reconciliation service. runs may be nil when
// results do not need to outlive the call.
func NewReconcileService(
	searcher domain.MarketSearcher,
	builder *QueryBuilder,
	runs domain.RunRepository,
	config ReconcileConfig,
) *ReconcileService {
	if config.RunTTL == 0 {
		config.RunTTL = DefaultRunTTL
	}
	return &ReconcileService{
		searcher: searcher,
		builder:  builder,
		runs:     runs,
		config:   config,
		now:      time.Now,
	}
}

// indexedRow keeps a lookup result tied to its catalog position
type indexedRow struct {
	index   int
	row     *domain.ReconciledRow
	outcome domain.RowOutcome
}

// accumulator collects lookups as they finish
type accumulator struct {
	mu   sync.Mutex
	rows []indexedRow
}

func (a *accumulator) add(r indexedRow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, r)
}

// ordered returns the collected rows in catalog order
func (a *accumulator) ordered() []indexedRow {
	a.mu.Lock()
	defer a.mu.Unlock()
	sort.Slice(a.rows, func(i, j int) bool { return a.rows[i].index < a.rows[j].index })
	return a.rows
}

// Run searches every catalog item and returns the finished run.
// A failed search only unmatches its row; context cancellation aborts the run.
func (s *ReconcileService) Run(ctx context.Context, items []domain.CatalogItem) (*domain.RunResult, error) {
	acc := &accumulator{rows: make([]indexedRow, 0, len(items))}

	if s.config.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Concurrency)
		for i := range items {
			item := items[i]
			idx := i
			g.Go(func() error {
				r, err := s.lookup(gctx, idx, item)
				if err != nil {
					return err
				}
				acc.add(r)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, item := range items {
			r, err := s.lookup(ctx, i, item)
			if err != nil {
				return nil, err
			}
			acc.add(r)
		}
	}

	ordered := acc.ordered()
	rows := lo.FilterMap(ordered, func(r indexedRow, _ int) (domain.ReconciledRow, bool) {
		if r.row == nil {
			return domain.ReconciledRow{}, false
		}
		return *r.row, true
	})
	outcomes := lo.Map(ordered, func(r indexedRow, _ int) domain.RowOutcome { return r.outcome })

	run := &domain.RunResult{
		ID:        uuid.NewString(),
		Mode:      domain.ModeBulk,
		CreatedAt: s.now(),
		Rows:      rows,
		Table:     BuildTable(domain.ModeBulk, rows, s.config.Rules),
		Outcomes:  outcomes,
		Summary:   summarize(outcomes),
	}

	log.Info().
		Str("run_id", run.ID).
		Int("total", run.Summary.Total).
		Int("matched", run.Summary.Matched).
		Int("unmatched", run.Summary.Unmatched).
		Msg("catalog run finished")

	if err := s.save(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// lookup resolves one catalog item. The returned error is fatal to the run.
func (s *ReconcileService) lookup(ctx context.Context, index int, item domain.CatalogItem) (indexedRow, error) {
	result := indexedRow{
		index:   index,
		outcome: domain.RowOutcome{ProductCode: item.ProductCode},
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	query, err := s.builder.BuildBulk(item)
	if err != nil {
		result.outcome.Reason = domain.ReasonInvalidQuery
		s.logUnmatched(item, result.outcome.Reason, err)
		return result, nil
	}

	offers, err := s.searcher.Search(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		if !errors.Is(err, domain.ErrSearchUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
		}
		result.outcome.Reason = domain.ReasonSearchUnavailable
		log.Warn().Err(err).Str("product_code", item.ProductCode).Msg("search failed, row unmatched")
		return result, nil
	}

	if len(offers) == 0 {
		result.outcome.Reason = domain.ReasonNoOffers
		s.logUnmatched(item, result.outcome.Reason, nil)
		return result, nil
	}

	row := ReconcileRow(&item, offers[0], item.TaxClass)
	result.row = &row
	result.outcome.Matched = true
	result.outcome.Reason = domain.ReasonMatched

	if s.config.EnableDebugLogging {
		log.Debug().
			Str("product_code", item.ProductCode).
			Str("shop", row.Offer.ShopName).
			Int64("price", row.Offer.Price).
			Msg("row matched")
	}
	return result, nil
}

func (s *ReconcileService) logUnmatched(item domain.CatalogItem, reason string, err error) {
	if !s.config.EnableDebugLogging {
		return
	}
	log.Debug().Err(err).Str("product_code", item.ProductCode).Str("reason", reason).Msg("row unmatched")
}

// GetRun returns a stored run
func (s *ReconcileService) GetRun(ctx context.Context, id string) (*domain.RunResult, error) {
	if s.runs == nil {
		return nil, domain.ErrRunNotFound
	}
	return s.runs.Get(ctx, id)
}

// SetChangedPrice records an operator price override on a bulk run row,
// recomputes the changed-margin columns and stores the updated run
func (s *ReconcileService) SetChangedPrice(ctx context.Context, id, productCode string, price int64) (*domain.RunResult, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Mode != domain.ModeBulk {
		return nil, fmt.Errorf("%w: changed prices apply to catalog runs", domain.ErrInvalidRequest)
	}

	rows := make([]domain.ReconciledRow, len(run.Rows))
	copy(rows, run.Rows)

	_, idx, found := lo.FindIndexOf(rows, func(r domain.ReconciledRow) bool {
		return r.Item != nil && r.Item.ProductCode == productCode
	})
	if !found {
		return nil, fmt.Errorf("%w: product %s is not in run %s", domain.ErrInvalidRequest, productCode, id)
	}
	if err := ApplyChangedPrice(&rows[idx], price); err != nil {
		return nil, err
	}

	updated := *run
	updated.Rows = rows
	updated.Table = BuildTable(domain.ModeBulk, rows, s.config.Rules)

	if err := s.save(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *ReconcileService) save(ctx context.Context, run *domain.RunResult) error {
	return saveRun(ctx, s.runs, run, s.config.RunTTL)
}

func saveRun(ctx context.Context, runs domain.RunRepository, run *domain.RunResult, ttl time.Duration) error {
	if runs == nil {
		return nil
	}
	if err := runs.Save(ctx, run, ttl); err != nil {
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}
	return nil
}

func summarize(outcomes []domain.RowOutcome) domain.RunSummary {
	matched := lo.CountBy(outcomes, func(o domain.RowOutcome) bool { return o.Matched })
	return domain.RunSummary{
		Total:     len(outcomes),
		Matched:   matched,
		Unmatched: len(outcomes) - matched,
	}
}
