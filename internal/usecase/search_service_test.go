package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearchService(t *testing.T, searcher domain.MarketSearcher, runs domain.RunRepository) *SearchService {
	t.Helper()
	return NewSearchService(searcher, newBuilder(t, defaultProfile()), runs, SearchConfig{
		Rules: TableRules{PartnerShop: partnerShop},
	})
}

func TestSearchService_SortsAscending(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.offers["coffee beans"] = []domain.MarketOffer{
		offer("c", 300), offer("a", 100), offer("b", 200),
	}
	runs := newFakeRuns()
	svc := newSearchService(t, searcher, runs)

	run, err := svc.Search(context.Background(), SearchInput{Keyword: " coffee　beans "})
	require.NoError(t, err)

	assert.Equal(t, domain.ModeIndividual, run.Mode)
	prices := lo.Map(run.Rows, func(r domain.ReconciledRow, _ int) int64 { return r.Offer.Price })
	assert.Equal(t, []int64{100, 200, 300}, prices)
	assert.Equal(t, "100", run.Table.Rows[0].Cells[3])
	assert.Equal(t, domain.RunSummary{Total: 3, Matched: 3}, run.Summary)

	_, err = runs.Get(context.Background(), run.ID)
	assert.NoError(t, err)

	require.Len(t, searcher.queries, 1)
	assert.Equal(t, DefaultHits, searcher.queries[0].ResultLimit)
	assert.Equal(t, int64(DefaultMinPrice), *searcher.queries[0].MinPrice)
}

func TestSearchService_TaxFlag(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.offers["tea"] = []domain.MarketOffer{offer("a", 1000)}
	svc := newSearchService(t, searcher, nil)

	reduced, err := svc.Search(context.Background(), SearchInput{Keyword: "tea", ReducedTax: true})
	require.NoError(t, err)
	assert.Equal(t, int64(9), reduced.Rows[0].PointsEarned)
	assert.Equal(t, int64(991), reduced.Rows[0].NetPrice)

	standard, err := svc.Search(context.Background(), SearchInput{Keyword: "tea"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), standard.Rows[0].PointsEarned)
	assert.Nil(t, standard.Rows[0].ProfitAmount)
}

func TestSearchService_Errors(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.errs["down"] = fmt.Errorf("%w: status 500", domain.ErrSearchUnavailable)
	svc := newSearchService(t, searcher, nil)

	_, err := svc.Search(context.Background(), SearchInput{Keyword: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyKeyword)

	_, err = svc.Search(context.Background(), SearchInput{Keyword: "down"})
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)

	_, err = svc.Search(context.Background(), SearchInput{Keyword: "x", Hits: 31})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Empty(t, searcher.queries[1:])
}

func TestSearchService_NoOffers(t *testing.T) {
	svc := newSearchService(t, newFakeSearcher(), nil)

	run, err := svc.Search(context.Background(), SearchInput{Keyword: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, run.Table.Rows)
	assert.Equal(t, IndividualColumns, run.Table.Columns)
}
