package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Individual search defaults
const (
	DefaultHits     = 10
	DefaultMinPrice = int64(1)
	DefaultMaxPrice = int64(999999)
)

// Half- and full-width whitespace runs
var multiSpacePattern = regexp.MustCompile(`[\s\x{3000}]+`)

// Profile enumerates the differences between pipeline variants
type Profile struct {
	ExcludeDefault     string           `validate:"-"`
	MatchMode          domain.MatchMode `validate:"oneof=0 1"`
	PriceBoundsEnabled bool             `validate:"-"`
	ResultLimitMax     int              `validate:"gte=1,lte=30"`
}

// SearchInput is the operator's individual search form
type SearchInput struct {
	Keyword         string  `json:"keyword"`
	ExcludeKeywords *string `json:"excludeKeywords,omitempty"`
	OrSearch        *bool   `json:"orSearch,omitempty"`
	MinPrice        *int64  `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice        *int64  `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	Hits            int     `json:"hits" validate:"gte=0,lte=30"`
	RequireReview   bool    `json:"requireReview"`
	ReducedTax      bool    `json:"reducedTax"`
}

// QueryBuilder maps catalog rows and operator input into search queries
type QueryBuilder struct {
	profile            Profile
	validate           *validator.Validate
	enableDebugLogging bool
}

// NewQueryBuilder creates a query builder for the given profile
func NewQueryBuilder(profile Profile, enableDebugLogging bool) (*QueryBuilder, error) {
	v := validator.New()
	if err := v.Struct(profile); err != nil {
		return nil, fmt.Errorf("%w: profile: %v", domain.ErrInvalidRequest, err)
	}
	return &QueryBuilder{
		profile:            profile,
		validate:           v,
		enableDebugLogging: enableDebugLogging,
	}, nil
}

// BuildBulk maps a catalog row to a cheapest-only query keyed on the JAN code.
// Price bounds are [purchase cost, list price] when the profile enables them.
func (b *QueryBuilder) BuildBulk(item domain.CatalogItem) (domain.SearchQuery, error) {
	keyword := NormalizeKeyword(item.JANCode)
	if keyword == "" {
		return domain.SearchQuery{}, domain.ErrEmptyKeyword
	}

	query := domain.SearchQuery{
		Keyword:         keyword,
		ExcludeKeywords: MergeExcludeKeywords(b.profile.ExcludeDefault, item.ExcludeKeywords...),
		MatchMode:       b.profile.MatchMode,
		ResultLimit:     1,
		RequireReview:   false,
	}

	if b.profile.PriceBoundsEnabled {
		if item.PurchaseCost > item.ListPrice {
			return domain.SearchQuery{}, fmt.Errorf("%w: %s cost %d exceeds list price %d",
				domain.ErrInvalidRequest, item.ProductCode, item.PurchaseCost, item.ListPrice)
		}
		query.MinPrice = lo.ToPtr(item.PurchaseCost)
		query.MaxPrice = lo.ToPtr(item.ListPrice)
	}

	if b.enableDebugLogging {
		log.Debug().Str("product_code", item.ProductCode).Str("keyword", keyword).Msg("bulk query built")
	}
	return query, nil
}

// BuildIndividual maps operator input to a query. An empty keyword is ErrEmptyKeyword.
func (b *QueryBuilder) BuildIndividual(in SearchInput) (domain.SearchQuery, error) {
	if err := b.validate.Struct(in); err != nil {
		return domain.SearchQuery{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	keyword := NormalizeKeyword(in.Keyword)
	if keyword == "" {
		return domain.SearchQuery{}, domain.ErrEmptyKeyword
	}

	hits := in.Hits
	if hits == 0 {
		hits = min(DefaultHits, b.profile.ResultLimitMax)
	}
	if hits > b.profile.ResultLimitMax {
		return domain.SearchQuery{}, fmt.Errorf("%w: hits %d exceeds %d", domain.ErrInvalidRequest, hits, b.profile.ResultLimitMax)
	}

	exclude := b.profile.ExcludeDefault
	if in.ExcludeKeywords != nil {
		exclude = *in.ExcludeKeywords
	}

	mode := b.profile.MatchMode
	if in.OrSearch != nil {
		mode = domain.MatchAND
		if *in.OrSearch {
			mode = domain.MatchOR
		}
	}

	query := domain.SearchQuery{
		Keyword:         keyword,
		ExcludeKeywords: MergeExcludeKeywords(exclude),
		MatchMode:       mode,
		ResultLimit:     hits,
		RequireReview:   in.RequireReview,
	}

	if b.profile.PriceBoundsEnabled {
		minPrice := lo.FromPtrOr(in.MinPrice, DefaultMinPrice)
		maxPrice := lo.FromPtrOr(in.MaxPrice, DefaultMaxPrice)
		if minPrice > maxPrice {
			return domain.SearchQuery{}, fmt.Errorf("%w: min price %d exceeds max price %d", domain.ErrInvalidRequest, minPrice, maxPrice)
		}
		query.MinPrice = &minPrice
		query.MaxPrice = &maxPrice
	}

	if b.enableDebugLogging {
		log.Debug().Str("keyword", keyword).Int("hits", hits).Msg("individual query built")
	}
	return query, nil
}

// NormalizeKeyword collapses half- and full-width whitespace and trims
func NormalizeKeyword(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}

// MergeExcludeKeywords splits the default phrase and extra terms into an
// order-preserving, duplicate-free term list
func MergeExcludeKeywords(phrase string, extra ...string) []string {
	terms := strings.Fields(NormalizeKeyword(phrase))
	for _, e := range extra {
		terms = append(terms, strings.Fields(NormalizeKeyword(e))...)
	}
	return lo.Uniq(lo.Compact(terms))
}
