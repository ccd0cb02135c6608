package domain

import "time"

// RunMode distinguishes catalog (bulk) runs from individual searches
type RunMode string

const (
	ModeBulk       RunMode = "bulk"
	ModeIndividual RunMode = "individual"
)

// ReconciledRow joins an optional catalog item with its best offer and derived fields.
// Margin fields are nil when there is no catalog item or the arithmetic failed.
type ReconciledRow struct {
	Item                *CatalogItem `json:"item,omitempty"`
	Offer               MarketOffer  `json:"offer"`
	PointsEarned        int64        `json:"pointsEarned"`
	NetPrice            int64        `json:"netPrice"`
	PriceDelta          *int64       `json:"priceDelta,omitempty"`
	ProfitAmount        *int64       `json:"profitAmount,omitempty"`
	ProfitRate          *int64       `json:"profitRate,omitempty"`
	ChangedPrice        *int64       `json:"changedPrice,omitempty"`
	ChangedProfitAmount *string      `json:"changedProfitAmount,omitempty"`
	ChangedProfitRate   *string      `json:"changedProfitRate,omitempty"`
	MarginErr           string       `json:"marginError,omitempty"`
}

// Outcome reasons for catalog rows
const (
	ReasonMatched           = "matched"
	ReasonNoOffers          = "no offers"
	ReasonSearchUnavailable = "search unavailable"
	ReasonInvalidQuery      = "invalid query"
)

// RowOutcome records what happened to one catalog row
type RowOutcome struct {
	ProductCode string `json:"productCode"`
	Matched     bool   `json:"matched"`
	Reason      string `json:"reason"`
}

// RunSummary counts row fates for a run
type RunSummary struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Unmatched int `json:"unmatched"`
}

// RunResult is one finished pipeline execution
type RunResult struct {
	ID        string          `json:"id"`
	Mode      RunMode         `json:"mode"`
	CreatedAt time.Time       `json:"createdAt"`
	Rows      []ReconciledRow `json:"rows"`
	Table     Table           `json:"table"`
	Outcomes  []RowOutcome    `json:"outcomes,omitempty"`
	Summary   RunSummary      `json:"summary"`
}

// Table is the rendered result grid
type Table struct {
	Mode    RunMode    `json:"mode"`
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// TableRow is one rendered row; Cells align with Table.Columns
type TableRow struct {
	Cells     []string `json:"cells"`
	Highlight bool     `json:"highlight"`
}

// PriceUpdate is the input to the storefront exporters
type PriceUpdate struct {
	ProductCode string   `json:"productCode"`
	ListPrice   int64    `json:"listPrice"`
	Price       int64    `json:"price"`
	TaxClass    TaxClass `json:"taxClass"`
}
