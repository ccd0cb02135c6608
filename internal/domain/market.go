package domain

// MatchMode selects how multiple keywords combine
type MatchMode int

const (
	MatchAND MatchMode = 0
	MatchOR  MatchMode = 1
)

// MaxResultLimit is the largest page size the search API accepts
const MaxResultLimit = 30

// SearchQuery is a single market search request
type SearchQuery struct {
	Keyword         string    `json:"keyword"`
	ExcludeKeywords []string  `json:"excludeKeywords"`
	MatchMode       MatchMode `json:"matchMode"`
	MinPrice        *int64    `json:"minPrice,omitempty"`
	MaxPrice        *int64    `json:"maxPrice,omitempty"`
	ResultLimit     int       `json:"resultLimit"`
	RequireReview   bool      `json:"requireReview"`
}

// MarketOffer is one shop's listing returned by the search API
type MarketOffer struct {
	ShopName        string   `json:"shopName"`
	ItemCode        string   `json:"itemCode"`
	ItemName        string   `json:"itemName"`
	Price           int64    `json:"price"`
	PointRate       int64    `json:"pointRate"`
	HasFreeShipping bool     `json:"hasFreeShipping"`
	ItemURL         string   `json:"itemUrl"`
	ReviewCount     *int64   `json:"reviewCount,omitempty"`
	ReviewAverage   *float64 `json:"reviewAverage,omitempty"`
	SaleEndTime     *string  `json:"saleEndTime,omitempty"`
	ImageURL        *string  `json:"imageUrl,omitempty"`
}

// RakutenItem is the raw item record inside the search response.
// Optional fields are pointers so absent keys stay nil.
type RakutenItem struct {
	ShopName        string            `json:"shopName"`
	ItemCode        string            `json:"itemCode"`
	ItemName        string            `json:"itemName"`
	ItemPrice       *int64            `json:"itemPrice"`
	PointRate       *int64            `json:"pointRate"`
	PostageFlag     *int              `json:"postageFlag"`
	ItemURL         string            `json:"itemUrl"`
	ReviewCount     *int64            `json:"reviewCount"`
	ReviewAverage   *float64          `json:"reviewAverage"`
	EndTime         *string           `json:"endTime"`
	MediumImageURLs []RakutenImageURL `json:"mediumImageUrls"`
}

// RakutenImageURL wraps one image entry
type RakutenImageURL struct {
	ImageURL string `json:"imageUrl"`
}

// RakutenSearchResponse represents the response from the Ichiba item search API
type RakutenSearchResponse struct {
	Count     int                  `json:"count"`
	Page      int                  `json:"page"`
	PageCount int                  `json:"pageCount"`
	Hits      int                  `json:"hits"`
	Items     []RakutenItemWrapper `json:"Items"`
}

// RakutenItemWrapper is the {"Item": {...}} envelope around each result
type RakutenItemWrapper struct {
	Item RakutenItem `json:"Item"`
}

// RakutenErrorResponse is the body returned with non-2xx statuses
type RakutenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
