package rakuten

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Ichiba item search endpoint
const DefaultBaseURL = "https://app.rakuten.co.jp/services/api/IchibaItem/Search/20170706"

const maxResponseBytes = 2 << 20

// Client handles communication with the Rakuten Ichiba item search API
type Client struct {
	httpClient    *http.Client
	applicationID string
	baseURL       string
	rateLimiter   *rate.Limiter
	debug         bool
}

// NewClient creates a new Rakuten API client
func NewClient(applicationID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// Rakuten allows roughly one request per second per application ID
	limiter := rate.NewLimiter(rate.Limit(1), 1)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		applicationID: applicationID,
		baseURL:       strings.TrimRight(baseURL, "/"),
		rateLimiter:   limiter,
	}
}

// SetDebug toggles per-request debug logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// SetRateLimit replaces the outbound limiter. A non-positive rps disables limiting.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		c.rateLimiter = rate.NewLimiter(rate.Inf, 1)
		return
	}
	if burst < 1 {
		burst = 1
	}
	c.rateLimiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// SetTimeout sets the per-request HTTP timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
}

// Search issues exactly one request for the query and returns offers ascending by price.
// Transport failures, non-2xx statuses and undecodable bodies are ErrSearchUnavailable.
func (c *Client) Search(ctx context.Context, query domain.SearchQuery) ([]domain.MarketOffer, error) {
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, c.buildParams(query).Encode())

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "priceCheck/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrSearchUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrSearchUnavailable, resp.StatusCode, describeError(body))
	}

	var searchResp domain.RakutenSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrSearchUnavailable, err)
	}

	offers := MapToOffers(&searchResp)
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].Price < offers[j].Price
	})
	if query.ResultLimit > 0 && len(offers) > query.ResultLimit {
		offers = offers[:query.ResultLimit]
	}

	if c.debug {
		log.Debug().
			Str("keyword", query.Keyword).
			Int("offers", len(offers)).
			Int("status", resp.StatusCode).
			Msg("rakuten search")
	}

	return offers, nil
}

// buildParams renders the query as search API parameters
func (c *Client) buildParams(query domain.SearchQuery) url.Values {
	hits := query.ResultLimit
	if hits < 1 {
		hits = 1
	}
	if hits > domain.MaxResultLimit {
		hits = domain.MaxResultLimit
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("keyword", query.Keyword)
	if len(query.ExcludeKeywords) > 0 {
		params.Set("NGKeyword", strings.Join(query.ExcludeKeywords, " "))
	}
	params.Set("orFlag", strconv.Itoa(int(query.MatchMode)))
	if query.MinPrice != nil {
		params.Set("minPrice", strconv.FormatInt(*query.MinPrice, 10))
	}
	if query.MaxPrice != nil {
		params.Set("maxPrice", strconv.FormatInt(*query.MaxPrice, 10))
	}
	if query.RequireReview {
		params.Set("hasReviewFlag", "1")
	} else {
		params.Set("hasReviewFlag", "0")
	}
	params.Set("applicationId", c.applicationID)
	params.Set("availability", "1")
	params.Set("hits", strconv.Itoa(hits))
	params.Set("page", "1")
	params.Set("sort", "+itemPrice")
	return params
}

// describeError extracts the API's error description, falling back to the raw body
func describeError(body []byte) string {
	var apiErr domain.RakutenErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		if apiErr.ErrorDescription != "" {
			return apiErr.Error + ": " + apiErr.ErrorDescription
		}
		return apiErr.Error
	}
	return strings.TrimSpace(string(body))
}
