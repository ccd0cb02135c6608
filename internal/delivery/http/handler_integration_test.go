package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoffeeTonya/priceCheck/config"
	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/charset"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/export"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/store"
	"github.com/CoffeeTonya/priceCheck/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubSearcher answers by keyword
type stubSearcher struct {
	mu      sync.Mutex
	offers  map[string][]domain.MarketOffer
	fail    map[string]bool
	queries []domain.SearchQuery
}

func (s *stubSearcher) Search(ctx context.Context, q domain.SearchQuery) ([]domain.MarketOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.fail[q.Keyword] {
		return nil, fmt.Errorf("%w: status 503", domain.ErrSearchUnavailable)
	}
	return s.offers[q.Keyword], nil
}

func newStubSearcher() *stubSearcher {
	return &stubSearcher{
		offers: map[string][]domain.MarketOffer{
			"4901": {{ShopName: "shop-a", ItemName: "beans", ItemURL: "https://item/1", Price: 400, PointRate: 1}},
			"4902": {{ShopName: "shop-b", ItemName: "tea", ItemURL: "https://item/2", Price: 1000, PointRate: 1}},
			"coffee": {
				{ShopName: "c", Price: 300, PointRate: 1},
				{ShopName: "a", Price: 100, PointRate: 1},
				{ShopName: "b", Price: 200, PointRate: 1},
			},
		},
		fail: map[string]bool{"broken": true, "4903": true},
	}
}

// setupTestRouter wires real services around a stub searcher
func setupTestRouter(t *testing.T, searcher domain.MarketSearcher) *gin.Engine {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:8501"},
			MaxUploadBytes: 1 << 20,
		},
	}

	builder, err := usecase.NewQueryBuilder(usecase.Profile{
		ExcludeDefault:     "部品 中古",
		MatchMode:          domain.MatchAND,
		PriceBoundsEnabled: true,
		ResultLimitMax:     domain.MaxResultLimit,
	}, false)
	require.NoError(t, err)

	runs := store.NewMemoryStore(0)
	rules := usecase.TableRules{PartnerShop: "shop-b"}
	handler := NewHandler(
		usecase.NewSearchService(searcher, builder, runs, usecase.SearchConfig{Rules: rules}),
		usecase.NewReconcileService(searcher, builder, runs, usecase.ReconcileConfig{Concurrency: 1, Rules: rules}),
		export.NewExporter(export.DefaultEncodings, time.FixedZone("JST", 9*60*60)),
		UploadDefaults{MasterEncoding: charset.UTF8, GoodsEncoding: charset.ShiftJIS, ResultEncoding: charset.UTF8},
	)

	return SetupRouter(cfg, handler)
}

const masterCSV = "商品コード,JANコード,仕入単価,通販単価,税率区分名,商品分類6名\n" +
	"A,4901,100,500,軽減税率,通常\n" +
	"B,4902,500,1200,課税,通常\n" +
	"C,4903,100,500,課税,通常\n"

// multipartBody builds a form with files and plain fields
func multipartBody(t *testing.T, files map[string]string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for field, content := range files {
		part, err := w.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postCatalog(t *testing.T, router *gin.Engine, files, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/catalog/search", body)
	req.Header.Set("Content-Type", contentType)
	return do(router, req)
}

func decodeRun(t *testing.T, w *httptest.ResponseRecorder) domain.RunResult {
	t.Helper()
	var run domain.RunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	return run
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthCheckEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubSearcher())

	w := do(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "pricecheck", response["service"])

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := do(router, httptest.NewRequest(method, "/health", nil))
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubSearcher())

	search := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		return do(router, req)
	}

	t.Run("returns offers sorted ascending", func(t *testing.T) {
		w := search(`{"keyword":"coffee","reducedTax":true}`)
		require.Equal(t, http.StatusOK, w.Code)

		run := decodeRun(t, w)
		assert.Equal(t, domain.ModeIndividual, run.Mode)
		require.Len(t, run.Table.Rows, 3)
		assert.Equal(t, "100", run.Table.Rows[0].Cells[3])
		assert.Equal(t, "300", run.Table.Rows[2].Cells[3])
	})

	t.Run("empty keyword prompts instead of failing", func(t *testing.T) {
		w := search(`{"keyword":"   "}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), EmptyKeywordPrompt)
	})

	t.Run("search failure is a bad gateway", func(t *testing.T) {
		w := search(`{"keyword":"broken"}`)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, errorMessage(t, w), "market search unavailable")
	})

	t.Run("invalid input", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, search(`{"keyword":`).Code)
		assert.Equal(t, http.StatusBadRequest, search(`{"keyword":"coffee","hits":31}`).Code)
		assert.Equal(t, http.StatusBadRequest, search(`{"keyword":"coffee","minPrice":500,"maxPrice":100}`).Code)
	})
}

func TestCatalogSearchEndpoint(t *testing.T) {
	searcher := newStubSearcher()
	router := setupTestRouter(t, searcher)

	w := postCatalog(t, router, map[string]string{"catalog": masterCSV}, map[string]string{"excludeKeywords": "訳あり"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	run := decodeRun(t, w)
	assert.Equal(t, domain.ModeBulk, run.Mode)
	assert.Equal(t, domain.RunSummary{Total: 3, Matched: 2, Unmatched: 1}, run.Summary)
	require.Len(t, run.Table.Rows, 2)
	assert.Equal(t, "A", run.Table.Rows[0].Cells[0])
	assert.True(t, run.Table.Rows[1].Highlight)
	assert.Equal(t, domain.ReasonSearchUnavailable, run.Outcomes[2].Reason)
	assert.Equal(t, []string{"部品", "中古", "訳あり"}, searcher.queries[0].ExcludeKeywords)

	t.Run("run can be fetched", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, run.ID, decodeRun(t, w).ID)
	})

	t.Run("changed price updates the run", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/runs/"+run.ID+"/rows/B/changed-price", strings.NewReader(`{"price":1100}`))
		req.Header.Set("Content-Type", "application/json")
		w := do(router, req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		updated := decodeRun(t, w)
		assert.Equal(t, "1100", updated.Table.Rows[1].Cells[5])
		assert.Equal(t, "0.50", updated.Table.Rows[1].Cells[15])
	})

	t.Run("result CSV download", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID+"/result.csv", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "result.csv")

		decoded, err := charset.Decode(w.Body.Bytes(), charset.UTF8BOM)
		require.NoError(t, err)
		records, err := csv.NewReader(bytes.NewReader(decoded)).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, usecase.BulkColumns, records[0])
		assert.Len(t, records, 3)
	})

	t.Run("yahoo export uses the changed price", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID+"/exports/yahoo", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "code,original-price,price\r\nA,500,400\r\nB,1200,1100\r\n", w.Body.String())
	})

	t.Run("rakuten export has paired rows", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID+"/exports/rakuten", nil))
		require.Equal(t, http.StatusOK, w.Code)
		decoded, err := charset.Decode(w.Body.Bytes(), charset.ShiftJIS)
		require.NoError(t, err)
		records, err := csv.NewReader(bytes.NewReader(decoded)).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 1+2*2)
	})

	t.Run("unknown platform", func(t *testing.T) {
		w := do(router, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+run.ID+"/exports/amazon", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCatalogSearchEndpoint_Errors(t *testing.T) {
	router := setupTestRouter(t, newStubSearcher())

	t.Run("missing catalog file", func(t *testing.T) {
		w := postCatalog(t, router, nil, map[string]string{"catalogEncoding": "utf-8"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing columns", func(t *testing.T) {
		w := postCatalog(t, router, map[string]string{"catalog": "商品コード\nA\n"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, errorMessage(t, w), "malformed input file")
	})

	t.Run("wrong declared encoding", func(t *testing.T) {
		w := postCatalog(t, router, map[string]string{"catalog": masterCSV}, map[string]string{"catalogEncoding": "latin-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-numeric cost", func(t *testing.T) {
		bad := "商品コード,JANコード,仕入単価,通販単価,税率区分名,商品分類6名\nA,4901,abc,500,課税,通常\n"
		w := postCatalog(t, router, map[string]string{"catalog": bad}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, errorMessage(t, w), "invalid numeric value")
	})
}

func TestRunEndpoints_NotFound(t *testing.T) {
	router := setupTestRouter(t, newStubSearcher())

	for _, path := range []string{
		"/api/v1/runs/missing",
		"/api/v1/runs/missing/result.csv",
		"/api/v1/runs/missing/exports/yahoo",
	} {
		w := do(router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestExportFromResultEndpoint(t *testing.T) {
	router := setupTestRouter(t, newStubSearcher())
	result := "商品コード,商品価格,変更価格,通販単価,税率区分名\n" +
		"A,400,,500,軽減税率\n" +
		"B,1000,950,1200,課税\n"

	upload := func(platform, content string) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, map[string]string{"result": content}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/exports/"+platform, body)
		req.Header.Set("Content-Type", contentType)
		return do(router, req)
	}

	w := upload("yahoo", result)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "code,original-price,price\r\nA,500,400\r\nB,1200,950\r\n", w.Body.String())

	w = upload("inhouse", result)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\xef\xbb\xbf")))

	w = upload("yahoo", "商品コード,商品価格\nA,1\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("amazon", result)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
