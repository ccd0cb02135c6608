package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/catalog"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/export"
	"github.com/CoffeeTonya/priceCheck/internal/usecase"
)

// EmptyKeywordPrompt is returned instead of an error when no keyword was entered
const EmptyKeywordPrompt = "キーワードを入力してください"

// UploadDefaults are the encodings assumed when a form leaves them blank
type UploadDefaults struct {
	MasterEncoding string
	GoodsEncoding  string
	ResultEncoding string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search    *usecase.SearchService
	reconcile *usecase.ReconcileService
	exporter  *export.Exporter
	uploads   UploadDefaults
}

// NewHandler creates a new HTTP handler
func NewHandler(
	search *usecase.SearchService,
	reconcile *usecase.ReconcileService,
	exporter *export.Exporter,
	uploads UploadDefaults,
) *Handler {
	return &Handler{
		search:    search,
		reconcile: reconcile,
		exporter:  exporter,
		uploads:   uploads,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricecheck",
		"version": "1.0.0",
	})
}

// Search handles individual keyword searches
func (h *Handler) Search(c *gin.Context) {
	var input usecase.SearchInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	run, err := h.search.Search(c.Request.Context(), input)
	if errors.Is(err, domain.ErrEmptyKeyword) {
		c.JSON(http.StatusOK, gin.H{"message": EmptyKeywordPrompt})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// SearchCatalog handles catalog uploads and runs the bulk reconciliation
func (h *Handler) SearchCatalog(c *gin.Context) {
	master, err := h.openSource(c, "catalog", "catalogEncoding", h.uploads.MasterEncoding, true)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeSource(master)

	goods, err := h.openSource(c, "goods", "goodsEncoding", h.uploads.GoodsEncoding, false)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeSource(goods)

	items, err := catalog.Load(c.Request.Context(), *master, goods)
	if err != nil {
		respondError(c, err)
		return
	}

	if extra := c.PostForm("excludeKeywords"); extra != "" {
		for i := range items {
			items[i].ExcludeKeywords = append(items[i].ExcludeKeywords, extra)
		}
	}

	run, err := h.reconcile.Run(c.Request.Context(), items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRun returns a stored run
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.reconcile.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// changedPriceRequest is the body of a changed-price update
type changedPriceRequest struct {
	Price *int64 `json:"price" binding:"required"`
}

// SetChangedPrice records an operator price override on a run row
func (h *Handler) SetChangedPrice(c *gin.Context) {
	var req changedPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	run, err := h.reconcile.SetChangedPrice(c.Request.Context(), c.Param("id"), c.Param("code"), *req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// DownloadResult serves a run's result table as CSV
func (h *Handler) DownloadResult(c *gin.Context) {
	run, err := h.reconcile.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.exporter.WriteResult(run.Table)
	if err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, export.ResultFileName, data)
}

// DownloadExport serves a storefront file built from a catalog run
func (h *Handler) DownloadExport(c *gin.Context) {
	platform, err := export.ParsePlatform(c.Param("platform"))
	if err != nil {
		respondError(c, err)
		return
	}

	run, err := h.reconcile.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if run.Mode != domain.ModeBulk {
		respondError(c, fmt.Errorf("%w: exports need a catalog run", domain.ErrInvalidRequest))
		return
	}

	h.renderExport(c, platform, export.FromRows(run.Rows))
}

// ExportFromResult builds a storefront file from a re-uploaded result CSV
func (h *Handler) ExportFromResult(c *gin.Context) {
	platform, err := export.ParsePlatform(c.Param("platform"))
	if err != nil {
		respondError(c, err)
		return
	}

	src, err := h.openSource(c, "result", "resultEncoding", h.uploads.ResultEncoding, true)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeSource(src)

	updates, err := export.ReadPriceUpdates(src.Reader, src.Encoding)
	if err != nil {
		respondError(c, err)
		return
	}

	h.renderExport(c, platform, updates)
}

func (h *Handler) renderExport(c *gin.Context, platform export.Platform, updates []domain.PriceUpdate) {
	data, err := h.exporter.Render(platform, updates)
	if err != nil {
		respondError(c, err)
		return
	}
	sendCSV(c, platform.FileName(), data)
}

// openSource opens an uploaded form file. A missing optional file yields nil.
func (h *Handler) openSource(c *gin.Context, field, encodingField, defaultEncoding string, required bool) (*catalog.Source, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s file: %v", domain.ErrInvalidRequest, field, err)
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}

	return &catalog.Source{
		Name:     header.Filename,
		Reader:   file,
		Encoding: c.DefaultPostForm(encodingField, defaultEncoding),
	}, nil
}

func closeSource(src *catalog.Source) {
	if src == nil {
		return
	}
	if closer, ok := src.Reader.(io.Closer); ok {
		_ = closer.Close()
	}
}

func sendCSV(c *gin.Context, fileName string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	c.Data(http.StatusOK, "text/csv", data)
}

// respondError maps domain errors to status codes
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrParse),
		errors.Is(err, domain.ErrEncoding),
		errors.Is(err, domain.ErrType),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrDivisionByZero),
		errors.Is(err, domain.ErrUnknownPlatform):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSearchUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
