// Command pricecheck runs one catalog reconciliation and writes the result
// table plus the three storefront upload files into a directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"github.com/CoffeeTonya/priceCheck/config"
	"github.com/CoffeeTonya/priceCheck/internal/domain"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/catalog"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/export"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/rakuten"
	"github.com/CoffeeTonya/priceCheck/internal/logging"
	"github.com/CoffeeTonya/priceCheck/internal/usecase"
)

type options struct {
	catalogPath     string
	goodsPath       string
	catalogEncoding string
	goodsEncoding   string
	exclude         string
	outDir          string
}

func main() {
	var opts options
	flag.StringVar(&opts.catalogPath, "catalog", "", "product master CSV (required)")
	flag.StringVar(&opts.goodsPath, "goods", "", "goods export CSV to inner-join on product code")
	flag.StringVar(&opts.catalogEncoding, "catalog-encoding", "", "product master encoding (default from config)")
	flag.StringVar(&opts.goodsEncoding, "goods-encoding", "", "goods export encoding (default from config)")
	flag.StringVar(&opts.exclude, "exclude", "", "extra exclusion keywords applied to every row")
	flag.StringVar(&opts.outDir, "out", ".", "output directory")
	flag.Parse()

	if strings.TrimSpace(opts.catalogPath) == "" {
		fmt.Fprintln(os.Stderr, "missing required -catalog flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	client := rakuten.NewClient(cfg.Rakuten.ApplicationID, cfg.Rakuten.BaseURL)
	client.SetTimeout(cfg.Rakuten.Timeout)
	client.SetRateLimit(cfg.Rakuten.RequestsPerSecond, cfg.Rakuten.Burst)
	client.SetDebug(cfg.Pipeline.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, cfg, client, opts)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
	fmt.Printf("matched %d of %d rows (%d unmatched), files written to %s\n",
		summary.Matched, summary.Total, summary.Unmatched, opts.outDir)
}

// run loads the catalog, reconciles it and writes every output file.
// Nothing is written unless all files render.
func run(ctx context.Context, cfg *config.Config, searcher domain.MarketSearcher, opts options) (domain.RunSummary, error) {
	items, err := loadCatalog(ctx, cfg, opts)
	if err != nil {
		return domain.RunSummary{}, err
	}
	if opts.exclude != "" {
		for i := range items {
			items[i].ExcludeKeywords = append(items[i].ExcludeKeywords, opts.exclude)
		}
	}

	mode, err := cfg.Pipeline.Mode()
	if err != nil {
		return domain.RunSummary{}, err
	}
	builder, err := usecase.NewQueryBuilder(usecase.Profile{
		ExcludeDefault:     cfg.Pipeline.ExcludeDefault,
		MatchMode:          mode,
		PriceBoundsEnabled: cfg.Pipeline.PriceBounds,
		ResultLimitMax:     cfg.Pipeline.ResultLimitMax,
	}, cfg.Pipeline.Debug)
	if err != nil {
		return domain.RunSummary{}, err
	}

	reconciler := usecase.NewReconcileService(searcher, builder, nil, usecase.ReconcileConfig{
		Concurrency: cfg.Pipeline.Concurrency,
		Rules: usecase.TableRules{
			PartnerShop:    cfg.Pipeline.PartnerShop,
			LegacyFormulas: cfg.Export.LegacyFormulas,
		},
		EnableDebugLogging: cfg.Pipeline.Debug,
	})
	result, err := reconciler.Run(ctx, items)
	if err != nil {
		return domain.RunSummary{}, err
	}

	for _, outcome := range result.Outcomes {
		if !outcome.Matched {
			log.Warn().Str("product_code", outcome.ProductCode).Str("reason", outcome.Reason).Msg("row unmatched")
		}
	}

	exporter := export.NewExporter(export.Encodings{
		Rakuten: cfg.Export.RakutenEncoding,
		Yahoo:   cfg.Export.YahooEncoding,
		Inhouse: cfg.Export.InhouseEncoding,
		Result:  cfg.Export.ResultEncoding,
	}, cfg.Export.Location())

	files := make(map[string][]byte, len(export.Platforms)+1)
	if files[export.ResultFileName], err = exporter.WriteResult(result.Table); err != nil {
		return domain.RunSummary{}, err
	}
	updates := export.FromRows(result.Rows)
	for _, platform := range export.Platforms {
		data, err := exporter.Render(platform, updates)
		if err != nil {
			return domain.RunSummary{}, err
		}
		files[platform.FileName()] = data
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return domain.RunSummary{}, fmt.Errorf("create output directory: %w", err)
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(opts.outDir, name), data, 0o644); err != nil {
			return domain.RunSummary{}, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return result.Summary, nil
}

func loadCatalog(ctx context.Context, cfg *config.Config, opts options) ([]domain.CatalogItem, error) {
	masterFile, err := os.Open(opts.catalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer masterFile.Close()

	master := catalog.Source{
		Name:     filepath.Base(opts.catalogPath),
		Reader:   masterFile,
		Encoding: firstNonEmpty(opts.catalogEncoding, cfg.Catalog.MasterEncoding),
	}

	var goods *catalog.Source
	if opts.goodsPath != "" {
		goodsFile, err := os.Open(opts.goodsPath)
		if err != nil {
			return nil, fmt.Errorf("open goods: %w", err)
		}
		defer goodsFile.Close()
		goods = &catalog.Source{
			Name:     filepath.Base(opts.goodsPath),
			Reader:   goodsFile,
			Encoding: firstNonEmpty(opts.goodsEncoding, cfg.Catalog.GoodsEncoding),
		}
	}

	return catalog.Load(ctx, master, goods)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
