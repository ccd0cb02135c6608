package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"github.com/CoffeeTonya/priceCheck/config"
	httpDelivery "github.com/CoffeeTonya/priceCheck/internal/delivery/http"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/export"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/rakuten"
	"github.com/CoffeeTonya/priceCheck/internal/infrastructure/store"
	"github.com/CoffeeTonya/priceCheck/internal/logging"
	"github.com/CoffeeTonya/priceCheck/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("Starting priceCheck server v1.0.0")

	// Initialize infrastructure dependencies
	runStore := store.NewMemoryStore(cfg.Store.CleanupInterval)
	defer runStore.Stop()

	rakutenClient := rakuten.NewClient(cfg.Rakuten.ApplicationID, cfg.Rakuten.BaseURL)
	rakutenClient.SetTimeout(cfg.Rakuten.Timeout)
	rakutenClient.SetRateLimit(cfg.Rakuten.RequestsPerSecond, cfg.Rakuten.Burst)
	if cfg.Server.Environment == "development" || cfg.Pipeline.Debug {
		rakutenClient.SetDebug(true)
		log.Debug().Msg("Rakuten client debug mode enabled")
	}

	// Initialize usecase layer
	mode, err := cfg.Pipeline.Mode()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid match mode")
	}
	builder, err := usecase.NewQueryBuilder(usecase.Profile{
		ExcludeDefault:     cfg.Pipeline.ExcludeDefault,
		MatchMode:          mode,
		PriceBoundsEnabled: cfg.Pipeline.PriceBounds,
		ResultLimitMax:     cfg.Pipeline.ResultLimitMax,
	}, cfg.Pipeline.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid search profile")
	}

	rules := usecase.TableRules{
		PartnerShop:    cfg.Pipeline.PartnerShop,
		LegacyFormulas: cfg.Export.LegacyFormulas,
	}
	searchService := usecase.NewSearchService(rakutenClient, builder, runStore, usecase.SearchConfig{
		Rules:              rules,
		RunTTL:             cfg.Store.TTL,
		EnableDebugLogging: cfg.Pipeline.Debug,
	})
	reconcileService := usecase.NewReconcileService(rakutenClient, builder, runStore, usecase.ReconcileConfig{
		Concurrency:        cfg.Pipeline.Concurrency,
		Rules:              rules,
		RunTTL:             cfg.Store.TTL,
		EnableDebugLogging: cfg.Pipeline.Debug,
	})

	exporter := export.NewExporter(export.Encodings{
		Rakuten: cfg.Export.RakutenEncoding,
		Yahoo:   cfg.Export.YahooEncoding,
		Inhouse: cfg.Export.InhouseEncoding,
		Result:  cfg.Export.ResultEncoding,
	}, cfg.Export.Location())

	log.Info().
		Int("concurrency", cfg.Pipeline.Concurrency).
		Bool("price_bounds", cfg.Pipeline.PriceBounds).
		Float64("rakuten_rps", cfg.Rakuten.RequestsPerSecond).
		Dur("run_ttl", cfg.Store.TTL).
		Msg("Pipeline configured")

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(searchService, reconcileService, exporter, httpDelivery.UploadDefaults{
		MasterEncoding: cfg.Catalog.MasterEncoding,
		GoodsEncoding:  cfg.Catalog.GoodsEncoding,
		ResultEncoding: cfg.Export.ResultEncoding,
	})

	router := httpDelivery.SetupRouter(cfg, handler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
