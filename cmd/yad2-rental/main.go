package main

import (
	"errors"
	"log"
	"os"

	"yad2-rental-scraper/internal/app"
	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/fetcher"
	"yad2-rental-scraper/internal/geocode"
	"yad2-rental-scraper/internal/normalize"
	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/scraper"
	"yad2-rental-scraper/internal/storage"
	"yad2-rental-scraper/internal/storage/mssql"
	"yad2-rental-scraper/internal/storage/postgres"
)

func main() {
	os.Exit(run())
}

// run wires and executes one acquisition run. Deferred closes release the
// browser and the database connection on every exit path, including aborts.
func run() int {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	logger := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel)

	repo, err := newRepository(cfg, logger)
	if err != nil {
		logger.Error("Failed to init storage", "driver", cfg.Storage.Driver, "error", err.Error())
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err.Error())
		}
	}()

	extractor := scraper.NewExtractor(cfg, logger)

	strategy, err := fetcher.New(cfg, extractor, logger)
	if err != nil {
		logger.Error("Failed to init fetch strategy", "error", err.Error())
		return 1
	}
	defer func() {
		if err := strategy.Close(); err != nil {
			logger.Error("Failed to close fetch strategy", "error", err.Error())
		}
	}()

	var enricher *geocode.Enricher
	if cfg.Geocode.Enabled {
		enricher = geocode.NewEnricher(geocode.New(cfg, logger), cfg.Geocode.LocalitySuffix, logger)
	}

	ctx, cancel := app.GracefulShutdown(logger)
	defer cancel()

	orchestrator := app.NewOrchestrator(cfg, logger, strategy, normalize.NewNormalizer(cfg), enricher, repo)

	stats, err := orchestrator.Run(ctx)
	if err != nil {
		logger.Error("Run aborted",
			"error", err.Error(),
			"captcha_timeout", errors.Is(err, fetcher.ErrCaptchaTimeout),
			"pages_fetched", stats.PagesFetched,
		)
		return 1
	}

	if aggregate, err := repo.Stats(ctx); err == nil {
		logger.Info("Stored dataset",
			"total", aggregate.Total,
			"active", aggregate.Active,
			"deleted", aggregate.Deleted,
			"with_coordinates", aggregate.WithCoordinates,
			"avg_price", aggregate.AvgPrice,
		)
	}

	return 0
}

func newRepository(cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return postgres.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	default:
		return mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	}
}
