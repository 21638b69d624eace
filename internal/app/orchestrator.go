package app

import (
	"context"
	"fmt"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/dedup"
	"yad2-rental-scraper/internal/fetcher"
	"yad2-rental-scraper/internal/geocode"
	"yad2-rental-scraper/internal/normalize"
	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/storage"
)

// Orchestrator drives one full acquisition run: page loop, normalization,
// dedup, optional geocoding, persistence. Strictly sequential; no stage
// overlaps another.
type Orchestrator struct {
	cfg        *config.Config
	logger     *observability.Logger
	strategy   fetcher.Strategy
	normalizer *normalize.Normalizer
	enricher   *geocode.Enricher
	repo       storage.Repository
}

// NewOrchestrator wires the run. enricher may be nil when geocoding is
// disabled.
func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	strategy fetcher.Strategy,
	normalizer *normalize.Normalizer,
	enricher *geocode.Enricher,
	repo storage.Repository,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		strategy:   strategy,
		normalizer: normalizer,
		enricher:   enricher,
		repo:       repo,
	}
}

type RunStats struct {
	PagesFetched      int
	PagesFailed       int
	TotalFound        int
	DroppedInvalid    int
	DroppedDuplicates int
	WithCoordinates   int
	Saved             int
	StoppedReason     string
}

// Run walks the listing pages in order. A failing page is logged and
// skipped; only a captcha timeout, a browser loss or a cancelled context
// aborts the run. Collected listings are geocoded and persisted in one
// batch at the end, so an aborted run persists nothing.
func (o *Orchestrator) Run(ctx context.Context) (*RunStats, error) {
	maxPages := o.cfg.Pagination.MaxPages
	o.logger.Info("Starting acquisition run",
		"source", o.cfg.Source.Name,
		"strategy", o.strategy.Name(),
		"max_pages", maxPages,
		"buckets", o.cfg.Feed.Buckets,
	)

	stats := &RunStats{}
	seen := dedup.NewTokenSet()
	pacer := fetcher.NewPacer(o.cfg.GetPageDelay(), o.cfg.Pagination.PageDelayJitterPct)

	var collected []*storage.Listing
	reportedTotal := 0 // page count the source reports about itself

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if reportedTotal > 0 && pageNum > reportedTotal {
			stats.StoppedReason = fmt.Sprintf("source reports %d pages", reportedTotal)
			break
		}

		if err := pacer.Wait(ctx); err != nil {
			stats.StoppedReason = "cancelled"
			return stats, err
		}

		payload, err := o.strategy.FetchPage(ctx, pageNum)
		if err != nil {
			if fetcher.IsFatal(err) {
				stats.StoppedReason = fmt.Sprintf("fatal error at page %d", pageNum)
				return stats, err
			}
			if ctx.Err() != nil {
				stats.StoppedReason = "cancelled"
				return stats, ctx.Err()
			}

			stats.PagesFailed++
			o.logger.Warn("Page failed, continuing",
				"page", pageNum,
				"error", err.Error(),
			)
			continue
		}
		stats.PagesFetched++

		if p := payload.Pagination; p != nil && p.TotalPages > 0 && reportedTotal == 0 {
			reportedTotal = p.TotalPages
			o.logger.Info("Source pagination discovered",
				"total_listings", p.Total,
				"total_pages", p.TotalPages,
			)
		}

		newOnPage := 0
		for _, bucket := range o.cfg.Feed.Buckets {
			for _, item := range payload.Bucket(bucket) {
				listing, ok := o.normalizer.Normalize(&item)
				if !ok {
					stats.DroppedInvalid++
					continue
				}
				if !seen.Add(listing.Token) {
					stats.DroppedDuplicates++
					continue
				}
				collected = append(collected, listing)
				newOnPage++
			}
		}

		o.logger.Info("Page processed",
			"page", pageNum,
			"new_listings", newOnPage,
			"collected_total", len(collected),
		)
	}

	if stats.StoppedReason == "" {
		stats.StoppedReason = fmt.Sprintf("reached max pages (%d)", maxPages)
	}
	stats.TotalFound = len(collected)

	if o.enricher != nil && len(collected) > 0 {
		o.enricher.Enrich(ctx, collected)
	}
	for _, listing := range collected {
		if listing.HasCoordinates() {
			stats.WithCoordinates++
		}
	}

	if len(collected) > 0 {
		saved, err := o.repo.UpsertMany(ctx, collected)
		if err != nil {
			return stats, fmt.Errorf("persist batch: %w", err)
		}
		stats.Saved = saved
	}

	o.logger.Info("Acquisition run completed",
		"pages_fetched", stats.PagesFetched,
		"pages_failed", stats.PagesFailed,
		"listings", stats.TotalFound,
		"with_coordinates", stats.WithCoordinates,
		"dropped_invalid", stats.DroppedInvalid,
		"dropped_duplicates", stats.DroppedDuplicates,
		"saved", stats.Saved,
		"reason", stats.StoppedReason,
	)

	return stats, nil
}
