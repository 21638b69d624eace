package geocode

import (
	"context"

	"yad2-rental-scraper/internal/fetcher"
	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/storage"
)

// EnrichStats summarizes one enrichment pass.
type EnrichStats struct {
	Skipped  int // already had coordinates
	Resolved int
	NoMatch  int
	Failed   int
}

// Enricher fills in coordinates for listings that lack them. Listings that
// already carry source-provided coordinates are never touched: a provider
// guess does not beat the source's own data. Individual lookup failures only
// lose the one coordinate pair.
type Enricher struct {
	geocoder       Geocoder
	pacer          *fetcher.Pacer
	localitySuffix string
	logger         *observability.Logger
}

func NewEnricher(geocoder Geocoder, localitySuffix string, logger *observability.Logger) *Enricher {
	return &Enricher{
		geocoder:       geocoder,
		pacer:          fetcher.NewPacer(geocoder.MinDelay(), 0),
		localitySuffix: localitySuffix,
		logger:         logger,
	}
}

// Enrich geocodes the listings sequentially, honoring the provider's
// inter-call delay. It mutates the listings in place.
func (e *Enricher) Enrich(ctx context.Context, listings []*storage.Listing) EnrichStats {
	var stats EnrichStats

	for _, listing := range listings {
		if listing.HasCoordinates() {
			stats.Skipped++
			continue
		}

		if err := e.pacer.Wait(ctx); err != nil {
			e.logger.Warn("geocoding pass interrupted", "error", err.Error())
			break
		}

		query := listing.Address
		if e.localitySuffix != "" {
			query += ", " + e.localitySuffix
		}

		result, err := e.geocoder.Geocode(ctx, query)
		if err != nil {
			stats.Failed++
			continue
		}
		if result == nil {
			stats.NoMatch++
			continue
		}

		lat, lng := result.Lat, result.Lng
		listing.Lat = &lat
		listing.Lng = &lng
		stats.Resolved++
	}

	e.logger.Info("geocoding pass finished",
		"provider", e.geocoder.Name(),
		"resolved", stats.Resolved,
		"no_match", stats.NoMatch,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)

	return stats
}
