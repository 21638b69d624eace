package geocode

import (
	"context"
	"time"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
)

// Result is a resolved coordinate pair.
type Result struct {
	Lat float64
	Lng float64
}

// Geocoder resolves a free-text address to coordinates. A nil Result with a
// nil error means the provider answered but found no match.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*Result, error)
	Name() string
	// MinDelay is the smallest allowed gap between consecutive calls to
	// this provider.
	MinDelay() time.Duration
}

// New picks the provider for this run: the keyed service when an API key is
// configured, otherwise the free service with its much stricter pacing.
func New(cfg *config.Config, logger *observability.Logger) Geocoder {
	if cfg.Geocode.APIKey != "" {
		return NewKeyedClient(cfg, logger)
	}
	return NewFreeClient(cfg, logger)
}
