package fetcher

import (
	"context"
	"fmt"
	"strings"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/scraper"
)

// Strategy fetches one feed page. Two implementations exist: BrowserSession
// (automated browser with a human-in-the-loop challenge gate) and DirectHTTP
// (plain GET with embedded-JSON extraction). The orchestrator never knows
// which one it drives.
type Strategy interface {
	FetchPage(ctx context.Context, pageNum int) (*scraper.FeedPayload, error)
	Name() string
	Close() error
}

// New picks the strategy for this run: the browser session when rod is
// enabled, otherwise direct HTTP. The choice is made once per run.
func New(cfg *config.Config, extractor *scraper.Extractor, logger *observability.Logger) (Strategy, error) {
	if cfg.Rod.Enabled {
		session, err := NewBrowserSession(cfg, extractor, logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
	return NewDirectHTTP(cfg, extractor, logger), nil
}

// PageURL builds the paginated listing URL for a page number.
func PageURL(listingURL string, pageNum int) string {
	sep := "?"
	if strings.Contains(listingURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", listingURL, sep, pageNum)
}
