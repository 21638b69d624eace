package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/scraper"
)

// DirectHTTP fetches listing pages with a single GET carrying browser-like
// headers and extracts the feed from the raw markup, without executing any
// embedded scripts. Faster than the browser session but blind to challenges:
// a challenge page simply has no hydration payload and is reported as a
// page-level extraction failure.
type DirectHTTP struct {
	client    *http.Client
	cfg       *config.Config
	extractor *scraper.Extractor
	logger    *observability.Logger
}

func NewDirectHTTP(cfg *config.Config, extractor *scraper.Extractor, logger *observability.Logger) *DirectHTTP {
	client := &http.Client{
		Timeout: cfg.GetTotalTimeout(),
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &DirectHTTP{
		client:    client,
		cfg:       cfg,
		extractor: extractor,
		logger:    logger,
	}
}

func (d *DirectHTTP) Name() string { return "direct-http" }

func (d *DirectHTTP) FetchPage(ctx context.Context, pageNum int) (*scraper.FeedPayload, error) {
	pageURL := PageURL(d.cfg.Source.ListingURL, pageNum)

	body, err := d.fetchWithRetries(ctx, pageURL)
	if err != nil {
		return nil, &PageError{Page: pageNum, Err: err}
	}

	payload := d.extractor.Extract(string(body))
	if payload == nil {
		return nil, &PageError{Page: pageNum, Err: ErrNoPayload}
	}

	return payload, nil
}

// Close is a no-op: the HTTP client holds no scoped resources.
func (d *DirectHTTP) Close() error { return nil }

func (d *DirectHTTP) fetchWithRetries(ctx context.Context, pageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= d.cfg.HTTP.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := d.calculateBackoff(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, status, err := d.fetchOnce(ctx, pageURL)
		if err != nil {
			lastErr = err
			continue
		}

		// Retry on 5xx or 429
		if status >= 500 || status == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("server error: %d", status)
			continue
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("unexpected status: %d", status)
		}

		return body, nil
	}

	return nil, fmt.Errorf("fetch failed after %d retries: %w", d.cfg.HTTP.MaxRetries, lastErr)
}

func (d *DirectHTTP) fetchOnce(ctx context.Context, pageURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("User-Agent", d.cfg.HTTP.UserAgent)
	req.Header.Set("Accept-Language", d.cfg.HTTP.AcceptLanguage)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Connection", "keep-alive")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.logger.Debug("failed to close response body", "error", err.Error())
		}
	}()

	reader := resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, 0, err
		}
		defer func() { _ = gzipReader.Close() }()
		reader = gzipReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, err
	}

	d.logger.Debug("page fetched",
		"url", pageURL,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	return body, resp.StatusCode, nil
}

func (d *DirectHTTP) calculateBackoff(attempt int) time.Duration {
	minMS := d.cfg.HTTP.BackoffMinMS
	maxMS := d.cfg.HTTP.BackoffMaxMS
	jitterPct := d.cfg.HTTP.JitterPct

	// Exponential backoff: min * 2^(attempt-1), capped at max
	exponential := minMS * (1 << uint(attempt-1))
	if exponential > maxMS {
		exponential = maxMS
	}

	// Apply jitter: ±jitterPct%
	jitterRange := float64(exponential) * float64(jitterPct) / 100
	jitter := (rand.Float64() - 0.5) * 2 * jitterRange
	finalMS := math.Max(float64(exponential)+jitter, float64(minMS))

	return time.Duration(finalMS) * time.Millisecond
}
