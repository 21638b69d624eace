package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"yad2-rental-scraper/internal/config"
	"yad2-rental-scraper/internal/observability"
)

const (
	freeEndpoint  = "https://nominatim.openstreetmap.org/search"
	keyedEndpoint = "https://geocode.maps.co/search"
)

// searchHit is one entry of the provider response. Both providers speak the
// same Nominatim result shape, with coordinates as strings.
type searchHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type httpClient struct {
	client    *http.Client
	endpoint  string
	userAgent string
	apiKey    string
	minDelay  time.Duration
	name      string
	logger    *observability.Logger
}

// NewKeyedClient talks to the keyed geocoding service. The key buys a much
// higher request rate than the free service allows.
func NewKeyedClient(cfg *config.Config, logger *observability.Logger) Geocoder {
	return &httpClient{
		client:    &http.Client{Timeout: 15 * time.Second},
		endpoint:  keyedEndpoint,
		userAgent: cfg.Geocode.UserAgent,
		apiKey:    cfg.Geocode.APIKey,
		minDelay:  cfg.GetKeyedGeocodeDelay(),
		name:      "maps-co",
		logger:    logger,
	}
}

// NewFreeClient talks to the public Nominatim instance. Its usage policy
// caps clients at one request per second; the configured delay must honor
// that.
func NewFreeClient(cfg *config.Config, logger *observability.Logger) Geocoder {
	return &httpClient{
		client:    &http.Client{Timeout: 15 * time.Second},
		endpoint:  freeEndpoint,
		userAgent: cfg.Geocode.UserAgent,
		minDelay:  cfg.GetFreeGeocodeDelay(),
		name:      "nominatim",
		logger:    logger,
	}
}

func (c *httpClient) Name() string            { return c.name }
func (c *httpClient) MinDelay() time.Duration { return c.minDelay }

func (c *httpClient) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var hits []searchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lat %q: %w", hits[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse lon %q: %w", hits[0].Lon, err)
	}

	return &Result{Lat: lat, Lng: lng}, nil
}
