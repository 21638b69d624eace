package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Name:       "yad2",
			ListingURL: "https://example.com/rent",
			ItemURL:    "https://example.com/item",
		},
		HTTP: HttpConfig{
			UserAgent:        "agent",
			ConnectTimeoutMS: 5000,
			TotalTimeoutMS:   20000,
			MaxRetries:       3,
			BackoffMinMS:     500,
			BackoffMaxMS:     10000,
			JitterPct:        20,
		},
		Feed: FeedConfig{
			HydrationElementID: "__NEXT_DATA__",
			QueryKeyMarker:     "realestate-feed",
			Buckets:            []string{"private"},
		},
		Pagination: PaginationConfig{MaxPages: 10, PageDelayMS: 3000},
		Captcha:    CaptchaConfig{PollIntervalS: 2, TimeoutS: 120},
		Geocode: GeocodeConfig{
			Enabled:        true,
			LocalitySuffix: "Israel",
			KeyedDelayMS:   100,
			FreeDelayMS:    1100,
		},
		Storage: StorageConfig{
			Driver:           "postgres",
			DSN:              "postgres://localhost/rentals",
			CommandTimeoutMS: 10000,
		},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing source name", func(c *Config) { c.Source.Name = "" }},
		{"missing listing url", func(c *Config) { c.Source.ListingURL = "" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"missing dsn", func(c *Config) { c.Storage.DSN = "" }},
		{"no buckets", func(c *Config) { c.Feed.Buckets = nil }},
		{"zero max pages", func(c *Config) { c.Pagination.MaxPages = 0 }},
		{"backoff inverted", func(c *Config) { c.HTTP.BackoffMinMS = 20000 }},
		{"free geocode delay too small", func(c *Config) { c.Geocode.FreeDelayMS = 500 }},
		{"captcha timeout zero", func(c *Config) { c.Captcha.TimeoutS = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := validConfig()

	if cfg.GetPageDelay() != 3*time.Second {
		t.Errorf("unexpected page delay: %v", cfg.GetPageDelay())
	}
	if cfg.GetCaptchaTimeout() != 120*time.Second {
		t.Errorf("unexpected captcha timeout: %v", cfg.GetCaptchaTimeout())
	}
	if cfg.GetFreeGeocodeDelay() != 1100*time.Millisecond {
		t.Errorf("unexpected free geocode delay: %v", cfg.GetFreeGeocodeDelay())
	}
}
