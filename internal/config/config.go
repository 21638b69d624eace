package config

import (
	"fmt"
	"time"
)

type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Rod           RodConfig           `yaml:"rod"`
	HTTP          HttpConfig          `yaml:"http"`
	Feed          FeedConfig          `yaml:"feed"`
	Pagination    PaginationConfig    `yaml:"pagination"`
	Captcha       CaptchaConfig       `yaml:"captcha"`
	Geocode       GeocodeConfig       `yaml:"geocode"`
	Storage       StorageConfig       `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type SourceConfig struct {
	Name       string `yaml:"name"`
	ListingURL string `yaml:"listing_url"`
	ItemURL    string `yaml:"item_url"`
}

type RodConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ChromePath       string `yaml:"chrome_path"`
	UserDataDir      string `yaml:"user_data_dir"`
	Headless         bool   `yaml:"headless"`
	PageTimeoutS     int    `yaml:"page_timeout_s"`
	HydrationWaitS   int    `yaml:"hydration_wait_s"`
	HydrationPollMS  int    `yaml:"hydration_poll_ms"`
}

type HttpConfig struct {
	UserAgent        string `yaml:"user_agent"`
	AcceptLanguage   string `yaml:"accept_language"`
	ConnectTimeoutMS int    `yaml:"connect_timeout_ms"`
	TotalTimeoutMS   int    `yaml:"total_timeout_ms"`
	MaxRetries       int    `yaml:"max_retries"`
	BackoffMinMS     int    `yaml:"backoff_min_ms"`
	BackoffMaxMS     int    `yaml:"backoff_max_ms"`
	JitterPct        int    `yaml:"jitter_pct"`
}

type FeedConfig struct {
	HydrationElementID string   `yaml:"hydration_element_id"`
	QueryKeyMarker     string   `yaml:"query_key_marker"`
	Buckets            []string `yaml:"buckets"`
}

type PaginationConfig struct {
	MaxPages           int `yaml:"max_pages"`
	PageDelayMS        int `yaml:"page_delay_ms"`
	PageDelayJitterPct int `yaml:"page_delay_jitter_pct"`
}

type CaptchaConfig struct {
	PollIntervalS int      `yaml:"poll_interval_s"`
	TimeoutS      int      `yaml:"timeout_s"`
	SettleDelayS  int      `yaml:"settle_delay_s"`
	Phrases       []string `yaml:"phrases"`
	Selectors     []string `yaml:"selectors"`
}

type GeocodeConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIKey         string `yaml:"-"` // from GEOCODER_API_KEY, never from the file
	LocalitySuffix string `yaml:"locality_suffix"`
	UserAgent      string `yaml:"user_agent"`
	KeyedDelayMS   int    `yaml:"keyed_delay_ms"`
	FreeDelayMS    int    `yaml:"free_delay_ms"`
}

type StorageConfig struct {
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	CommandTimeoutMS int    `yaml:"command_timeout_ms"`
}

type ObservabilityConfig struct {
	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`
}

// Validation
func (c *Config) Validate() error {
	if c.Source.Name == "" {
		return fmt.Errorf("source.name is required")
	}
	if c.Source.ListingURL == "" {
		return fmt.Errorf("source.listing_url is required")
	}
	if c.Source.ItemURL == "" {
		return fmt.Errorf("source.item_url is required")
	}
	if c.HTTP.UserAgent == "" {
		return fmt.Errorf("http.user_agent is required")
	}
	if c.HTTP.ConnectTimeoutMS <= 0 {
		return fmt.Errorf("http.connect_timeout_ms must be > 0")
	}
	if c.HTTP.TotalTimeoutMS <= 0 {
		return fmt.Errorf("http.total_timeout_ms must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffMinMS <= 0 || c.HTTP.BackoffMaxMS <= 0 {
		return fmt.Errorf("http.backoff_min_ms and http.backoff_max_ms must be > 0")
	}
	if c.HTTP.BackoffMinMS > c.HTTP.BackoffMaxMS {
		return fmt.Errorf("http.backoff_min_ms must be <= http.backoff_max_ms")
	}
	if c.HTTP.JitterPct < 0 || c.HTTP.JitterPct > 100 {
		return fmt.Errorf("http.jitter_pct must be between 0 and 100")
	}
	if c.Feed.HydrationElementID == "" {
		return fmt.Errorf("feed.hydration_element_id is required")
	}
	if c.Feed.QueryKeyMarker == "" {
		return fmt.Errorf("feed.query_key_marker is required")
	}
	if len(c.Feed.Buckets) == 0 {
		return fmt.Errorf("feed.buckets must list at least one bucket")
	}
	if c.Pagination.MaxPages <= 0 {
		return fmt.Errorf("pagination.max_pages must be > 0")
	}
	if c.Pagination.PageDelayMS < 0 {
		return fmt.Errorf("pagination.page_delay_ms must be >= 0")
	}
	if c.Pagination.PageDelayJitterPct < 0 || c.Pagination.PageDelayJitterPct > 100 {
		return fmt.Errorf("pagination.page_delay_jitter_pct must be between 0 and 100")
	}
	if c.Captcha.PollIntervalS <= 0 {
		return fmt.Errorf("captcha.poll_interval_s must be > 0")
	}
	if c.Captcha.TimeoutS <= 0 {
		return fmt.Errorf("captcha.timeout_s must be > 0")
	}
	if c.Captcha.SettleDelayS < 0 {
		return fmt.Errorf("captcha.settle_delay_s must be >= 0")
	}
	if c.Geocode.Enabled {
		if c.Geocode.LocalitySuffix == "" {
			return fmt.Errorf("geocode.locality_suffix is required when geocode.enabled is true")
		}
		if c.Geocode.FreeDelayMS < 1000 {
			return fmt.Errorf("geocode.free_delay_ms must be >= 1000 (provider usage policy)")
		}
		if c.Geocode.KeyedDelayMS <= 0 {
			return fmt.Errorf("geocode.keyed_delay_ms must be > 0")
		}
	}
	if c.Storage.Driver != "mssql" && c.Storage.Driver != "postgres" {
		return fmt.Errorf("storage.driver must be 'mssql' or 'postgres'")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Storage.CommandTimeoutMS <= 0 {
		return fmt.Errorf("storage.command_timeout_ms must be > 0")
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("observability.log_level is required")
	}
	if c.Rod.Enabled {
		if c.Rod.PageTimeoutS <= 0 {
			return fmt.Errorf("rod.page_timeout_s must be > 0")
		}
		if c.Rod.HydrationWaitS <= 0 {
			return fmt.Errorf("rod.hydration_wait_s must be > 0")
		}
		if c.Rod.HydrationPollMS <= 0 {
			return fmt.Errorf("rod.hydration_poll_ms must be > 0")
		}
	}
	return nil
}

// Getters
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.HTTP.ConnectTimeoutMS) * time.Millisecond
}

func (c *Config) GetTotalTimeout() time.Duration {
	return time.Duration(c.HTTP.TotalTimeoutMS) * time.Millisecond
}

func (c *Config) GetBackoffMin() time.Duration {
	return time.Duration(c.HTTP.BackoffMinMS) * time.Millisecond
}

func (c *Config) GetBackoffMax() time.Duration {
	return time.Duration(c.HTTP.BackoffMaxMS) * time.Millisecond
}

func (c *Config) GetPageDelay() time.Duration {
	return time.Duration(c.Pagination.PageDelayMS) * time.Millisecond
}

func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.Storage.CommandTimeoutMS) * time.Millisecond
}

func (c *Config) GetCaptchaPollInterval() time.Duration {
	return time.Duration(c.Captcha.PollIntervalS) * time.Second
}

func (c *Config) GetCaptchaTimeout() time.Duration {
	return time.Duration(c.Captcha.TimeoutS) * time.Second
}

func (c *Config) GetCaptchaSettleDelay() time.Duration {
	return time.Duration(c.Captcha.SettleDelayS) * time.Second
}

func (c *Config) GetRodPageTimeout() time.Duration {
	return time.Duration(c.Rod.PageTimeoutS) * time.Second
}

func (c *Config) GetHydrationWait() time.Duration {
	return time.Duration(c.Rod.HydrationWaitS) * time.Second
}

func (c *Config) GetHydrationPoll() time.Duration {
	return time.Duration(c.Rod.HydrationPollMS) * time.Millisecond
}

func (c *Config) GetKeyedGeocodeDelay() time.Duration {
	return time.Duration(c.Geocode.KeyedDelayMS) * time.Millisecond
}

func (c *Config) GetFreeGeocodeDelay() time.Duration {
	return time.Duration(c.Geocode.FreeDelayMS) * time.Millisecond
}
