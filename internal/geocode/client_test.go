package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"yad2-rental-scraper/internal/observability"
)

func testClient(endpoint, apiKey string) *httpClient {
	return &httpClient{
		client:    &http.Client{Timeout: time.Second},
		endpoint:  endpoint,
		userAgent: "test-agent",
		apiKey:    apiKey,
		minDelay:  time.Millisecond,
		name:      "test",
		logger:    observability.NewNop(),
	}
}

func TestGeocodeParsesFirstHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "Herzl 10, Tel Aviv" || q.Get("format") != "json" || q.Get("limit") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent not set")
		}
		fmt.Fprint(w, `[{"lat": "32.0628", "lon": "34.7722"}, {"lat": "0", "lon": "0"}]`)
	}))
	defer server.Close()

	result, err := testClient(server.URL, "").Geocode(context.Background(), "Herzl 10, Tel Aviv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.Lat != 32.0628 || result.Lng != 34.7722 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestGeocodeNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	result, err := testClient(server.URL, "").Geocode(context.Background(), "nowhere")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for empty response, got %+v", result)
	}
}

func TestGeocodeSendsAPIKeyWhenConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "secret" {
			t.Errorf("api key not forwarded")
		}
		fmt.Fprint(w, `[{"lat": "1", "lon": "2"}]`)
	}))
	defer server.Close()

	if _, err := testClient(server.URL, "secret").Geocode(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeocodeStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := testClient(server.URL, "").Geocode(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on non-200 status")
	}
}
