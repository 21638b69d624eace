package geocode

import (
	"context"
	"errors"
	"testing"
	"time"

	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/storage"
)

type fakeGeocoder struct {
	results map[string]*Result
	err     error
	queries []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, address string) (*Result, error) {
	f.queries = append(f.queries, address)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[address], nil
}

func (f *fakeGeocoder) Name() string            { return "fake" }
func (f *fakeGeocoder) MinDelay() time.Duration { return time.Millisecond }

func floatPtr(v float64) *float64 { return &v }

func TestEnrichFillsMissingCoordinates(t *testing.T) {
	fake := &fakeGeocoder{results: map[string]*Result{
		"Herzl 10, Tel Aviv, Israel": {Lat: 32.06, Lng: 34.77},
	}}
	enricher := NewEnricher(fake, "Israel", observability.NewNop())

	listing := &storage.Listing{ID: "yad2_a", Address: "Herzl 10, Tel Aviv"}
	stats := enricher.Enrich(context.Background(), []*storage.Listing{listing})

	if stats.Resolved != 1 {
		t.Fatalf("expected 1 resolved, got %+v", stats)
	}
	if !listing.HasCoordinates() || *listing.Lat != 32.06 || *listing.Lng != 34.77 {
		t.Errorf("coordinates not applied: %+v", listing)
	}
	if len(fake.queries) != 1 || fake.queries[0] != "Herzl 10, Tel Aviv, Israel" {
		t.Errorf("locality suffix not appended: %v", fake.queries)
	}
}

func TestEnrichNeverOverwritesSourceCoordinates(t *testing.T) {
	fake := &fakeGeocoder{results: map[string]*Result{
		"Dizengoff 50, Tel Aviv, Israel": {Lat: 1, Lng: 1},
	}}
	enricher := NewEnricher(fake, "Israel", observability.NewNop())

	listing := &storage.Listing{
		ID:      "yad2_b",
		Address: "Dizengoff 50, Tel Aviv",
		Lat:     floatPtr(32.08),
		Lng:     floatPtr(34.78),
	}
	stats := enricher.Enrich(context.Background(), []*storage.Listing{listing})

	if stats.Skipped != 1 || stats.Resolved != 0 {
		t.Fatalf("expected the listing to be skipped, got %+v", stats)
	}
	if *listing.Lat != 32.08 || *listing.Lng != 34.78 {
		t.Errorf("source coordinates overwritten: %+v", listing)
	}
	if len(fake.queries) != 0 {
		t.Errorf("provider called for a listing that already had coordinates")
	}
}

func TestEnrichCountsFailuresAndMisses(t *testing.T) {
	fake := &fakeGeocoder{results: map[string]*Result{}}
	enricher := NewEnricher(fake, "", observability.NewNop())

	listings := []*storage.Listing{
		{ID: "yad2_c", Address: "Nowhere 1"},
		{ID: "yad2_d", Address: "Nowhere 2"},
	}
	stats := enricher.Enrich(context.Background(), listings)
	if stats.NoMatch != 2 {
		t.Errorf("expected 2 no-match, got %+v", stats)
	}

	fake.err = errors.New("provider down")
	stats = enricher.Enrich(context.Background(), listings)
	if stats.Failed != 2 {
		t.Errorf("expected 2 failed, got %+v", stats)
	}
	for _, l := range listings {
		if l.HasCoordinates() {
			t.Errorf("failed lookup must not set coordinates: %+v", l)
		}
	}
}
