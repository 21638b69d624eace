package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an operation targets a listing id that does
// not exist (or is already soft-deleted).
var ErrNotFound = errors.New("listing not found")

// Listing is the canonical rental record produced by the pipeline. Immutable
// after normalization except for a single optional coordinate enrichment.
type Listing struct {
	ID           string // "<source>_<token>"
	Source       string
	Token        string
	Address      string
	Price        int
	Rooms        float64
	Floor        *int
	SquareMeters *int
	Neighborhood string
	Description  string
	ImageURL     string
	SourceURL    string
	Lat          *float64
	Lng          *float64
	ScrapedAt    time.Time
}

// HasCoordinates reports whether both coordinates are set.
func (l *Listing) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// Filters narrows Query results. Zero values mean "no constraint".
type Filters struct {
	MinPrice       int
	MaxPrice       int
	MinRooms       float64
	Neighborhood   string
	IncludeDeleted bool
}

// AggregateStats summarizes the stored dataset.
type AggregateStats struct {
	Total           int
	Active          int
	Deleted         int
	WithCoordinates int
	AvgPrice        float64
}

// Repository is the persistence collaborator. Upserts replace by listing id.
type Repository interface {
	Upsert(ctx context.Context, listing *Listing) error

	// UpsertMany stores a batch and returns the number of rows written.
	UpsertMany(ctx context.Context, listings []*Listing) (int, error)

	Query(ctx context.Context, filters Filters) ([]*Listing, error)

	// SoftDelete marks a listing removed without dropping the row.
	SoftDelete(ctx context.Context, id string) error

	Stats(ctx context.Context) (*AggregateStats, error)

	Close() error
}
