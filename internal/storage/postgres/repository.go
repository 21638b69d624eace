package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/storage"
)

// Repository persists listings in PostgreSQL.
type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	r := &Repository{db: db, commandTimeout: commandTimeout, logger: logger}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("postgres repository ready")
	return r, nil
}

func (r *Repository) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.commandTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id            TEXT PRIMARY KEY,
			source        TEXT NOT NULL,
			token         TEXT NOT NULL,
			address       TEXT NOT NULL,
			price         INTEGER NOT NULL,
			rooms         REAL NOT NULL,
			floor         INTEGER,
			square_meters INTEGER,
			neighborhood  TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			image_url     TEXT NOT NULL DEFAULT '',
			source_url    TEXT NOT NULL DEFAULT '',
			lat           DOUBLE PRECISION,
			lng           DOUBLE PRECISION,
			scraped_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted_at    TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_listings_neighborhood
		ON listings (neighborhood) WHERE deleted_at IS NULL`)
	return err
}

func (r *Repository) Upsert(ctx context.Context, listing *storage.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listings (
			id, source, token, address, price, rooms, floor, square_meters,
			neighborhood, description, image_url, source_url, lat, lng,
			scraped_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), NULL)
		ON CONFLICT (id) DO UPDATE SET
			address       = EXCLUDED.address,
			price         = EXCLUDED.price,
			rooms         = EXCLUDED.rooms,
			floor         = EXCLUDED.floor,
			square_meters = EXCLUDED.square_meters,
			neighborhood  = EXCLUDED.neighborhood,
			description   = EXCLUDED.description,
			image_url     = EXCLUDED.image_url,
			source_url    = EXCLUDED.source_url,
			lat           = COALESCE(EXCLUDED.lat, listings.lat),
			lng           = COALESCE(EXCLUDED.lng, listings.lng),
			scraped_at    = EXCLUDED.scraped_at,
			updated_at    = now(),
			deleted_at    = NULL`,
		listing.ID, listing.Source, listing.Token, listing.Address,
		listing.Price, listing.Rooms, listing.Floor, listing.SquareMeters,
		listing.Neighborhood, listing.Description, listing.ImageURL,
		listing.SourceURL, listing.Lat, listing.Lng, listing.ScrapedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", listing.ID, err)
	}
	return nil
}

// UpsertMany writes the batch in one transaction and returns how many
// listings were stored. One bad row fails the batch; partial writes would
// leave the run summary lying about what is in the database.
func (r *Repository) UpsertMany(ctx context.Context, listings []*storage.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (
			id, source, token, address, price, rooms, floor, square_meters,
			neighborhood, description, image_url, source_url, lat, lng,
			scraped_at, updated_at, deleted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), NULL)
		ON CONFLICT (id) DO UPDATE SET
			address       = EXCLUDED.address,
			price         = EXCLUDED.price,
			rooms         = EXCLUDED.rooms,
			floor         = EXCLUDED.floor,
			square_meters = EXCLUDED.square_meters,
			neighborhood  = EXCLUDED.neighborhood,
			description   = EXCLUDED.description,
			image_url     = EXCLUDED.image_url,
			source_url    = EXCLUDED.source_url,
			lat           = COALESCE(EXCLUDED.lat, listings.lat),
			lng           = COALESCE(EXCLUDED.lng, listings.lng),
			scraped_at    = EXCLUDED.scraped_at,
			updated_at    = now(),
			deleted_at    = NULL`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	saved := 0
	for _, listing := range listings {
		cmdCtx, cancel := context.WithTimeout(ctx, r.commandTimeout)
		_, err := stmt.ExecContext(cmdCtx,
			listing.ID, listing.Source, listing.Token, listing.Address,
			listing.Price, listing.Rooms, listing.Floor, listing.SquareMeters,
			listing.Neighborhood, listing.Description, listing.ImageURL,
			listing.SourceURL, listing.Lat, listing.Lng, listing.ScrapedAt,
		)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("upsert listing %s: %w", listing.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	r.logger.Info("batch saved", "listings", saved)
	return saved, nil
}

func (r *Repository) Query(ctx context.Context, filters storage.Filters) ([]*storage.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	if !filters.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filters.MinPrice > 0 {
		args = append(args, filters.MinPrice)
		conditions = append(conditions, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filters.MaxPrice > 0 {
		args = append(args, filters.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("price <= $%d", len(args)))
	}
	if filters.MinRooms > 0 {
		args = append(args, filters.MinRooms)
		conditions = append(conditions, fmt.Sprintf("rooms >= $%d", len(args)))
	}
	if filters.Neighborhood != "" {
		args = append(args, filters.Neighborhood)
		conditions = append(conditions, fmt.Sprintf("neighborhood = $%d", len(args)))
	}

	query := `
		SELECT id, source, token, address, price, rooms, floor, square_meters,
		       neighborhood, description, image_url, source_url, lat, lng, scraped_at
		FROM listings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY scraped_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var listings []*storage.Listing
	for rows.Next() {
		var l storage.Listing
		if err := rows.Scan(
			&l.ID, &l.Source, &l.Token, &l.Address, &l.Price, &l.Rooms,
			&l.Floor, &l.SquareMeters, &l.Neighborhood, &l.Description,
			&l.ImageURL, &l.SourceURL, &l.Lat, &l.Lng, &l.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE listings SET deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) Stats(ctx context.Context) (*storage.AggregateStats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	var stats storage.AggregateStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE deleted_at IS NULL),
			COUNT(*) FILTER (WHERE deleted_at IS NOT NULL),
			COUNT(*) FILTER (WHERE deleted_at IS NULL AND lat IS NOT NULL AND lng IS NOT NULL),
			COALESCE(AVG(price) FILTER (WHERE deleted_at IS NULL), 0)
		FROM listings`).Scan(
		&stats.Total, &stats.Active, &stats.Deleted,
		&stats.WithCoordinates, &stats.AvgPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	return &stats, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
