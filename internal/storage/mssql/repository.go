package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"yad2-rental-scraper/internal/observability"
	"yad2-rental-scraper/internal/storage"
)

// Repository persists listings in MS SQL Server.
type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Repository{db: db, commandTimeout: commandTimeout, logger: logger}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("mssql repository ready")
	return r, nil
}

func (r *Repository) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.commandTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		IF NOT EXISTS (SELECT * FROM sys.tables WHERE name = 'TblListings')
		CREATE TABLE TblListings (
			[ID]           NVARCHAR(128) NOT NULL PRIMARY KEY,
			[Source]       NVARCHAR(64) NOT NULL,
			[Token]        NVARCHAR(64) NOT NULL,
			[Address]      NVARCHAR(512) NOT NULL,
			[Price]        INT NOT NULL,
			[Rooms]        FLOAT NOT NULL,
			[Floor]        INT NULL,
			[SquareMeters] INT NULL,
			[Neighborhood] NVARCHAR(256) NOT NULL DEFAULT '',
			[Description]  NVARCHAR(1024) NOT NULL DEFAULT '',
			[ImageURL]     NVARCHAR(1024) NOT NULL DEFAULT '',
			[SourceURL]    NVARCHAR(1024) NOT NULL DEFAULT '',
			[Lat]          FLOAT NULL,
			[Lng]          FLOAT NULL,
			[ScrapedAt]    DATETIME2 NOT NULL,
			[UpdatedAt]    DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
			[DeletedAt]    DATETIME2 NULL
		)`)
	return err
}

const upsertQuery = `
	MERGE INTO TblListings AS target
	USING (SELECT @ID AS ID) AS source
	ON target.[ID] = source.ID
	WHEN MATCHED THEN
		UPDATE SET
			[Address] = @Address,
			[Price] = @Price,
			[Rooms] = @Rooms,
			[Floor] = @Floor,
			[SquareMeters] = @SquareMeters,
			[Neighborhood] = @Neighborhood,
			[Description] = @Description,
			[ImageURL] = @ImageURL,
			[SourceURL] = @SourceURL,
			[Lat] = COALESCE(@Lat, target.[Lat]),
			[Lng] = COALESCE(@Lng, target.[Lng]),
			[ScrapedAt] = @ScrapedAt,
			[UpdatedAt] = SYSUTCDATETIME(),
			[DeletedAt] = NULL
	WHEN NOT MATCHED THEN
		INSERT ([ID], [Source], [Token], [Address], [Price], [Rooms], [Floor],
			[SquareMeters], [Neighborhood], [Description], [ImageURL],
			[SourceURL], [Lat], [Lng], [ScrapedAt])
		VALUES (@ID, @Source, @Token, @Address, @Price, @Rooms, @Floor,
			@SquareMeters, @Neighborhood, @Description, @ImageURL,
			@SourceURL, @Lat, @Lng, @ScrapedAt);
`

func upsertArgs(listing *storage.Listing) []any {
	return []any{
		sql.Named("ID", listing.ID),
		sql.Named("Source", listing.Source),
		sql.Named("Token", listing.Token),
		sql.Named("Address", listing.Address),
		sql.Named("Price", listing.Price),
		sql.Named("Rooms", listing.Rooms),
		sql.Named("Floor", listing.Floor),
		sql.Named("SquareMeters", listing.SquareMeters),
		sql.Named("Neighborhood", listing.Neighborhood),
		sql.Named("Description", listing.Description),
		sql.Named("ImageURL", listing.ImageURL),
		sql.Named("SourceURL", listing.SourceURL),
		sql.Named("Lat", listing.Lat),
		sql.Named("Lng", listing.Lng),
		sql.Named("ScrapedAt", listing.ScrapedAt),
	}
}

func (r *Repository) Upsert(ctx context.Context, listing *storage.Listing) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	stmt, err := r.db.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	if _, err := stmt.ExecContext(ctx, upsertArgs(listing)...); err != nil {
		return fmt.Errorf("failed to execute upsert for %s: %w", listing.ID, err)
	}
	return nil
}

// UpsertMany writes the batch in one transaction and returns how many
// listings were stored.
func (r *Repository) UpsertMany(ctx context.Context, listings []*storage.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	saved := 0
	for _, listing := range listings {
		cmdCtx, cancel := context.WithTimeout(ctx, r.commandTimeout)
		_, err := stmt.ExecContext(cmdCtx, upsertArgs(listing)...)
		cancel()
		if err != nil {
			return 0, fmt.Errorf("failed to execute upsert for %s: %w", listing.ID, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
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
		conditions = append(conditions, "[DeletedAt] IS NULL")
	}
	if filters.MinPrice > 0 {
		conditions = append(conditions, "[Price] >= @MinPrice")
		args = append(args, sql.Named("MinPrice", filters.MinPrice))
	}
	if filters.MaxPrice > 0 {
		conditions = append(conditions, "[Price] <= @MaxPrice")
		args = append(args, sql.Named("MaxPrice", filters.MaxPrice))
	}
	if filters.MinRooms > 0 {
		conditions = append(conditions, "[Rooms] >= @MinRooms")
		args = append(args, sql.Named("MinRooms", filters.MinRooms))
	}
	if filters.Neighborhood != "" {
		conditions = append(conditions, "[Neighborhood] = @Neighborhood")
		args = append(args, sql.Named("Neighborhood", filters.Neighborhood))
	}

	query := `
		SELECT [ID], [Source], [Token], [Address], [Price], [Rooms], [Floor],
		       [SquareMeters], [Neighborhood], [Description], [ImageURL],
		       [SourceURL], [Lat], [Lng], [ScrapedAt]
		FROM TblListings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY [ScrapedAt] DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
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
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, &l)
	}
	return listings, rows.Err()
}

func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE TblListings
		SET [DeletedAt] = SYSUTCDATETIME(), [UpdatedAt] = SYSUTCDATETIME()
		WHERE [ID] = @ID AND [DeletedAt] IS NULL`,
		sql.Named("ID", id))
	if err != nil {
		return fmt.Errorf("failed to soft delete %s: %w", id, err)
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
			COALESCE(SUM(CASE WHEN [DeletedAt] IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN [DeletedAt] IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN [DeletedAt] IS NULL AND [Lat] IS NOT NULL AND [Lng] IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN [DeletedAt] IS NULL THEN CAST([Price] AS FLOAT) END), 0)
		FROM TblListings`).Scan(
		&stats.Total, &stats.Active, &stats.Deleted,
		&stats.WithCoordinates, &stats.AvgPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return &stats, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
