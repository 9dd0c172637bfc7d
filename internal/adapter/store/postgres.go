package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/geocontext-service/internal/domain"
)

// Postgres stores reports in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and creates the schema if needed.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return s, nil
}

const createReportsSQL = `
    CREATE TABLE IF NOT EXISTS reports (
        id TEXT PRIMARY KEY,
        place_name TEXT,
        lat DOUBLE PRECISION NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        category TEXT,
        report JSONB NOT NULL,
        warning TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL,
        seq BIGSERIAL
    );
    CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC, seq DESC);
`

func (s *Postgres) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createReportsSQL)
	return err
}

const insertReportSQL = `
    INSERT INTO reports (id, place_name, lat, lon, category, report, warning, created_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

// Insert stores a report.
func (s *Postgres) Insert(ctx context.Context, rec domain.ReportRecord) error {
	report, err := encodeReport(rec.Report)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, insertReportSQL,
		rec.ID, rec.PlaceName, rec.Lat, rec.Lon, rec.Category, report, rec.Warning, rec.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("insert report %s: %w", rec.ID, err)
	}
	return nil
}

const recentReportsSQL = `
    SELECT id, place_name, lat, lon, category, report, warning, created_at
    FROM reports
    ORDER BY created_at DESC, seq DESC
    LIMIT $1
`

// Recent returns up to limit reports, newest first.
func (s *Postgres) Recent(ctx context.Context, limit int) ([]domain.ReportRecord, error) {
	rows, err := s.pool.Query(ctx, recentReportsSQL, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReportRecord, 0)
	for rows.Next() {
		var (
			rec    domain.ReportRecord
			report []byte
		)
		if err := rows.Scan(&rec.ID, &rec.PlaceName, &rec.Lat, &rec.Lon, &rec.Category,
			&report, &rec.Warning, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if rec.Report, err = decodeReport(report); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// CheckReadiness reports whether the database answers a ping.
func (s *Postgres) CheckReadiness(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("report store: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
