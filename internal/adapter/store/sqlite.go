package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/geocontext-service/internal/domain"
)

// createdAtLayout sorts lexically in chronological order.
const createdAtLayout = "2006-01-02T15:04:05Z"

// SQLite stores reports in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens the database at path, creating the schema if needed. Use
// ":memory:" for a throwaway database.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			place_name TEXT,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			category TEXT,
			report TEXT NOT NULL,
			warning TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Insert stores a report.
func (s *SQLite) Insert(ctx context.Context, rec domain.ReportRecord) error {
	report, err := encodeReport(rec.Report)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, place_name, lat, lon, category, report, warning, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlaceName, rec.Lat, rec.Lon, rec.Category, string(report), rec.Warning,
		rec.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]domain.ReportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, place_name, lat, lon, category, report, warning, created_at
		 FROM reports
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		ClampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReportRecord, 0)
	for rows.Next() {
		var (
			rec       domain.ReportRecord
			report    string
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.PlaceName, &rec.Lat, &rec.Lon, &rec.Category,
			&report, &rec.Warning, &createdAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		if rec.Report, err = decodeReport([]byte(report)); err != nil {
			return nil, err
		}
		if rec.CreatedAt, err = time.Parse(createdAtLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CheckReadiness reports whether the database answers a ping.
func (s *SQLite) CheckReadiness(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("report store: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
