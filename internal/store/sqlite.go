package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/weather-ensemble/internal/weather"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS community_reports (
	id                 TEXT PRIMARY KEY,
	latitude           REAL NOT NULL,
	longitude          REAL NOT NULL,
	reported_condition TEXT NOT NULL,
	actual_condition   TEXT NOT NULL DEFAULT '',
	accuracy           TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	created_at         INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created ON community_reports (created_at);
CREATE INDEX IF NOT EXISTS idx_reports_position ON community_reports (latitude, longitude);
`

// SQLiteStore keeps community reports in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each :memory: connection is its own database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r weather.CommunityReport) error {
	if err := checkReport(r); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO community_reports
			(id, latitude, longitude, reported_condition, actual_condition, accuracy, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Latitude, r.Longitude, r.ReportedCondition, r.ActualCondition,
		string(r.Accuracy), string(r.Status), r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) RecentReports(ctx context.Context, q weather.ReportQuery) ([]weather.CommunityReport, error) {
	query := `SELECT id, latitude, longitude, reported_condition, actual_condition, accuracy, status, created_at
		FROM community_reports
		WHERE created_at >= ?
			AND latitude BETWEEN ? AND ?
			AND longitude BETWEEN ? AND ?`
	args := []interface{}{q.Since.UnixMilli(), q.Box.MinLat, q.Box.MaxLat, q.Box.MinLon, q.Box.MaxLon}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(q.Status))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []weather.CommunityReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	return reports, nil
}

// GetReport returns a single report by ID.
func (s *SQLiteStore) GetReport(ctx context.Context, id string) (weather.CommunityReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, latitude, longitude, reported_condition, actual_condition, accuracy, status, created_at
		FROM community_reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.CommunityReport{}, ErrNotFound
	}
	return r, err
}

func (s *SQLiteStore) PruneReports(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM community_reports WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (weather.CommunityReport, error) {
	var (
		r                weather.CommunityReport
		accuracy, status string
		createdAtMillis  int64
	)
	err := row.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.ReportedCondition, &r.ActualCondition,
		&accuracy, &status, &createdAtMillis)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan report: %w", err)
	}
	r.Accuracy = weather.AccuracyRating(accuracy)
	r.Status = weather.ReportStatus(status)
	r.CreatedAt = time.UnixMilli(createdAtMillis).UTC()
	return r, nil
}
