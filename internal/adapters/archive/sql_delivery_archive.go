package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"drone-delivery-service/internal/platform/obs"
	"drone-delivery-service/internal/ports"

	"go.uber.org/zap"
)

// SQLDeliveryArchive is a Postgres-backed implementation of the
// DeliveryArchive port, used when runs are archived to a shared registry
// instead of the local file database.
type SQLDeliveryArchive struct {
	DB     *sql.DB
	Logger *zap.Logger
}

func NewSQLDeliveryArchive(db *sql.DB, logger *zap.Logger) *SQLDeliveryArchive {
	return &SQLDeliveryArchive{DB: db, Logger: logger}
}

// EnsureSchema creates the delivery_runs table when missing.
func (s *SQLDeliveryArchive) EnsureSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("delivery archive: db is nil")
	}

	statements := []string{
		`
		CREATE TABLE IF NOT EXISTS delivery_runs (
			run_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			total_distance DOUBLE PRECISION NOT NULL,
			total_stops INTEGER NOT NULL,
			stops_completed INTEGER NOT NULL,
			status TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		);
		`,
		`
		CREATE INDEX IF NOT EXISTS idx_delivery_runs_finished_at
		ON delivery_runs(finished_at);
		`,
	}

	for i, stmt := range statements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure archive schema: exec statement #%d: %w", i+1, err)
		}
	}

	return nil
}

// Record one finished run, replacing any previous record with the same id.
func (s *SQLDeliveryArchive) SaveRun(ctx context.Context, rec ports.DeliveryRecord) (err error) {
	defer obs.Time(ctx, s.Logger, "archive.SaveRun")(&err)

	if s.DB == nil {
		return errors.New("delivery archive: db is nil")
	}

	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("save delivery run: run id must not be empty")
	}

	q := `
	INSERT INTO delivery_runs (
		run_id, summary, total_distance, total_stops,
		stops_completed, status, started_at, finished_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO UPDATE
	SET summary = EXCLUDED.summary,
		total_distance = EXCLUDED.total_distance,
		total_stops = EXCLUDED.total_stops,
		stops_completed = EXCLUDED.stops_completed,
		status = EXCLUDED.status,
		started_at = EXCLUDED.started_at,
		finished_at = EXCLUDED.finished_at;
	`
	_, err = s.DB.ExecContext(ctx, q,
		rec.RunID,
		rec.Summary,
		rec.TotalDistance,
		rec.TotalStops,
		rec.StopsCompleted,
		rec.Status,
		rec.StartedAt.UTC(),
		rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save delivery run %q: %w", rec.RunID, err)
	}

	return nil
}

// Return the most recently finished runs, newest first.
func (s *SQLDeliveryArchive) ListRecent(ctx context.Context, limit int) (_ []ports.DeliveryRecord, err error) {
	defer obs.Time(ctx, s.Logger, "archive.ListRecent")(&err)

	if s.DB == nil {
		return nil, errors.New("delivery archive: db is nil")
	}

	if limit <= 0 {
		limit = defaultListLimit
	}

	q := `
	SELECT
		run_id, summary, total_distance, total_stops,
		stops_completed, status, started_at, finished_at
	FROM delivery_runs
	ORDER BY finished_at DESC
	LIMIT $1;
	`
	rows, err := s.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list delivery runs: query delivery_runs table: %w", err)
	}
	defer rows.Close()

	records := make([]ports.DeliveryRecord, 0, limit)
	for rows.Next() {
		var rec ports.DeliveryRecord
		err := rows.Scan(
			&rec.RunID,
			&rec.Summary,
			&rec.TotalDistance,
			&rec.TotalStops,
			&rec.StopsCompleted,
			&rec.Status,
			&rec.StartedAt,
			&rec.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("list delivery runs: scan row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list delivery runs: row iteration: %w", err)
	}

	return records, nil
}
