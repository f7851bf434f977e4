package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"drone-delivery-service/internal/ports"
)

const defaultListLimit = 20

// Fixed-width nanoseconds so lexicographic order on the stored text
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite-backed implementation of the DeliveryArchive port.
// Timestamps are stored as RFC 3339 text in UTC.
type SqliteDeliveryArchive struct{ DB *sql.DB }

func NewSqliteDeliveryArchive(db *sql.DB) *SqliteDeliveryArchive {
	return &SqliteDeliveryArchive{DB: db}
}

// Record one finished run, replacing any previous record with the same id.
func (s *SqliteDeliveryArchive) SaveRun(ctx context.Context, rec ports.DeliveryRecord) error {
	if s.DB == nil {
		return errors.New("delivery archive: DB is nil")
	}

	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("save delivery run: run id must not be empty")
	}

	query := `
	INSERT OR REPLACE INTO delivery_runs (
		run_id,
		summary,
		total_distance,
		total_stops,
		stops_completed,
		status,
		started_at,
		finished_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := s.DB.ExecContext(ctx, query,
		rec.RunID,
		rec.Summary,
		rec.TotalDistance,
		rec.TotalStops,
		rec.StopsCompleted,
		rec.Status,
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save delivery run %q: %w", rec.RunID, err)
	}

	return nil
}

// Return the most recently finished runs, newest first.
func (s *SqliteDeliveryArchive) ListRecent(ctx context.Context, limit int) ([]ports.DeliveryRecord, error) {
	if s.DB == nil {
		return nil, errors.New("delivery archive: DB is nil")
	}

	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
	SELECT
		run_id,
		summary,
		total_distance,
		total_stops,
		stops_completed,
		status,
		started_at,
		finished_at
	FROM delivery_runs
	ORDER BY finished_at DESC
	LIMIT ?;
	`
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list delivery runs: query delivery_runs table: %w", err)
	}
	defer rows.Close()

	records := make([]ports.DeliveryRecord, 0, limit)
	for rows.Next() {
		var rec ports.DeliveryRecord
		var started, finished string
		err := rows.Scan(
			&rec.RunID,
			&rec.Summary,
			&rec.TotalDistance,
			&rec.TotalStops,
			&rec.StopsCompleted,
			&rec.Status,
			&started,
			&finished,
		)
		if err != nil {
			return nil, fmt.Errorf("list delivery runs: scan row: %w", err)
		}

		rec.StartedAt, err = time.Parse(timeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("list delivery runs: parse started_at for %q: %w", rec.RunID, err)
		}
		rec.FinishedAt, err = time.Parse(timeLayout, finished)
		if err != nil {
			return nil, fmt.Errorf("list delivery runs: parse finished_at for %q: %w", rec.RunID, err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list delivery runs: row iteration: %w", err)
	}

	return records, nil
}
