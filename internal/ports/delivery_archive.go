package ports

import (
	"context"
	"time"
)

// Outcome of a finished delivery run.
type DeliveryRecord struct {
	RunID          string
	Summary        string
	TotalDistance  float64
	TotalStops     int
	StopsCompleted int
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Port: a boundary for persisting finished delivery runs.
type DeliveryArchive interface {
	// Record one finished run.
	SaveRun(ctx context.Context, rec DeliveryRecord) error
	// Return the most recent runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]DeliveryRecord, error)
}
