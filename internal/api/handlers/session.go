package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/ports"
	"drone-delivery-service/internal/simulation"

	"go.uber.org/zap"
)

// Reported when a delivery is started before any route has been optimized.
var ErrNoPlan = errors.New("no optimized route available")

const archiveTimeout = 5 * time.Second

// DeliverySession ties the optimizer's latest plan to the live simulation
// run and archives finished runs. One session serves the whole process.
//
// The session is the runner's snapshot sink: updates are forwarded to the
// stream, completions additionally land in the archive.
type DeliverySession struct {
	runner  *simulation.Runner
	forward simulation.SnapshotSink
	archive ports.DeliveryArchive
	logger  *zap.Logger

	mu        sync.Mutex
	plan      *domain.RoutePlan
	startedAt time.Time
	activeRun string
}

func NewDeliverySession(cfg simulation.RunnerConfig, sink simulation.SnapshotSink, arc ports.DeliveryArchive, logger *zap.Logger) *DeliverySession {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DeliverySession{forward: sink, archive: arc, logger: logger}
	s.runner = simulation.NewRunner(cfg, s, logger)
	return s
}

// DroneUpdate implements simulation.SnapshotSink.
func (s *DeliverySession) DroneUpdate(snap simulation.Snapshot) {
	if s.forward != nil {
		s.forward.DroneUpdate(snap)
	}
}

// DeliveryComplete implements simulation.SnapshotSink. Archiving happens
// off the simulation goroutine; sinks must not block.
func (s *DeliverySession) DeliveryComplete(snap simulation.Snapshot) {
	if s.forward != nil {
		s.forward.DeliveryComplete(snap)
	}
	go s.archiveRun(snap, "completed")
}

// Replace the plan used by the next Start.
func (s *DeliverySession) SetPlan(plan *domain.RoutePlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = plan
}

// The most recently optimized plan, nil before the first optimization.
func (s *DeliverySession) Plan() *domain.RoutePlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan
}

// Launch a run over the current plan, replacing any active run.
func (s *DeliverySession) Start() (simulation.Snapshot, error) {
	s.mu.Lock()
	plan := s.plan
	s.mu.Unlock()
	if plan == nil {
		return simulation.Snapshot{}, ErrNoPlan
	}

	snap, err := s.runner.Start(plan.Stops)
	if err != nil {
		return simulation.Snapshot{}, err
	}

	s.mu.Lock()
	s.startedAt = time.Now()
	s.activeRun = snap.RunID
	s.mu.Unlock()
	return snap, nil
}

func (s *DeliverySession) Pause() (simulation.Snapshot, error) {
	return s.runner.Pause()
}

// Resume continues a paused run, from pos when given, otherwise from the
// last recorded safe position.
func (s *DeliverySession) Resume(pos *domain.Position) (simulation.Snapshot, error) {
	return s.runner.Resume(pos)
}

// Force a replan from the drone's current position. Returns the new
// stop count.
func (s *DeliverySession) Reroute() (int, error) {
	return s.runner.ForceReroute()
}

func (s *DeliverySession) Status() simulation.Snapshot {
	return s.runner.Status()
}

// End the active run. An interrupted run is archived as stopped.
func (s *DeliverySession) Stop() {
	snap := s.runner.Status()
	s.runner.Stop()

	s.mu.Lock()
	active := s.activeRun != "" && s.activeRun == snap.RunID && snap.Status != simulation.StatusCompleted
	s.mu.Unlock()
	if active {
		s.archiveRun(snap, "stopped")
	}
}

// Recent finished runs, newest first.
func (s *DeliverySession) History(ctx context.Context, limit int) ([]ports.DeliveryRecord, error) {
	if s.archive == nil {
		return []ports.DeliveryRecord{}, nil
	}
	return s.archive.ListRecent(ctx, limit)
}

func (s *DeliverySession) archiveRun(snap simulation.Snapshot, status string) {
	if s.archive == nil || snap.RunID == "" {
		return
	}

	s.mu.Lock()
	plan := s.plan
	startedAt := s.startedAt
	if s.activeRun == snap.RunID {
		s.activeRun = ""
	}
	s.mu.Unlock()

	rec := ports.DeliveryRecord{
		RunID:          snap.RunID,
		TotalStops:     snap.TotalStops,
		StopsCompleted: snap.StopsCompleted,
		Status:         status,
		StartedAt:      startedAt,
		FinishedAt:     time.Now(),
	}
	if plan != nil {
		rec.Summary = plan.Summary
		rec.TotalDistance = plan.TotalDistance
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := s.archive.SaveRun(ctx, rec); err != nil {
		s.logger.Error("archive delivery run", zap.String("run_id", snap.RunID), zap.Error(err))
		return
	}
	s.logger.Info("delivery run archived", zap.String("run_id", snap.RunID), zap.String("status", status))
}
