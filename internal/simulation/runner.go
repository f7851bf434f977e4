package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"drone-delivery-service/internal/domain"
	"drone-delivery-service/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// Reported when a control action does not apply to the current state,
	// e.g. pausing a run that is not in progress.
	ErrInvalidTransition = errors.New("delivery not running or is paused")
	// Reported when a reroute is requested with no stops left ahead.
	ErrNoStopsRemaining = errors.New("no remaining stops to visit")
	// Reported when a run is started with an empty route.
	ErrEmptyRoute = errors.New("route has no stops")
)

// Tunables for the simulation loop. Zero values fall back to the runner
// defaults.
type RunnerConfig struct {
	TickInterval time.Duration
	// How long a hazard pause lasts before the run resumes on its own.
	ResumeDelay   time.Duration
	DroneName     string
	DroneSpeed    float64
	HazardSizeMin float64
	HazardSizeMax float64
	Seed          uint64
	Replanner     services.ReplannerConfig
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = 50 * time.Millisecond
	}
	if c.ResumeDelay <= 0 {
		c.ResumeDelay = 3 * time.Second
	}
	if c.DroneName == "" {
		c.DroneName = defaultDroneName
	}
	if c.DroneSpeed <= 0 {
		c.DroneSpeed = defaultDroneSpeed
	}
	if c.HazardSizeMin <= 0 {
		c.HazardSizeMin = 1
	}
	if c.HazardSizeMax < c.HazardSizeMin {
		c.HazardSizeMax = c.HazardSizeMin + 1
	}
	return c
}

// Receives run snapshots from the simulation loop. Calls are made inline
// from the loop goroutine and from control methods; implementations must
// not block.
type SnapshotSink interface {
	DroneUpdate(Snapshot)
	DeliveryComplete(Snapshot)
}

func newRng(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed+1))
}

// Drives one drone through a delivery run on a fixed tick. A run seeds one
// random weather hazard on the planned route; detection pauses the run,
// backs the drone off to its last safe position and replans the remaining
// stops around the hazard before resuming.
type Runner struct {
	cfg    RunnerConfig
	sink   SnapshotSink
	logger *zap.Logger
	rng    *rand.Rand

	mu           sync.Mutex
	drone        *Drone
	runID        string
	goal         domain.Waypoint
	hazards      []domain.Hazard
	display      domain.DisplayRoute
	running      bool
	paused       bool
	rerouting    bool
	prevSafe     domain.Position
	hasPrevSafe  bool
	startedAt    time.Time
	hazardAt     time.Time
	arrivals     []domain.Arrival
	completeSent bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(cfg RunnerConfig, sink SnapshotSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg.withDefaults(),
		sink:   sink,
		logger: logger,
		rng:    newRng(cfg.Seed),
	}
}

// Begin a run over the planned stops. The first stop is the launch point and
// the last one the return to it. Any run already in progress is stopped
// first. Returns the initial snapshot.
func (r *Runner) Start(stops []domain.RouteStop) (Snapshot, error) {
	if len(stops) == 0 {
		return Snapshot{}, ErrEmptyRoute
	}

	r.Stop()

	r.mu.Lock()
	origin := stops[0]
	route := append([]domain.RouteStop(nil), stops...)

	r.runID = uuid.NewString()
	r.drone = NewDrone(r.cfg.DroneName, r.cfg.DroneSpeed, domain.Position{X: origin.X, Y: origin.Y}, r.logger)
	r.goal = domain.Waypoint{Name: domain.ReturnStopName(origin.Name), X: origin.X, Y: origin.Y}

	r.hazards = nil
	if len(route) > 2 {
		i := 1 + r.rng.IntN(len(route)-2)
		h := domain.GenerateHazardOnSegment(r.rng, route[i].Waypoint(), route[i+1].Waypoint(), r.cfg.HazardSizeMin, r.cfg.HazardSizeMax)
		r.hazards = []domain.Hazard{h}
	}
	r.display = domain.DisplayRoute{Stops: route, Hazards: r.hazards}
	r.drone.SetRoute(route)

	r.startedAt = time.Now()
	r.arrivals = nil
	r.paused = false
	r.rerouting = false
	r.hasPrevSafe = false
	r.hazardAt = time.Time{}
	r.completeSent = false
	r.running = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	r.logger.Info("delivery started",
		zap.String("run_id", r.runID),
		zap.Int("stops", len(route)),
		zap.Int("hazards", len(r.hazards)),
	)

	snap := r.snapshotLocked()
	r.mu.Unlock()

	go r.loop(ctx, done)
	return snap, nil
}

// Stop the current run, if any, and wait for its loop to exit. Safe to call
// at any time.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.paused = false
	r.rerouting = false
	r.hazardAt = time.Time{}
	if r.drone != nil {
		r.drone.moving = false
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Pause an in-progress run, remembering the last safe position.
func (r *Runner) Pause() (Snapshot, error) {
	r.mu.Lock()
	if !r.running || r.paused {
		r.mu.Unlock()
		return Snapshot{}, ErrInvalidTransition
	}
	r.pauseLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.emitUpdate(snap)
	return snap, nil
}

// Resume a paused run. The drone backs off to loc when given, otherwise to
// the remembered safe position, and the remaining stops are replanned
// around the known hazards from there.
func (r *Runner) Resume(loc *domain.Position) (Snapshot, error) {
	r.mu.Lock()
	if !r.paused {
		r.mu.Unlock()
		return Snapshot{}, ErrInvalidTransition
	}
	r.resumeLocked(loc)
	r.hazardAt = time.Time{}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.emitUpdate(snap)
	return snap, nil
}

// Replan the remaining stops of an in-progress run from the drone's current
// position. Returns the stop count of the new route.
func (r *Runner) ForceReroute() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.paused {
		return 0, ErrInvalidTransition
	}
	r.rerouting = true
	return r.replanLocked()
}

// Current snapshot. Valid at any time; before the first start it reports an
// idle run.
func (r *Runner) Status() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	lastStop := -1
	var lastPos domain.Position
	hasLastPos := false

	for {
		snap, finished, alive := r.tick(&lastStop, &lastPos, &hasLastPos)
		if !alive {
			return
		}
		r.emitUpdate(snap)
		if finished {
			r.logger.Info("delivery complete", zap.String("run_id", snap.RunID))
			r.emitComplete(snap)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// One simulation step: sense, pause or resume around hazards, advance the
// drone, record arrivals and produce the tick's snapshot.
func (r *Runner) tick(lastStop *int, lastPos *domain.Position, hasLastPos *bool) (Snapshot, bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running || r.drone == nil {
		return Snapshot{}, false, false
	}

	pos := r.drone.Position()
	if !*hasLastPos || *lastPos != pos {
		r.logger.Debug("drone moved",
			zap.Float64("x", pos.X),
			zap.Float64("y", pos.Y),
			zap.Int("target_stop", r.drone.stopIndex+1),
			zap.Int("route_stops", len(r.drone.route)),
		)
		*lastPos, *hasLastPos = pos, true
	}

	if !r.paused && r.drone.DetectHazards(r.hazards) {
		r.logger.Warn("weather hazard detected",
			zap.Float64("x", pos.X),
			zap.Float64("y", pos.Y),
		)
		r.pauseLocked()
		r.hazardAt = time.Now()
	}

	if r.paused && !r.hazardAt.IsZero() && time.Since(r.hazardAt) >= r.cfg.ResumeDelay {
		r.logger.Info("hazard wait elapsed, resuming from safe location")
		r.resumeLocked(nil)
		r.hazardAt = time.Time{}
	}

	if !r.paused && !r.rerouting {
		r.drone.MoveToNextStop(r.hazards)
		if !r.drone.moving && !r.drone.complete {
			r.drone.moving = true
		}
	}

	if idx := r.drone.stopIndex; *lastStop != idx {
		*lastStop = idx
		if idx > 0 && idx < len(r.drone.route) {
			stop := r.drone.route[idx]
			now := time.Now()
			r.logger.Info("arrived at stop", zap.Int("stop", idx), zap.String("name", stop.Name))
			r.arrivals = append(r.arrivals, domain.Arrival{
				Stop:      idx,
				Name:      stop.Name,
				ArrivedAt: now.Format("15:04:05"),
				Elapsed:   formatElapsed(now.Sub(r.startedAt)),
			})
		}
	}

	finished := r.drone.complete
	snap := r.snapshotLocked()
	if finished {
		r.running = false
	}
	return snap, finished, true
}

func (r *Runner) pauseLocked() {
	r.prevSafe = r.drone.PreviousPosition()
	r.hasPrevSafe = true
	r.drone.moving = false

	pos := r.drone.Position()
	r.logger.Info("delivery paused",
		zap.Float64("x", pos.X),
		zap.Float64("y", pos.Y),
		zap.Float64("safe_x", r.prevSafe.X),
		zap.Float64("safe_y", r.prevSafe.Y),
	)
}

func (r *Runner) resumeLocked(loc *domain.Position) {
	target := loc
	if target == nil && r.hasPrevSafe {
		target = &r.prevSafe
	}
	if target != nil {
		r.logger.Info("continuing delivery from safe location",
			zap.Float64("x", target.X),
			zap.Float64("y", target.Y),
		)
		r.drone.x, r.drone.y = target.X, target.Y
		if !r.rerouting {
			r.rerouting = true
			r.replanLocked()
		}
	}

	r.drone.hazardDetected = false
	r.drone.moving = true
	r.paused = false
}

// Replan the stops ahead of the drone around the known hazards. The planner
// appends the leg home itself, so the trailing return stop is dropped from
// its input; with nothing else left the new route is the direct leg home.
func (r *Runner) replanLocked() (int, error) {
	defer func() { r.rerouting = false }()

	route := r.drone.route
	idx := r.drone.stopIndex
	if idx+1 >= len(route) {
		r.logger.Info("no remaining stops to visit")
		return 0, ErrNoStopsRemaining
	}

	ahead := route[idx+1:]
	dests := ahead[:len(ahead)-1]

	pos := r.drone.Position()
	current := domain.RouteStop{Seq: 1, Name: "Current Position", X: pos.X, Y: pos.Y}

	var newRoute []domain.RouteStop
	if len(dests) == 0 {
		newRoute = []domain.RouteStop{
			current,
			{Seq: 2, Name: r.goal.Name, X: r.goal.X, Y: r.goal.Y},
		}
	} else {
		waypoints := make([]domain.Waypoint, 0, len(dests))
		for _, s := range dests {
			waypoints = append(waypoints, s.Waypoint())
		}

		planner := services.NewHazardReplanner(r.goal, r.hazards, r.cfg.Replanner, r.logger)
		order := planner.FindPath(waypoints, pos, true)

		newRoute = make([]domain.RouteStop, 0, len(order)+1)
		newRoute = append(newRoute, current)
		for i, w := range order {
			newRoute = append(newRoute, domain.RouteStop{Seq: i + 2, Name: w.Name, X: w.X, Y: w.Y})
		}
	}

	r.drone.SetRoute(newRoute)
	r.display = domain.DisplayRoute{Stops: newRoute, Hazards: r.hazards}
	r.logger.Info("route recalculated", zap.Int("stops", len(newRoute)))
	return len(newRoute), nil
}

func (r *Runner) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:     r.runID,
		Status:    StatusIdle,
		Elapsed:   "00:00:00",
		ETA:       "N/A",
		Route:     r.display,
		Arrivals:  append([]domain.Arrival(nil), r.arrivals...),
		Paused:    r.paused,
		Rerouting: r.rerouting,
	}
	if r.drone != nil {
		snap.Location = r.drone.Position()
		snap.HazardDetected = r.drone.hazardDetected
	}
	if r.drone == nil || len(r.drone.route) == 0 {
		return snap
	}

	d := r.drone
	total := len(d.route)
	if total > 1 {
		snap.Progress = float64(d.stopIndex) / float64(total-1) * 100
	}
	snap.StopsCompleted = d.stopIndex
	// The final stop is the return home, not a delivery.
	snap.TotalStops = total - 1
	if d.stopIndex < total-1 {
		snap.NextStop = d.route[d.stopIndex+1].Name
	}

	switch {
	case d.hazardDetected:
		snap.Status = StatusHazardDetected
	case d.complete:
		snap.Status = StatusCompleted
	default:
		snap.Status = StatusInProgress
	}
	if r.paused {
		snap.Status = StatusPaused
	} else if r.rerouting {
		snap.Status = StatusRerouting
	}

	if !r.startedAt.IsZero() {
		snap.Elapsed = formatElapsed(time.Since(r.startedAt))
	}
	snap.ETA = r.etaLocked(snap.Progress)
	return snap
}

// Remaining-time estimate extrapolated from elapsed time and progress.
func (r *Runner) etaLocked(progress float64) string {
	if r.startedAt.IsZero() || !r.running {
		return "N/A"
	}
	if progress <= 0 {
		return "Calculating..."
	}

	elapsed := time.Since(r.startedAt).Seconds()
	remaining := elapsed/(progress/100) - elapsed
	if remaining <= 0 {
		return "Completing..."
	}

	secs := int(remaining)
	h, m, s := secs/3600, secs%3600/60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func (r *Runner) emitUpdate(snap Snapshot) {
	if r.sink != nil {
		r.sink.DroneUpdate(snap)
	}
}

func (r *Runner) emitComplete(snap Snapshot) {
	r.mu.Lock()
	if r.completeSent {
		r.mu.Unlock()
		return
	}
	r.completeSent = true
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.DeliveryComplete(snap)
	}
}

func formatElapsed(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}
