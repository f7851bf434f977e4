package api

import (
	"net/http"

	"drone-delivery-service/internal/api/handlers"
	"drone-delivery-service/internal/ports"
	"drone-delivery-service/internal/services"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Control endpoints share one limiter; ample for an operator UI, tight
// enough to absorb a stuck retry loop.
const (
	defaultControlRPS   = 20
	defaultControlBurst = 40
)

type Config struct {
	Origin    string
	Optimizer services.OptimizerConfig
	// Token bucket shared by the mutating endpoints. Zero values fall
	// back to the defaults above.
	RateRPS   float64
	RateBurst int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	repo ports.WaypointRepository,
	session *handlers.DeliverySession,
	stream http.Handler,
	cfg Config,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	wpHandler := &handlers.WaypointHandler{Repo: repo, Logger: logger}
	deliveryHandler := &handlers.DeliveryHandler{
		Repo:      repo,
		Session:   session,
		Origin:    cfg.Origin,
		Optimizer: cfg.Optimizer,
		Logger:    logger,
	}

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = defaultControlRPS
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultControlBurst
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/waypoints", wpHandler.List)
	mux.HandleFunc("/optimize", rateLimit(limiter, deliveryHandler.Optimize))
	mux.HandleFunc("/delivery/start", rateLimit(limiter, deliveryHandler.Start))
	mux.HandleFunc("/delivery/pause", rateLimit(limiter, deliveryHandler.Pause))
	mux.HandleFunc("/delivery/resume", rateLimit(limiter, deliveryHandler.Resume))
	mux.HandleFunc("/delivery/reroute", rateLimit(limiter, deliveryHandler.Reroute))
	mux.HandleFunc("/delivery/stop", rateLimit(limiter, deliveryHandler.Stop))
	mux.HandleFunc("/delivery/status", deliveryHandler.Status)
	mux.HandleFunc("/deliveries", deliveryHandler.ListDeliveries)
	if stream != nil {
		mux.Handle("/delivery/stream", stream)
	}

	return loggingMiddleware(logger, mux)
}
