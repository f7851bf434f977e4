package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"drone-delivery-service/internal/adapters/archive"
	"drone-delivery-service/internal/adapters/repositories"
	"drone-delivery-service/internal/adapters/stream"
	"drone-delivery-service/internal/api"
	"drone-delivery-service/internal/api/handlers"
	"drone-delivery-service/internal/config"
	"drone-delivery-service/internal/platform/db"
	"drone-delivery-service/internal/platform/logging"
	"drone-delivery-service/internal/ports"
	"drone-delivery-service/internal/services"
	"drone-delivery-service/internal/simulation"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It wires concrete adapters (SQLite, websocket stream) behind ports and
// starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (using environment variables)")
	}

	logger := logging.New(logging.Config{
		Level:      config.Get("LOG_LEVEL", "info"),
		Format:     config.Get("LOG_FORMAT", "console"),
		File:       config.Get("LOG_FILE", ""),
		MaxSizeMB:  config.GetInt("LOG_MAX_SIZE_MB", 50),
		MaxBackups: config.GetInt("LOG_MAX_BACKUPS", 3),
		MaxAgeDays: config.GetInt("LOG_MAX_AGE_DAYS", 14),
	})
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)

	dbPath := config.Get("DB_PATH", "data/app.db")
	seedPath := config.Get("SEED_PATH", "data/seeds/waypoints.json")
	originName := config.Get("ORIGIN_NAME", "origin")
	port := config.Get("PORT", "8080")

	db, err := openDB(dbPath)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(db, seedPath); err != nil {
		logger.Fatal("prepare database", zap.Error(err))
	}

	repo := repositories.NewSqliteWaypointRepository(db)

	arc, closeArchive, err := buildArchive(db, logger)
	if err != nil {
		logger.Fatal("prepare archive", zap.Error(err))
	}
	defer closeArchive()

	hub := stream.NewHub(logger)
	defer hub.Close()

	runnerCfg := simulation.RunnerConfig{
		TickInterval: time.Duration(config.GetInt("TICK_INTERVAL_MS", 0)) * time.Millisecond,
		ResumeDelay:  time.Duration(config.GetInt("RESUME_DELAY_MS", 0)) * time.Millisecond,
		DroneName:    config.Get("DRONE_NAME", ""),
		DroneSpeed:   config.GetFloat("DRONE_SPEED", 0),
		Replanner: services.ReplannerConfig{
			HazardBuffer:   config.GetFloat("HAZARD_BUFFER", 0),
			PenaltyFactor:  config.GetFloat("REPLAN_PENALTY", 0),
			IterationLimit: config.GetInt("REPLAN_ITERATION_LIMIT", 0),
		},
	}
	session := handlers.NewDeliverySession(runnerCfg, stream.NewSnapshotSink(hub), arc, logger)
	defer session.Stop()

	router := api.NewRouter(repo, session, http.HandlerFunc(hub.HandleStream), api.Config{
		Origin: originName,
		Optimizer: services.OptimizerConfig{
			PopulationSize: config.GetInt("GA_POPULATION", 0),
			Generations:    config.GetInt("GA_GENERATIONS", 0),
			MutationRate:   config.GetFloat("GA_MUTATION_RATE", 0),
			Runs:           config.GetInt("GA_RUNS", 0),
		},
		RateRPS:   config.GetFloat("RATE_LIMIT_RPS", 0),
		RateBurst: config.GetInt("RATE_LIMIT_BURST", 0),
	}, logger)

	// Timeouts cover the JSON API; the stream endpoint hijacks its
	// connection and manages its own deadlines.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// Runs are archived to the shared Postgres registry when DATABASE_URL is
// set, otherwise to the local sqlite database.
func buildArchive(local *sql.DB, logger *zap.Logger) (ports.DeliveryArchive, func(), error) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		return archive.NewSqliteDeliveryArchive(local), func() {}, nil
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("build archive: %w", err)
	}

	arc := archive.NewSQLDeliveryArchive(pg, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := arc.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("build archive: %w", err)
	}

	logger.Info("archiving runs to shared registry")
	return arc, func() { pg.Close() }, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

func initAndSeed(db *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(db); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(db, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}
