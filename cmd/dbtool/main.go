package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"
	"time"

	"drone-delivery-service/internal/adapters/archive"
	"drone-delivery-service/internal/adapters/repositories"
	"drone-delivery-service/internal/config"
	"drone-delivery-service/internal/platform/db"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

// dbtool prepares the databases outside the server process: it creates
// and seeds the local sqlite file, and when DATABASE_URL is set it loads
// the same seed into the shared Postgres registry and provisions the
// archive table there.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	dbPath := config.Get("DB_PATH", "data/app.db")
	local, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("open sqlite database %q: %v", dbPath, err)
	}
	defer local.Close()

	seedPath := config.Get("SEED_PATH", "data/seeds/waypoints.json")
	if err := initAndSeed(local, seedPath); err != nil {
		log.Fatal(err)
	}

	if databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); databaseURL != "" {
		if err := prepareRegistry(databaseURL, seedPath); err != nil {
			log.Fatal(err)
		}
	}
}

func initAndSeed(db *sql.DB, seedPath string) error {
	log.Println("Initializing database schema...")
	if err := repositories.InitSchema(db); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	log.Println("Seeding database...")
	if err := repositories.SeedFromJSON(db, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")

	return nil
}

func prepareRegistry(databaseURL, seedPath string) error {
	log.Println("Preparing shared registry...")
	pg, err := db.Open(databaseURL)
	if err != nil {
		log.Fatalf("registry connection failed: %v", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	waypoints := repositories.NewSQLWaypointRepository(pg)
	if err := waypoints.EnsureSchema(ctx); err != nil {
		log.Fatalf("registry schema failed: %v", err)
	}

	seeds, err := repositories.LoadSeedFile(seedPath)
	if err != nil {
		log.Fatalf("registry seed failed: %v", err)
	}
	if err := waypoints.UpsertWaypoints(ctx, seeds); err != nil {
		log.Fatalf("registry seed failed: %v", err)
	}
	log.Printf("Registry seeded with %d waypoints.", len(seeds))

	if err := archive.NewSQLDeliveryArchive(pg, nil).EnsureSchema(ctx); err != nil {
		log.Fatalf("registry schema failed: %v", err)
	}
	log.Println("Registry ready.")

	return nil
}
