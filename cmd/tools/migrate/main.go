package main

import (
	"errors"
	"flag"
	"log"
	"os"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-pricing/internal/store"
)

func main() {
	_ = godotenv.Load()

	steps := flag.Int("steps", 0, "number of migrations to apply (negative rolls back); 0 applies all")
	down := flag.Bool("down", false, "roll back every migration")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := store.NewMigrator(dbURL)
	if err != nil {
		log.Fatalf("init migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *down:
		err = m.Down()
	case *steps != 0:
		err = m.Steps(*steps)
	default:
		err = store.RunMigrations(m)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate: %v", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatalf("read version: %v", err)
	}
	log.Printf("schema version %d (dirty=%t)", version, dirty)
}
