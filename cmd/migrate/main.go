package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"booking-marketplace/internal/config"
	"booking-marketplace/internal/database"
)

func main() {
	var (
		statusFlag = flag.Bool("status", false, "Show migration status")
		upFlag     = flag.Bool("up", false, "Run pending migrations")
		downFlag   = flag.Bool("down", false, "Roll back the last migration")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch {
	case *statusFlag:
		if err := db.GetMigrationStatus(); err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
	case *upFlag:
		if err := db.RunMigrations(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("All migrations completed successfully!")
	case *downFlag:
		if err := db.RollbackMigration(); err != nil {
			log.Fatalf("Failed to roll back migration: %v", err)
		}
		fmt.Println("Rolled back one migration")
	default:
		fmt.Println("Usage:")
		fmt.Println("  go run cmd/migrate/main.go -status   # Show migration status")
		fmt.Println("  go run cmd/migrate/main.go -up       # Run pending migrations")
		fmt.Println("  go run cmd/migrate/main.go -down     # Roll back the last migration")
		os.Exit(1)
	}
}
