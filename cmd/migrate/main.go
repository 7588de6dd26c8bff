package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"

	"event-waitlist/internal/config"
	"event-waitlist/internal/database"
	"event-waitlist/internal/scheduler"
)

func main() {
	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	statusFlag := flagSet.Bool("status", false, "Show migration status")
	upFlag := flagSet.Bool("up", false, "Run pending migrations")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Connect to database
	db, err := database.NewConnection(ctx, database.Config{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch {
	case *statusFlag:
		statuses, err := db.GetMigrationStatus(ctx)
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		fmt.Println("Migration Status:")
		for _, s := range statuses {
			mark := "pending"
			if s.Applied {
				mark = "applied"
			}
			fmt.Printf("  %03d_%s: %s\n", s.Version, s.Name, mark)
		}
	case *upFlag:
		if err := db.RunMigrations(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		// Opening the job store applies its own schema.
		jobStore, err := scheduler.Open(ctx, cfg.Scheduler.DBPath)
		if err != nil {
			log.Fatalf("Failed to migrate scheduler store: %v", err)
		}
		_ = jobStore.Close()
		fmt.Println("All migrations completed successfully!")
	default:
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/migrate --status   # Show migration status")
		fmt.Println("  go run ./cmd/migrate --up       # Run pending migrations")
		os.Exit(1)
	}
}
