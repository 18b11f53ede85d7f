// cmd/dbtools/migrate/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/drivewise-admin/internal/config"
	"github.com/codr1/drivewise-admin/internal/db"
)

func main() {
	var (
		configPath = flag.String("config", "config/app.yaml", "Path to the YAML configuration file")
		dbPath     = flag.String("db", "", "Path to SQLite database (overrides the configured filename)")
		command    = flag.String("command", "", "Command to run (up, down, version, recent, prune)")
		limit      = flag.Int("limit", 20, "Entries to print for recent")
		olderThan  = flag.Duration("older-than", 0, "Age cutoff for prune (defaults to the configured retention)")
	)
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	retention := *olderThan
	path := *dbPath
	if path == "" || retention == 0 {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if path == "" {
			path = cfg.Database.Filename
		}
		if retention == 0 {
			retention = cfg.Scheduler.JournalRetention
		}
	}

	// Create database directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}

	switch *command {
	case "up", "down", "version":
		if err := runMigrate(path, *command); err != nil {
			log.Fatal().Err(err).Str("command", *command).Msg("Migration command failed")
		}
	case "recent", "prune":
		if err := runJournal(path, *command, *limit, retention); err != nil {
			log.Fatal().Err(err).Str("command", *command).Msg("Journal command failed")
		}
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}
}

func runMigrate(path, command string) error {
	m, err := db.NewMigrator(path)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up: %w", err)
		}
		log.Info().Msg("Successfully ran migrations up")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration down: %w", err)
		}
		log.Info().Msg("Successfully ran migrations down")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
	}
	return nil
}

func runJournal(path, command string, limit int, retention time.Duration) error {
	database, err := db.New(path)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	switch command {
	case "recent":
		changes, err := database.RecentStatusChanges(ctx, limit)
		if err != nil {
			return err
		}
		for _, change := range changes {
			result := "committed"
			if !change.Committed {
				result = "rolled back: " + change.Error
			}
			fmt.Printf("%s  %-10s %-24s %s -> %s  by %s  (%s)\n",
				change.CreatedAt.Format(time.RFC3339), change.Resource, change.RecordID,
				change.FromStatus, change.ToStatus, change.Actor, result)
		}
	case "prune":
		cutoff := time.Now().Add(-retention)
		removed, err := database.PruneStatusChanges(ctx, cutoff)
		if err != nil {
			return err
		}
		log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned status changes")
	}
	return nil
}
