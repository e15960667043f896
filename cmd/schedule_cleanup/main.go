package main

import (
	"context"
	"log"
	"time"

	"spacebooking/internal/config"
	"spacebooking/internal/database"
	"spacebooking/internal/repository"
)

// schedule_cleanup deletes cancelled schedules, and their occurrences, last
// updated before now minus CLEANUP_RETENTION.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-cfg.CleanupRetention)
	purged, err := repository.NewScheduleRepository(db).PurgeCancelledBefore(ctx, cutoff)
	if err != nil {
		log.Fatalf("cleanup schedules failed: %v", err)
	}

	log.Printf("schedule cleanup completed: cutoff=%s schedules=%d", cutoff.Format(time.RFC3339), purged)
}
