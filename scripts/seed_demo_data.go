package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/meeting-ingest/internal/adapter/repository"
	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
	"github.com/johnquangdev/meeting-ingest/internal/infrastructure/database"
	"github.com/johnquangdev/meeting-ingest/pkg/config"
)

// Seeds a handful of completed recordings so the report command has data to
// aggregate on a fresh database. Run with: go run scripts/seed_demo_data.go
func main() {
	log.Println("🚀 Starting demo data seeding...")

	// Load configuration from .env
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	repo := repository.NewRecordingRepository(db)
	ctx := context.Background()

	categories := []entities.Category{
		entities.CategoryResumeReview,
		entities.CategoryProjectDeepDive,
		entities.CategoryMockInterview,
		entities.CategoryOfferFollowUp,
	}
	participants := [][]string{
		{"alice", "mentor-1"},
		{"bob", "mentor-1"},
		{"alice", "mentor-2"},
		{"carol", "mentor-2"},
	}

	for i, category := range categories {
		start := time.Now().AddDate(0, 0, -i-1).Truncate(time.Hour)
		rec := &entities.Recording{
			ID:             uuid.NewString(),
			MeetingID:      fmt.Sprintf("demo-meeting-%d", i+1),
			StartTime:      start,
			EndTime:        start.Add(45 * time.Minute),
			ParticipantIDs: participants[i],
			Category:       category,
			Transcript:     "Demo transcript.",
			Summary:        fmt.Sprintf("Demo %s session.", category),
			Status:         entities.RecordingStatusCompleted,
		}
		if err := repo.Upsert(ctx, rec); err != nil {
			log.Fatalf("Failed to seed recording %d: %v", i+1, err)
		}
		log.Printf("✅ Seeded recording %s (%s)", rec.ID, category)
	}

	log.Println("🎉 Demo data seeding completed!")
}
