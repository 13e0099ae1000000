package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
)

// RecordingRepository handles recording data operations
type RecordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// recordingContentColumns are the fields a reprocessing run may overwrite.
// Listing metadata (meeting_id, start_time, end_time) is immutable on update.
var recordingContentColumns = []string{
	"transcript", "summary", "category", "status",
	"play_url", "download_url", "updated_at",
}

// Upsert inserts or updates the recording and bumps participant counters in
// one transaction. The recording_participants junction row is inserted with
// DO NOTHING; a counter is incremented only when that insert actually took,
// which makes the increment exactly-once per (recording, participant) pair
// no matter how often the recording is reprocessed.
func (r *RecordingRepository) Upsert(ctx context.Context, recording *entities.Recording) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(recordingContentColumns),
		}).Create(recording).Error; err != nil {
			return err
		}

		duration := recording.DurationSeconds()
		for _, pid := range recording.ParticipantIDs {
			link := entities.RecordingParticipant{
				RecordingID:   recording.ID,
				ParticipantID: pid,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Pair already counted by an earlier run.
				continue
			}

			stats := entities.ParticipantStats{
				ParticipantID:        pid,
				RecordingCount:       1,
				TotalDurationSeconds: duration,
				LastSeenAt:           recording.EndTime,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "participant_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"recording_count":        gorm.Expr("participant_stats.recording_count + 1"),
					"total_duration_seconds": gorm.Expr("participant_stats.total_duration_seconds + ?", duration),
					"last_seen_at":           recording.EndTime,
				}),
			}).Create(&stats).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.ErrPersistence("upsert recording", err).WithDetail("recording_id", recording.ID)
	}
	return nil
}

// RecordExists reports whether the recording was already fully processed.
// Pending and failed rows return false so a later run retries them.
func (r *RecordingRepository) RecordExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where("id = ? AND status = ?", id, entities.RecordingStatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, apperrors.ErrPersistence("check recording", err)
	}
	return count > 0, nil
}

// FindByID retrieves a recording by ID
func (r *RecordingRepository) FindByID(ctx context.Context, id string) (*entities.Recording, error) {
	var recording entities.Recording
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.ErrPersistence("find recording", err)
	}
	return &recording, nil
}

// ParticipantStats retrieves the rollup row for one participant
func (r *RecordingRepository) ParticipantStats(ctx context.Context, participantID string) (*entities.ParticipantStats, error) {
	var stats entities.ParticipantStats
	if err := r.db.WithContext(ctx).Where("participant_id = ?", participantID).First(&stats).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.ErrPersistence("find participant stats", err)
	}
	return &stats, nil
}
