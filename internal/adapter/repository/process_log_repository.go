package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
)

// ProcessLogRepository appends processing-attempt audit entries
type ProcessLogRepository struct {
	db *gorm.DB
}

// NewProcessLogRepository creates a new process log repository
func NewProcessLogRepository(db *gorm.DB) *ProcessLogRepository {
	return &ProcessLogRepository{db: db}
}

// Append writes one audit entry. Entries are append-only; there is no
// update or delete path.
func (r *ProcessLogRepository) Append(ctx context.Context, entry *entities.ProcessLogEntry) error {
	if entry == nil {
		return errors.New("log entry cannot be nil")
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return apperrors.ErrPersistence("append process log", err).WithDetail("recording_id", entry.RecordingID)
	}
	return nil
}

// FindByRecordingID retrieves all attempts for one recording, oldest first.
func (r *ProcessLogRepository) FindByRecordingID(ctx context.Context, recordingID string) ([]*entities.ProcessLogEntry, error) {
	var entries []*entities.ProcessLogEntry
	if err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		Order("observed_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, apperrors.ErrPersistence("list process log", err)
	}
	return entries, nil
}
