package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/johnquangdev/meeting-ingest/errors"
	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
)

// ReportRepository exposes the read-only aggregates the dashboard consumes.
// Nothing here mutates state.
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StatusCount is one bucket of the status histogram
type StatusCount struct {
	Status entities.RecordingStatus `json:"status"`
	Count  int64                    `json:"count"`
}

// CategoryCount is one bucket of the category histogram
type CategoryCount struct {
	Category entities.Category `json:"category"`
	Count    int64             `json:"count"`
}

// DailyCount is the number of recordings that started on one calendar day
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// StatusHistogram returns recording counts grouped by status.
func (r *ReportRepository) StatusHistogram(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.ErrPersistence("status histogram", err)
	}
	return rows, nil
}

// CategoryHistogram returns recording counts grouped by category.
func (r *ReportRepository) CategoryHistogram(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Select("category, count(*) as count").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.ErrPersistence("category histogram", err)
	}
	return rows, nil
}

// DailyCounts returns per-day recording counts since the given time.
func (r *ReportRepository) DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	var rows []DailyCount
	err := r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Select("date(start_time) as day, count(*) as count").
		Where("start_time >= ?", since).
		Group("date(start_time)").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.ErrPersistence("daily counts", err)
	}
	return rows, nil
}

// TopParticipants returns the participants with the most recordings.
func (r *ReportRepository) TopParticipants(ctx context.Context, limit int) ([]entities.ParticipantStats, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []entities.ParticipantStats
	err := r.db.WithContext(ctx).
		Order("recording_count DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.ErrPersistence("top participants", err)
	}
	return rows, nil
}
