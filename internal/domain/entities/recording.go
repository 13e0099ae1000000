package entities

import (
	"time"

	"gorm.io/datatypes"
)

// RecordingStatus represents the status of an ingested recording
type RecordingStatus string

const (
	RecordingStatusPending   RecordingStatus = "pending"
	RecordingStatusCompleted RecordingStatus = "completed"
	RecordingStatusFailed    RecordingStatus = "failed"
)

// Category is the meeting classification produced by the summarizer
type Category string

const (
	CategoryResumeReview    Category = "resume_review"
	CategoryProjectDeepDive Category = "project_deep_dive"
	CategoryMockInterview   Category = "mock_interview"
	CategoryOfferFollowUp   Category = "offer_followup"
	CategoryOther           Category = "other"
)

// Categories is the fixed label set the summarizer may choose from.
var Categories = []Category{
	CategoryResumeReview,
	CategoryProjectDeepDive,
	CategoryMockInterview,
	CategoryOfferFollowUp,
	CategoryOther,
}

// ValidCategory reports whether s is one of the fixed labels.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Recording represents one ingested meeting capture. The ID is the external
// record identifier, so reprocessing the same capture hits the same row.
type Recording struct {
	ID             string                       `json:"id" gorm:"type:varchar(64);primary_key"`
	MeetingID      string                       `json:"meeting_id" gorm:"type:varchar(64);not null;index"`
	StartTime      time.Time                    `json:"start_time" gorm:"not null;index"`
	EndTime        time.Time                    `json:"end_time" gorm:"not null"`
	ParticipantIDs datatypes.JSONSlice[string]  `json:"participant_ids" gorm:"type:jsonb"`
	Category       Category                     `json:"category" gorm:"type:varchar(32);not null;default:'other';index"`
	Transcript     string                       `json:"transcript" gorm:"type:text"`
	Summary        string                       `json:"summary" gorm:"type:text"`
	PlayURL        string                       `json:"play_url" gorm:"type:text"`
	DownloadURL    string                       `json:"download_url" gorm:"type:text"`
	Status         RecordingStatus              `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	CreatedAt      time.Time                    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time                    `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

// DurationSeconds is the wall-clock length of the capture.
func (r *Recording) DurationSeconds() int64 {
	return int64(r.EndTime.Sub(r.StartTime).Seconds())
}

// IsCompleted checks if the recording finished processing
func (r *Recording) IsCompleted() bool {
	return r.Status == RecordingStatusCompleted
}

// MarkAsCompleted marks the recording as fully processed
func (r *Recording) MarkAsCompleted() {
	r.Status = RecordingStatusCompleted
}

// MarkAsFailed marks the recording as failed at some pipeline stage
func (r *Recording) MarkAsFailed() {
	r.Status = RecordingStatusFailed
}

// RecordingParticipant links a recording to one attendee. Its composite key
// makes the per-participant counter increment idempotent: the row can be
// inserted at most once per (recording, participant) pair, however many
// times the recording is reprocessed.
type RecordingParticipant struct {
	RecordingID   string `gorm:"type:varchar(64);primaryKey"`
	ParticipantID string `gorm:"type:varchar(64);primaryKey"`
}

// TableName specifies the table name for GORM
func (RecordingParticipant) TableName() string {
	return "recording_participants"
}
