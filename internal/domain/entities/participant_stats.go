package entities

import "time"

// ParticipantStats is the per-participant rollup the dashboard reads.
// RecordingCount is incremented at most once per distinct recording; the
// recording_participants junction enforces that across reprocessing.
type ParticipantStats struct {
	ParticipantID        string    `json:"participant_id" gorm:"type:varchar(64);primary_key"`
	RecordingCount       int64     `json:"recording_count" gorm:"not null;default:0"`
	TotalDurationSeconds int64     `json:"total_duration_seconds" gorm:"not null;default:0"`
	LastSeenAt           time.Time `json:"last_seen_at"`
}

// TableName specifies the table name for GORM
func (ParticipantStats) TableName() string {
	return "participant_stats"
}
