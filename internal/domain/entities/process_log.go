package entities

import "time"

// ProcessStatus is the terminal outcome of one processing attempt
type ProcessStatus string

const (
	ProcessStatusSucceeded ProcessStatus = "succeeded"
	ProcessStatusFailed    ProcessStatus = "failed"
)

// ProcessLogEntry is an append-only audit record. One entry is written per
// processing attempt, success or failure; entries are never mutated and
// never drive control flow.
type ProcessLogEntry struct {
	ID                   int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID          string        `json:"recording_id" gorm:"type:varchar(64);not null;index"`
	Status               ProcessStatus `json:"status" gorm:"type:varchar(16);not null"`
	ErrorMessage         *string       `json:"error_message,omitempty" gorm:"type:text"`
	ProcessingDurationMs int64         `json:"processing_duration_ms" gorm:"not null;default:0"`
	ObservedAt           time.Time     `json:"observed_at" gorm:"not null"`
}

// TableName specifies the table name for GORM
func (ProcessLogEntry) TableName() string {
	return "process_log_entries"
}

// NewProcessLogEntry builds an entry for a finished attempt.
func NewProcessLogEntry(recordingID string, err error, took time.Duration) *ProcessLogEntry {
	entry := &ProcessLogEntry{
		RecordingID:          recordingID,
		Status:               ProcessStatusSucceeded,
		ProcessingDurationMs: took.Milliseconds(),
		ObservedAt:           time.Now().UTC(),
	}
	if err != nil {
		msg := err.Error()
		entry.Status = ProcessStatusFailed
		entry.ErrorMessage = &msg
	}
	return entry
}
