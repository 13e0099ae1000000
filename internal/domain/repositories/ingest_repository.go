package repositories

import (
	"context"

	"github.com/johnquangdev/meeting-ingest/internal/domain/entities"
)

// RecordingRepository persists pipeline output. Upsert must be atomic per
// recording: the recording row and all participant counter updates commit
// together or not at all.
type RecordingRepository interface {
	// Upsert inserts the recording or, on conflict with an existing id,
	// updates content fields only (transcript, summary, category, status,
	// URLs). Listing metadata (meeting id, start/end) is immutable once set.
	Upsert(ctx context.Context, recording *entities.Recording) error

	// RecordExists reports whether the recording was already fully processed.
	RecordExists(ctx context.Context, id string) (bool, error)
}

// ProcessLogRepository appends audit entries for processing attempts.
type ProcessLogRepository interface {
	Append(ctx context.Context, entry *entities.ProcessLogEntry) error
}
