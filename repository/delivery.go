package repository

import (
	"context"
	"time"

	"github.com/minicrm/backend/domain"
)

// DeliveryRepository owns delivery records. Terminal status writes go through
// SetStatus so they stay idempotent: a record leaves QUEUED exactly once.
type DeliveryRepository interface {
	// CreateBatch inserts the records and one PENDING queue item per record.
	CreateBatch(ctx context.Context, records []domain.DeliveryRecord) error
	GetRecord(ctx context.Context, id string) (*domain.DeliveryRecord, error)
	MarkAttempt(ctx context.Context, id string) error
	// SetStatus bulk-writes the terminal status and timestamp, touching only
	// records still QUEUED, and returns the ids actually transitioned.
	SetStatus(ctx context.Context, ids []string, status domain.DeliveryStatus, at time.Time) ([]string, error)
	StatusCounts(ctx context.Context, campaignID string) (map[domain.DeliveryStatus]int, error)
}

// QueueRepository is the durable work queue over delivery queue items.
// Claim/Complete/Fail/Release mirror dequeue/ack/nack so a broker-backed
// implementation can replace the polling one without logic changes.
type QueueRepository interface {
	// Claim atomically moves up to limit of the oldest PENDING items to
	// PROCESSING and increments their processing attempts.
	Claim(ctx context.Context, limit int) ([]domain.QueueItem, error)
	Complete(ctx context.Context, id string) error
	Fail(ctx context.Context, id string) error
	// Release returns a claimed item to PENDING for a later poll.
	Release(ctx context.Context, id string) error
	// ReleaseStale returns items stuck PROCESSING longer than the lease to
	// PENDING and reports how many were reclaimed.
	ReleaseStale(ctx context.Context, lease time.Duration) (int, error)
}

// BatchRepository owns batch update accumulators.
type BatchRepository interface {
	// Append adds the record id to an open PENDING batch with the same
	// outcome and size below capacity, or starts a new batch.
	Append(ctx context.Context, recordID string, outcome domain.DeliveryStatus, capacity int) error
	// Claim atomically moves up to limit PENDING batches to PROCESSING.
	Claim(ctx context.Context, limit int) ([]domain.BatchUpdate, error)
	// Complete performs the PROCESSING -> COMPLETED transition. The returned
	// flag reports whether this caller won it; it fences the campaign
	// counter increment so it happens once per batch.
	Complete(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}
