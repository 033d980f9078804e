package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository returns a Postgres-backed implementation of QueueRepository.
func NewQueueRepository(pool *pgxpool.Pool) repository.QueueRepository {
	return &queueRepository{pool: pool}
}

// Claim selects the oldest PENDING items and transitions them to PROCESSING
// in a single statement. SKIP LOCKED keeps concurrent processor instances
// from claiming the same items.
func (r *queueRepository) Claim(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}

	const query = `
	UPDATE delivery_queue
	SET status = 'PROCESSING',
		processing_attempts = processing_attempts + 1,
		last_processed_at = NOW()
	WHERE id IN (
		SELECT id FROM delivery_queue
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, record_id, status, processing_attempts, last_processed_at, created_at
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.QueueItem
	for rows.Next() {
		var item domain.QueueItem
		if err := rows.Scan(
			&item.ID,
			&item.RecordID,
			&item.Status,
			&item.ProcessingAttempts,
			&item.LastProcessedAt,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *queueRepository) Complete(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.QueueCompleted)
}

func (r *queueRepository) Fail(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.QueueFailed)
}

func (r *queueRepository) Release(ctx context.Context, id string) error {
	const query = `
	UPDATE delivery_queue
	SET status = 'PENDING'
	WHERE id = $1 AND status = 'PROCESSING'
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQueueItemNotFound
	}
	return nil
}

func (r *queueRepository) ReleaseStale(ctx context.Context, lease time.Duration) (int, error) {
	if lease <= 0 {
		return 0, nil
	}

	const query = `
	UPDATE delivery_queue
	SET status = 'PENDING'
	WHERE status = 'PROCESSING' AND last_processed_at < $1
	`
	tag, err := r.pool.Exec(ctx, query, time.Now().Add(-lease))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *queueRepository) setStatus(ctx context.Context, id string, status domain.QueueStatus) error {
	const query = `UPDATE delivery_queue SET status = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQueueItemNotFound
	}
	return nil
}
