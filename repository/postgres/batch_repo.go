package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

type batchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository returns a Postgres-backed implementation of BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) repository.BatchRepository {
	return &batchRepository{pool: pool}
}

// Append grows an open batch with the same outcome below capacity by one
// record id in a single conditional update, or starts a new batch when no
// open batch qualifies. Two concurrent appends can race into two new
// batches; that only splits the bulk write, it never loses an outcome.
func (r *batchRepository) Append(ctx context.Context, recordID string, outcome domain.DeliveryStatus, capacity int) error {
	if capacity <= 0 {
		capacity = domain.BatchCapacity
	}

	const appendQuery = `
	UPDATE batch_updates
	SET record_ids = array_append(record_ids, $1),
		size = size + 1
	WHERE id = (
		SELECT id FROM batch_updates
		WHERE status = 'PENDING' AND outcome = $2 AND size < $3
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	`
	tag, err := r.pool.Exec(ctx, appendQuery, recordID, outcome, capacity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	const insertQuery = `
	INSERT INTO batch_updates (id, record_ids, size, outcome, status)
	VALUES ($1, ARRAY[$2]::text[], 1, $3, 'PENDING')
	`
	_, err = r.pool.Exec(ctx, insertQuery, uuid.NewString(), recordID, outcome)
	return err
}

func (r *batchRepository) Claim(ctx context.Context, limit int) ([]domain.BatchUpdate, error) {
	if limit <= 0 {
		return nil, nil
	}

	const query = `
	UPDATE batch_updates
	SET status = 'PROCESSING'
	WHERE id IN (
		SELECT id FROM batch_updates
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING id, record_ids, size, outcome, status, created_at
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []domain.BatchUpdate
	for rows.Next() {
		var batch domain.BatchUpdate
		if err := rows.Scan(
			&batch.ID,
			&batch.RecordIDs,
			&batch.Size,
			&batch.Outcome,
			&batch.Status,
			&batch.CreatedAt,
		); err != nil {
			return nil, err
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// Complete reports whether this caller performed the PROCESSING -> COMPLETED
// transition. Exactly one caller per batch sees true, which fences the
// campaign counter increment.
func (r *batchRepository) Complete(ctx context.Context, id string) (bool, error) {
	const query = `
	UPDATE batch_updates
	SET status = 'COMPLETED'
	WHERE id = $1 AND status = 'PROCESSING'
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *batchRepository) Release(ctx context.Context, id string) error {
	const query = `
	UPDATE batch_updates
	SET status = 'PENDING'
	WHERE id = $1 AND status = 'PROCESSING'
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
