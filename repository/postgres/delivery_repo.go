package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

type deliveryRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryRepository returns a Postgres-backed implementation of DeliveryRepository.
func NewDeliveryRepository(pool *pgxpool.Pool) repository.DeliveryRepository {
	return &deliveryRepository{pool: pool}
}

func (r *deliveryRepository) CreateBatch(ctx context.Context, records []domain.DeliveryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertRecord = `
	INSERT INTO delivery_records (id, campaign_id, customer_id, message, status)
	VALUES ($1, $2, $3, $4, $5)
	`
	const insertQueueItem = `
	INSERT INTO delivery_queue (id, record_id, status)
	VALUES ($1, $2, 'PENDING')
	`

	batch := &pgx.Batch{}
	for i := range records {
		record := &records[i]
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.Status == "" {
			record.Status = domain.DeliveryQueued
		}
		batch.Queue(insertRecord, record.ID, record.CampaignID, record.CustomerID, record.Message, record.Status)
		batch.Queue(insertQueueItem, uuid.NewString(), record.ID)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *deliveryRepository) GetRecord(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	const query = `
	SELECT id, campaign_id, customer_id, message, status, delivery_attempts, sent_at, failed_at, created_at
	FROM delivery_records
	WHERE id = $1
	`
	var record domain.DeliveryRecord
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.CampaignID,
		&record.CustomerID,
		&record.Message,
		&record.Status,
		&record.DeliveryAttempts,
		&record.SentAt,
		&record.FailedAt,
		&record.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *deliveryRepository) MarkAttempt(ctx context.Context, id string) error {
	const query = `
	UPDATE delivery_records
	SET delivery_attempts = delivery_attempts + 1
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// SetStatus writes the terminal status only to records still QUEUED, making
// replays and duplicate outcomes no-ops. The returned ids are the records
// actually transitioned; campaign counters are credited from that set only.
func (r *deliveryRepository) SetStatus(ctx context.Context, ids []string, status domain.DeliveryStatus, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const query = `
	UPDATE delivery_records
	SET status = $2,
		sent_at = CASE WHEN $2::text = 'SENT' THEN $3 ELSE sent_at END,
		failed_at = CASE WHEN $2::text = 'FAILED' THEN $3 ELSE failed_at END
	WHERE id = ANY($1) AND status = 'QUEUED'
	RETURNING id
	`
	rows, err := r.pool.Query(ctx, query, ids, string(status), at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitioned []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		transitioned = append(transitioned, id)
	}
	return transitioned, rows.Err()
}

func (r *deliveryRepository) StatusCounts(ctx context.Context, campaignID string) (map[domain.DeliveryStatus]int, error) {
	const query = `
	SELECT status, COUNT(*)
	FROM delivery_records
	WHERE campaign_id = $1
	GROUP BY status
	`
	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DeliveryStatus]int)
	for rows.Next() {
		var (
			status domain.DeliveryStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
