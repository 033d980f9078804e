package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

type segmentRepository struct {
	pool *pgxpool.Pool
}

// NewSegmentRepository returns a Postgres-backed implementation of SegmentRepository.
func NewSegmentRepository(pool *pgxpool.Pool) repository.SegmentRepository {
	return &segmentRepository{pool: pool}
}

func (r *segmentRepository) GetByID(ctx context.Context, id string) (*domain.Segment, error) {
	const query = `SELECT id, name, rules, created_at FROM segments WHERE id = $1`

	var seg domain.Segment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&seg.ID,
		&seg.Name,
		&seg.Rules,
		&seg.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSegmentNotFound
		}
		return nil, err
	}
	return &seg, nil
}

func (r *segmentRepository) Create(ctx context.Context, seg *domain.Segment) (*domain.Segment, error) {
	if seg == nil || seg.Name == "" || len(seg.Rules) == 0 {
		return nil, domain.ErrInvalidPayload
	}
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO segments (id, name, rules)
	VALUES ($1, $2, $3)
	RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query, seg.ID, seg.Name, []byte(seg.Rules)).Scan(&seg.CreatedAt); err != nil {
		return nil, err
	}
	return seg, nil
}

func (r *segmentRepository) List(ctx context.Context, limit, offset int) ([]domain.Segment, error) {
	const query = `
	SELECT id, name, rules, created_at
	FROM segments
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []domain.Segment
	for rows.Next() {
		var seg domain.Segment
		if err := rows.Scan(&seg.ID, &seg.Name, &seg.Rules, &seg.CreatedAt); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
