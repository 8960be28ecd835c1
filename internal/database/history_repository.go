package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedpulse/internal/domain"
)

// HistoryRepo implements domain.ScoreHistoryRepository. The scoring pass
// appends one sample per run; the auditor scans the trailing window.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

func (r *HistoryRepo) Append(ctx context.Context, sample domain.ScoreSample) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO score_history (post_id, creator_id, ev, eqs, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sample.PostID, sample.CreatorID, sample.EV, sample.EQS, sample.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to append score sample: %w", err)
	}
	return nil
}

func (r *HistoryRepo) Latest(ctx context.Context, postID uuid.UUID) (*domain.ScoreSample, error) {
	var s domain.ScoreSample
	err := r.pool.QueryRow(ctx, `
		SELECT post_id, creator_id, ev, eqs, recorded_at
		FROM score_history
		WHERE post_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, postID).Scan(&s.PostID, &s.CreatorID, &s.EV, &s.EQS, &s.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest score sample: %w", err)
	}
	return &s, nil
}

func (r *HistoryRepo) CreatorAverage(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (float64, int64, error) {
	var avg float64
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(ev), 0), COUNT(*)
		FROM score_history
		WHERE creator_id = $1 AND recorded_at >= $2 AND recorded_at < $3
	`, creatorID, from, to).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute creator average EV: %w", err)
	}
	return avg, count, nil
}

func (r *HistoryRepo) ActivePostIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT post_id
		FROM score_history
		WHERE recorded_at >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active posts: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *HistoryRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM score_history WHERE recorded_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge score history: %w", err)
	}
	return tag.RowsAffected(), nil
}
