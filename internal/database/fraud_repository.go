package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedpulse/internal/domain"
)

// FraudRepo implements domain.FraudRepository. Flags are append-only; the
// only update ever issued is the review annotation.
type FraudRepo struct {
	pool *pgxpool.Pool
}

func NewFraudRepo(pool *pgxpool.Pool) *FraudRepo {
	return &FraudRepo{pool: pool}
}

func (r *FraudRepo) Append(ctx context.Context, flag *domain.FraudFlag) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fraud_flags (post_id, flag_type, severity, metric_value, threshold_value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, flag.PostID, string(flag.FlagType), string(flag.Severity), flag.MetricValue, flag.ThresholdValue, flag.CreatedAt).Scan(&flag.ID)
	if err != nil {
		return fmt.Errorf("failed to append fraud flag: %w", err)
	}
	return nil
}

func (r *FraudRepo) CountSince(ctx context.Context, postID uuid.UUID, severity domain.Severity, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM fraud_flags
		WHERE post_id = $1 AND severity = $2 AND created_at >= $3
	`, postID, string(severity), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fraud flags: %w", err)
	}
	return count, nil
}

func (r *FraudRepo) MarkReviewed(ctx context.Context, flagID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE fraud_flags
		SET reviewed_at = $2
		WHERE id = $1 AND reviewed_at IS NULL
	`, flagID, at)
	if err != nil {
		return fmt.Errorf("failed to mark fraud flag reviewed: %w", err)
	}
	return nil
}
