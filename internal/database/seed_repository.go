package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedpulse/internal/domain"
)

// SeedRepo implements domain.SeedRepository. The (post_id, user_id) primary
// key is the uniqueness invariant that makes distribution idempotent.
type SeedRepo struct {
	pool *pgxpool.Pool
}

func NewSeedRepo(pool *pgxpool.Pool) *SeedRepo {
	return &SeedRepo{pool: pool}
}

func (r *SeedRepo) HasDistribution(ctx context.Context, postID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM seed_distributions WHERE post_id = $1)
	`, postID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check seed distribution: %w", err)
	}
	return exists, nil
}

func (r *SeedRepo) InsertBatch(ctx context.Context, records []domain.SeedDistributionRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO seed_distributions (post_id, user_id, distributed_at, impressed)
			VALUES ($1, $2, $3, FALSE)
			ON CONFLICT (post_id, user_id) DO NOTHING
		`, rec.PostID, rec.UserID, rec.DistributedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range records {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert seed record: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
