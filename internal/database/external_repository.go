package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedpulse/internal/domain"
)

// ReputationRepo implements domain.ReputationService over the replicated
// creators table maintained by the identity service.
type ReputationRepo struct {
	pool *pgxpool.Pool
}

func NewReputationRepo(pool *pgxpool.Pool) *ReputationRepo {
	return &ReputationRepo{pool: pool}
}

func (r *ReputationRepo) Creator(ctx context.Context, creatorID uuid.UUID) (*domain.Creator, error) {
	var c domain.Creator
	c.ID = creatorID
	err := r.pool.QueryRow(ctx, `
		SELECT reputation_score, verified
		FROM creators
		WHERE id = $1
	`, creatorID).Scan(&c.ReputationScore, &c.Verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCreatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	return &c, nil
}

// AffinityRepo implements domain.AffinityService over the replicated
// genre_follows and creator_follows tables.
type AffinityRepo struct {
	pool *pgxpool.Pool
}

func NewAffinityRepo(pool *pgxpool.Pool) *AffinityRepo {
	return &AffinityRepo{pool: pool}
}

func (r *AffinityRepo) SeedCandidates(ctx context.Context, genre string, creatorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT gf.user_id
		FROM genre_follows gf
		WHERE gf.genre = $1
		  AND NOT EXISTS (
			SELECT 1 FROM creator_follows cf
			WHERE cf.user_id = gf.user_id AND cf.creator_id = $2
		  )
	`, genre, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query seed candidates: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
