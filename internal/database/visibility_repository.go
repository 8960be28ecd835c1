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

const visibilityColumns = `post_id, creator_id, tier, eqs_auth, eqs_anon, ev_score, visibility_score, expired, frozen, created_at, tier_entered_at, updated_at`

// VisibilityRepo implements domain.VisibilityRepository. post_visibility rows
// are owned exclusively by this engine.
type VisibilityRepo struct {
	pool *pgxpool.Pool
}

func NewVisibilityRepo(pool *pgxpool.Pool) *VisibilityRepo {
	return &VisibilityRepo{pool: pool}
}

func scanVisibility(row pgx.Row) (*domain.PostVisibilityState, error) {
	var s domain.PostVisibilityState
	var tier string
	err := row.Scan(
		&s.PostID, &s.CreatorID, &tier, &s.AuthEQS, &s.AnonEQS, &s.EVScore,
		&s.VisibilityScore, &s.Expired, &s.Frozen, &s.CreatedAt, &s.TierEnteredAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Tier, err = domain.ParseTier(tier)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *VisibilityRepo) Get(ctx context.Context, postID uuid.UUID) (*domain.PostVisibilityState, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+visibilityColumns+` FROM post_visibility WHERE post_id = $1`, postID)
	s, err := scanVisibility(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrVisibilityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get visibility state: %w", err)
	}
	return s, nil
}

func (r *VisibilityRepo) list(ctx context.Context, where string) ([]domain.PostVisibilityState, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+visibilityColumns+` FROM post_visibility WHERE `+where)
	if err != nil {
		return nil, fmt.Errorf("failed to list visibility states: %w", err)
	}
	defer rows.Close()

	var states []domain.PostVisibilityState
	for rows.Next() {
		s, err := scanVisibility(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visibility state: %w", err)
		}
		states = append(states, *s)
	}
	return states, rows.Err()
}

func (r *VisibilityRepo) ListActive(ctx context.Context) ([]domain.PostVisibilityState, error) {
	return r.list(ctx, `NOT expired AND NOT frozen`)
}

func (r *VisibilityRepo) ListUnexpired(ctx context.Context) ([]domain.PostVisibilityState, error) {
	return r.list(ctx, `NOT expired`)
}

func (r *VisibilityRepo) CreateMissing(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO post_visibility (post_id, creator_id, tier, created_at, tier_entered_at, updated_at)
		SELECT p.id, p.creator_id, 'seed', p.created_at, NOW(), NOW()
		FROM posts p
		LEFT JOIN post_visibility v ON v.post_id = p.id
		WHERE v.post_id IS NULL
		ON CONFLICT (post_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to create missing visibility states: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *VisibilityRepo) UpdateScore(ctx context.Context, score domain.EVScore) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE post_visibility
		SET eqs_auth = $2, eqs_anon = $3, ev_score = $4, updated_at = NOW()
		WHERE post_id = $1
	`, score.PostID, score.AuthEQS, score.AnonEQS, score.EV)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	return nil
}

func (r *VisibilityRepo) UpdateDecay(ctx context.Context, postID uuid.UUID, visibility float64, expired bool) error {
	// expired is one-way: a later pass can never clear it.
	_, err := r.pool.Exec(ctx, `
		UPDATE post_visibility
		SET visibility_score = $2, expired = expired OR $3, updated_at = NOW()
		WHERE post_id = $1
	`, postID, visibility, expired)
	if err != nil {
		return fmt.Errorf("failed to update decay: %w", err)
	}
	return nil
}

func (r *VisibilityRepo) AdvanceTier(ctx context.Context, postID uuid.UUID, from, to domain.Tier, at time.Time) (bool, error) {
	// Guarded on the current tier so concurrent passes advance at most once.
	tag, err := r.pool.Exec(ctx, `
		UPDATE post_visibility
		SET tier = $3, tier_entered_at = $4, updated_at = NOW()
		WHERE post_id = $1 AND tier = $2 AND NOT expired AND NOT frozen
	`, postID, string(from), string(to), at)
	if err != nil {
		return false, fmt.Errorf("failed to advance tier: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *VisibilityRepo) Freeze(ctx context.Context, postID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE post_visibility
		SET frozen = TRUE, updated_at = NOW()
		WHERE post_id = $1 AND NOT frozen
	`, postID)
	if err != nil {
		return false, fmt.Errorf("failed to freeze post: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
