package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"feedpulse/internal/domain"
)

// TrendingRepo implements domain.TrendingRepository. Replace swaps the whole
// queue inside one transaction; readers never see a partial rebuild.
type TrendingRepo struct {
	pool *pgxpool.Pool
}

func NewTrendingRepo(pool *pgxpool.Pool) *TrendingRepo {
	return &TrendingRepo{pool: pool}
}

func (r *TrendingRepo) Current(ctx context.Context) ([]domain.TrendingQueueEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT post_id, rank, ev_score, entered_at
		FROM trending_queue
		ORDER BY rank ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending queue: %w", err)
	}
	defer rows.Close()

	var entries []domain.TrendingQueueEntry
	for rows.Next() {
		var e domain.TrendingQueueEntry
		if err := rows.Scan(&e.PostID, &e.Rank, &e.EVScore, &e.EnteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan trending entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *TrendingRepo) Candidates(ctx context.Context, gates domain.TrendingGates, now time.Time) ([]domain.TrendingCandidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT v.post_id, v.creator_id, v.ev_score, v.created_at, c.reputation_score, c.verified
		FROM post_visibility v
		JOIN creators c ON c.id = v.creator_id
		WHERE NOT v.expired AND NOT v.frozen
		  AND v.ev_score > $1
		  AND c.reputation_score > $2
		  AND c.verified
		  AND v.created_at > $3
		ORDER BY v.ev_score DESC
		LIMIT $4
	`, gates.MinEV, gates.MinReputation, now.Add(-gates.MaxAge), gates.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.TrendingCandidate
	for rows.Next() {
		var c domain.TrendingCandidate
		if err := rows.Scan(&c.PostID, &c.CreatorID, &c.EVScore, &c.CreatedAt, &c.ReputationScore, &c.Verified); err != nil {
			return nil, fmt.Errorf("failed to scan trending candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *TrendingRepo) Replace(ctx context.Context, entries []domain.TrendingQueueEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin trending swap: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM trending_queue`); err != nil {
		return fmt.Errorf("failed to clear trending queue: %w", err)
	}

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO trending_queue (rank, post_id, ev_score, entered_at)
			VALUES ($1, $2, $3, $4)
		`, e.Rank, e.PostID, e.EVScore, e.EnteredAt)
		if err != nil {
			return fmt.Errorf("failed to insert trending entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit trending swap: %w", err)
	}
	return nil
}

func (r *TrendingRepo) Archive(ctx context.Context, entries []domain.TrendingQueueEntry, reason string, at time.Time) error {
	for _, e := range entries {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO trending_archive (post_id, rank, ev_score, entered_at, archived_at, reason)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.PostID, e.Rank, e.EVScore, e.EnteredAt, at, reason)
		if err != nil {
			return fmt.Errorf("failed to archive trending entry: %w", err)
		}
	}
	return nil
}
