package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"feedpulse/internal/domain"
)

// EventRepo implements domain.EventRepository. The engine only ever reads
// engagement events; the single destructive operation is the retention purge.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Totals(ctx context.Context, postID uuid.UUID) (domain.EngagementTotals, error) {
	totals := domain.EngagementTotals{PostID: postID}
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'like'    AND is_authenticated),
			COUNT(*) FILTER (WHERE kind = 'comment' AND is_authenticated),
			COUNT(*) FILTER (WHERE kind = 'share'   AND is_authenticated),
			COUNT(*) FILTER (WHERE kind = 'view'    AND is_authenticated),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'spark' AND is_authenticated), 0),
			COUNT(*) FILTER (WHERE kind = 'like'    AND NOT is_authenticated),
			COUNT(*) FILTER (WHERE kind = 'comment' AND NOT is_authenticated),
			COUNT(*) FILTER (WHERE kind = 'share'   AND NOT is_authenticated),
			COUNT(*) FILTER (WHERE kind = 'view'    AND NOT is_authenticated),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'spark' AND NOT is_authenticated), 0)
		FROM engagement_events
		WHERE post_id = $1
	`, postID).Scan(
		&totals.AuthLikes, &totals.AuthComments, &totals.AuthShares, &totals.AuthViews, &totals.AuthSparks,
		&totals.AnonLikes, &totals.AnonComments, &totals.AnonShares, &totals.AnonViews, &totals.AnonSparks,
	)
	if err != nil {
		return domain.EngagementTotals{}, fmt.Errorf("failed to aggregate engagement totals: %w", err)
	}
	return totals, nil
}

func (r *EventRepo) WindowCounts(ctx context.Context, postID uuid.UUID, since time.Time) (int64, int64, error) {
	var anon, auth int64
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE NOT is_authenticated),
			COUNT(*) FILTER (WHERE is_authenticated)
		FROM engagement_events
		WHERE post_id = $1 AND occurred_at >= $2
	`, postID, since).Scan(&anon, &auth)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count windowed events: %w", err)
	}
	return anon, auth, nil
}

func (r *EventRepo) EventTimes(ctx context.Context, postID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT occurred_at
		FROM engagement_events
		WHERE post_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at ASC
	`, postID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query event times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan event time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *EventRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM engagement_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge engagement events: %w", err)
	}
	return tag.RowsAffected(), nil
}
