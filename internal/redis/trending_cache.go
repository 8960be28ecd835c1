package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"feedpulse/internal/domain"
)

const (
	trendingKey = "trending:queue"
	trendingTTL = 2 * time.Hour
)

// ErrSnapshotMissing is returned when no trending snapshot has been published
// yet (or it expired). Callers fall back to the Postgres queue.
var ErrSnapshotMissing = errors.New("trending snapshot missing")

// TrendingCache publishes the rebuilt trending queue as a single JSON
// snapshot. The whole queue is written in one SET, so readers never observe a
// partially swapped queue.
type TrendingCache struct {
	rdb goredis.Cmdable
}

func NewTrendingCache(rdb goredis.Cmdable) *TrendingCache {
	return &TrendingCache{rdb: rdb}
}

type trendingSnapshot struct {
	PublishedAt time.Time       `json:"published_at"`
	Entries     []trendingEntry `json:"entries"`
}

type trendingEntry struct {
	PostID    string    `json:"post_id"`
	Rank      int       `json:"rank"`
	EVScore   float64   `json:"ev_score"`
	EnteredAt time.Time `json:"entered_at"`
}

// PublishTrending replaces the cached snapshot with the given queue.
func (c *TrendingCache) PublishTrending(ctx context.Context, entries []domain.TrendingQueueEntry) error {
	snapshot := trendingSnapshot{
		PublishedAt: time.Now().UTC(),
		Entries:     make([]trendingEntry, len(entries)),
	}
	for i, e := range entries {
		snapshot.Entries[i] = trendingEntry{
			PostID:    e.PostID.String(),
			Rank:      e.Rank,
			EVScore:   e.EVScore,
			EnteredAt: e.EnteredAt,
		}
	}

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal trending snapshot: %w", err)
	}

	if err := c.rdb.Set(ctx, trendingKey, encoded, trendingTTL).Err(); err != nil {
		return fmt.Errorf("failed to publish trending snapshot: %w", err)
	}
	return nil
}

// Ping verifies the underlying Redis connection. The cache is the read
// API's only Redis dependency, so it carries the health check too.
func (c *TrendingCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetTrending reads the cached snapshot.
func (c *TrendingCache) GetTrending(ctx context.Context) ([]domain.TrendingQueueEntry, error) {
	data, err := c.rdb.Get(ctx, trendingKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trending snapshot: %w", err)
	}

	var snapshot trendingSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trending snapshot: %w", err)
	}

	entries := make([]domain.TrendingQueueEntry, len(snapshot.Entries))
	for i, e := range snapshot.Entries {
		postID, err := uuid.Parse(e.PostID)
		if err != nil {
			return nil, fmt.Errorf("corrupt trending snapshot entry at rank %d: %w", e.Rank, err)
		}
		entries[i] = domain.TrendingQueueEntry{
			PostID:    postID,
			Rank:      e.Rank,
			EVScore:   e.EVScore,
			EnteredAt: e.EnteredAt,
		}
	}
	return entries, nil
}
