package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

// TrendingPublisher pushes the rebuilt queue to the read-side cache. It is
// optional; a nil publisher skips the step.
type TrendingPublisher interface {
	PublishTrending(ctx context.Context, entries []domain.TrendingQueueEntry) error
}

// TrendingBuilder rebuilds the global top-N queue from scratch each cycle.
// The queue is swapped atomically, never patched.
type TrendingBuilder struct {
	trending  domain.TrendingRepository
	vis       domain.VisibilityRepository
	publisher TrendingPublisher
	gates     domain.TrendingGates
	clock     clockwork.Clock
}

func NewTrendingBuilder(trending domain.TrendingRepository, vis domain.VisibilityRepository, publisher TrendingPublisher, gates domain.TrendingGates, clock clockwork.Clock) *TrendingBuilder {
	return &TrendingBuilder{trending: trending, vis: vis, publisher: publisher, gates: gates, clock: clock}
}

// Rebuild selects every post passing the trending gates, ranks by EV
// descending, truncates to the configured size, and swaps the queue. It also
// diffs against the previous queue and archives entries that fell off due to
// expiration rather than being outranked.
func (b *TrendingBuilder) Rebuild(ctx context.Context) (domain.RebuildResult, error) {
	now := b.clock.Now()

	prev, err := b.trending.Current(ctx)
	if err != nil {
		return domain.RebuildResult{}, fmt.Errorf("read current trending queue: %w", err)
	}

	candidates, err := b.trending.Candidates(ctx, b.gates, now)
	if err != nil {
		return domain.RebuildResult{}, fmt.Errorf("select trending candidates: %w", err)
	}
	if b.gates.Limit > 0 && len(candidates) > b.gates.Limit {
		candidates = candidates[:b.gates.Limit]
	}

	prevEntered := make(map[uuid.UUID]domain.TrendingQueueEntry, len(prev))
	for _, e := range prev {
		prevEntered[e.PostID] = e
	}

	entries := make([]domain.TrendingQueueEntry, len(candidates))
	for i, c := range candidates {
		enteredAt := now
		if old, ok := prevEntered[c.PostID]; ok {
			enteredAt = old.EnteredAt
		}
		entries[i] = domain.TrendingQueueEntry{
			PostID:    c.PostID,
			Rank:      i + 1,
			EVScore:   c.EVScore,
			EnteredAt: enteredAt,
		}
	}

	diff := diffQueues(prev, entries)

	if err := b.trending.Replace(ctx, entries); err != nil {
		return domain.RebuildResult{}, fmt.Errorf("swap trending queue: %w", err)
	}

	// Exits are archived only after the swap lands; a retried rebuild diffs
	// against the new queue and finds no exits to record twice.
	archived, err := b.archiveExpired(ctx, prevEntered, diff.Exited, now)
	if err != nil {
		return domain.RebuildResult{}, err
	}

	if b.publisher != nil {
		if err := b.publisher.PublishTrending(ctx, entries); err != nil {
			// The DB queue is the source of truth; a failed cache publish is
			// repaired by the next rebuild.
			slog.Warn("Failed to publish trending snapshot", "error", err)
		}
	}

	metrics.TrendingQueueSize.Set(float64(len(entries)))
	metrics.TrendingChurn.WithLabelValues("entered").Add(float64(len(diff.Entered)))
	metrics.TrendingChurn.WithLabelValues("exited").Add(float64(len(diff.Exited)))

	return domain.RebuildResult{
		Size:     len(entries),
		Added:    len(diff.Entered),
		Diff:     diff,
		Archived: archived,
	}, nil
}

// archiveExpired records exited entries whose post is expired (as opposed to
// outranked) into the historical table.
func (b *TrendingBuilder) archiveExpired(ctx context.Context, prev map[uuid.UUID]domain.TrendingQueueEntry, exited []uuid.UUID, now time.Time) (int, error) {
	var expired []domain.TrendingQueueEntry
	for _, postID := range exited {
		state, err := b.vis.Get(ctx, postID)
		if err != nil {
			return 0, fmt.Errorf("check exited post %s: %w", postID, err)
		}
		if state.Expired {
			expired = append(expired, prev[postID])
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}
	if err := b.trending.Archive(ctx, expired, domain.ArchiveReasonExpired, now); err != nil {
		return 0, fmt.Errorf("archive expired trending entries: %w", err)
	}
	return len(expired), nil
}

func diffQueues(prev, next []domain.TrendingQueueEntry) domain.QueueDiff {
	prevRank := make(map[uuid.UUID]int, len(prev))
	for _, e := range prev {
		prevRank[e.PostID] = e.Rank
	}
	nextRank := make(map[uuid.UUID]int, len(next))
	for _, e := range next {
		nextRank[e.PostID] = e.Rank
	}

	var diff domain.QueueDiff
	for _, e := range next {
		old, ok := prevRank[e.PostID]
		if !ok {
			diff.Entered = append(diff.Entered, e.PostID)
		} else if old != e.Rank {
			diff.Moved = append(diff.Moved, domain.RankDelta{PostID: e.PostID, OldRank: old, NewRank: e.Rank})
		}
	}
	for _, e := range prev {
		if _, ok := nextRank[e.PostID]; !ok {
			diff.Exited = append(diff.Exited, e.PostID)
		}
	}
	return diff
}
