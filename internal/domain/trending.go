package domain

import (
	"time"

	"github.com/google/uuid"
)

// TrendingQueueEntry is one ranked slot of the global trending queue. The
// queue is rebuilt wholesale each cycle, never patched.
type TrendingQueueEntry struct {
	PostID    uuid.UUID
	Rank      int
	EVScore   float64
	EnteredAt time.Time
}

// TrendingCandidate is a post passing the trending gates, joined with the
// creator fields the gates require.
type TrendingCandidate struct {
	PostID          uuid.UUID
	CreatorID       uuid.UUID
	EVScore         float64
	CreatedAt       time.Time
	ReputationScore float64
	Verified        bool
}

// ArchiveReasonExpired marks queue entries that fell off because the post
// expired rather than being outranked.
const ArchiveReasonExpired = "expired"

// QueueDiff describes how one rebuild changed the queue.
type QueueDiff struct {
	Entered []uuid.UUID
	Exited  []uuid.UUID
	Moved   []RankDelta
}

// RankDelta is a post that stayed in the queue but changed position.
type RankDelta struct {
	PostID  uuid.UUID
	OldRank int
	NewRank int
}

// RebuildResult summarises one trending rebuild.
type RebuildResult struct {
	Size     int
	Added    int
	Diff     QueueDiff
	Archived int
}
