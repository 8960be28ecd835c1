package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventRepository reads the append-only engagement event stream. The engine
// never writes events; only the retention purge deletes them.
type EventRepository interface {
	// Totals aggregates all events for a post, split by kind and
	// authentication.
	Totals(ctx context.Context, postID uuid.UUID) (EngagementTotals, error)
	// WindowCounts returns anonymous and authenticated event counts since the
	// given instant.
	WindowCounts(ctx context.Context, postID uuid.UUID, since time.Time) (anon, auth int64, err error)
	// EventTimes returns event timestamps since the given instant, ordered
	// ascending.
	EventTimes(ctx context.Context, postID uuid.UUID, since time.Time) ([]time.Time, error)
	// PurgeOlderThan deletes events past the retention window.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostRepository reads replicated post metadata.
type PostRepository interface {
	Get(ctx context.Context, postID uuid.UUID) (*Post, error)
}

// VisibilityRepository owns post_visibility rows. All mutations are
// recompute-and-overwrite or compare-and-swap so overlapping passes stay safe.
type VisibilityRepository interface {
	Get(ctx context.Context, postID uuid.UUID) (*PostVisibilityState, error)
	// ListActive returns states that can still change tier (not expired, not
	// frozen).
	ListActive(ctx context.Context) ([]PostVisibilityState, error)
	// ListUnexpired returns states the decay pass still touches, including
	// frozen ones.
	ListUnexpired(ctx context.Context) ([]PostVisibilityState, error)
	// CreateMissing inserts a seed-tier state for every post without one.
	CreateMissing(ctx context.Context) (int64, error)
	// UpdateScore overwrites the EQS/EV fields from one scoring run.
	UpdateScore(ctx context.Context, score EVScore) error
	// UpdateDecay overwrites the decayed visibility score and expired flag.
	UpdateDecay(ctx context.Context, postID uuid.UUID, visibility float64, expired bool) error
	// AdvanceTier moves a post from one tier to the next. The update is
	// guarded on the current tier; false means another pass got there first
	// or the post became expired or frozen.
	AdvanceTier(ctx context.Context, postID uuid.UUID, from, to Tier, at time.Time) (bool, error)
	// Freeze marks a post frozen. One-way; false means it was already frozen.
	Freeze(ctx context.Context, postID uuid.UUID) (bool, error)
}

// SeedRepository owns seed_distributions rows, guarded by the
// (post_id, user_id) uniqueness invariant.
type SeedRepository interface {
	HasDistribution(ctx context.Context, postID uuid.UUID) (bool, error)
	// InsertBatch inserts records, silently skipping pairs that already
	// exist. Returns the number actually inserted.
	InsertBatch(ctx context.Context, records []SeedDistributionRecord) (int64, error)
}

// TrendingGates are the eligibility thresholds for global trending placement.
type TrendingGates struct {
	MinEV         float64
	MinReputation float64
	MaxAge        time.Duration
	Limit         int
}

// TrendingRepository owns the trending queue and its archive.
type TrendingRepository interface {
	Current(ctx context.Context) ([]TrendingQueueEntry, error)
	// Candidates returns non-expired, non-frozen posts passing every gate,
	// ordered by EV descending and truncated to the gate limit.
	Candidates(ctx context.Context, gates TrendingGates, now time.Time) ([]TrendingCandidate, error)
	// Replace swaps the whole queue in a single transaction so readers never
	// observe a partial rebuild.
	Replace(ctx context.Context, entries []TrendingQueueEntry) error
	Archive(ctx context.Context, entries []TrendingQueueEntry, reason string, at time.Time) error
}

// ScoreHistoryRepository owns the append-only EV history the auditor scans.
type ScoreHistoryRepository interface {
	Append(ctx context.Context, sample ScoreSample) error
	Latest(ctx context.Context, postID uuid.UUID) (*ScoreSample, error)
	// CreatorAverage returns the average EV and sample count recorded for a
	// creator inside [from, to).
	CreatorAverage(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (float64, int64, error)
	// ActivePostIDs returns posts with score activity since the given
	// instant.
	ActivePostIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// FraudRepository owns the append-only fraud flag trail.
type FraudRepository interface {
	Append(ctx context.Context, flag *FraudFlag) error
	CountSince(ctx context.Context, postID uuid.UUID, severity Severity, since time.Time) (int64, error)
	MarkReviewed(ctx context.Context, flagID uuid.UUID, at time.Time) error
}
