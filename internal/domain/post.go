package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post is the replicated post metadata the engine reads. The engine never
// writes to posts.
type Post struct {
	ID               uuid.UUID
	CreatorID        uuid.UUID
	Genre            string
	Promoted         bool
	PromotionLabeled bool
	CreatedAt        time.Time
}

// PostVisibilityState is the engine-owned row tracking how widely a post is
// shown. It is mutated exclusively by the scoring, decay, and tier passes.
type PostVisibilityState struct {
	PostID          uuid.UUID
	CreatorID       uuid.UUID
	Tier            Tier
	AuthEQS         float64
	AnonEQS         float64
	EVScore         float64
	VisibilityScore float64
	Expired         bool
	Frozen          bool
	CreatedAt       time.Time
	TierEnteredAt   time.Time
	UpdatedAt       time.Time
}

// EffectiveTier folds the absorbing overlays into the reported tier: frozen
// wins over expired, expired over the stored progression tier.
func (s PostVisibilityState) EffectiveTier() Tier {
	if s.Frozen {
		return TierFrozen
	}
	if s.Expired {
		return TierExpired
	}
	return s.Tier
}

// Promotable reports whether the post may still advance tiers.
func (s PostVisibilityState) Promotable() bool {
	return !s.Expired && !s.Frozen && !s.Tier.Terminal()
}

// TierTransition records one applied tier change for the run summary.
type TierTransition struct {
	PostID uuid.UUID
	From   Tier
	To     Tier
	At     time.Time
}
