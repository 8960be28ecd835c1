package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

const (
	// decayLambda gives a half-life of 24 hours (e^-0.693 ≈ 0.5).
	decayLambda   = 0.693
	decayHalfLife = 24 * time.Hour
	expiryCutoff  = 48 * time.Hour
	maxVisibility = 100.0
)

// VisibilityScore is the pure decay curve: 100 at creation, ~50 at 24h,
// ~25 at 48h. It depends only on created_at and the current instant, so it
// is safe to recompute unconditionally on every pass.
func VisibilityScore(createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return maxVisibility * math.Exp(-decayLambda*hours/decayHalfLife.Hours())
}

// IsExpired reports whether a post is past the 48h expiry cutoff.
func IsExpired(createdAt, now time.Time) bool {
	return now.Sub(createdAt) > expiryCutoff
}

// Decayer applies the decay curve and marks posts expired. Expiration is
// one-way; the repository never clears the flag.
type Decayer struct {
	vis   domain.VisibilityRepository
	clock clockwork.Clock
}

func NewDecayer(vis domain.VisibilityRepository, clock clockwork.Clock) *Decayer {
	return &Decayer{vis: vis, clock: clock}
}

// Decay recomputes and persists the visibility score for one post. It
// returns the new score and whether the post is now expired.
func (d *Decayer) Decay(ctx context.Context, state domain.PostVisibilityState) (float64, bool, error) {
	now := d.clock.Now()
	score := VisibilityScore(state.CreatedAt, now)
	expired := IsExpired(state.CreatedAt, now)

	if err := d.vis.UpdateDecay(ctx, state.PostID, score, expired); err != nil {
		return 0, false, fmt.Errorf("persist decay for post %s: %w", state.PostID, err)
	}

	if expired && !state.Expired {
		metrics.PostsExpired.Inc()
	}
	return score, expired, nil
}
