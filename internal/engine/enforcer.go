package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

// Enforcer is the policy that turns accumulated fraud flags into a
// visibility freeze. It is deliberately separate from the Auditor so the
// auditor itself stays read-only over visibility state.
type Enforcer struct {
	fraud     domain.FraudRepository
	vis       domain.VisibilityRepository
	threshold int64
	window    time.Duration
	clock     clockwork.Clock
}

func NewEnforcer(fraud domain.FraudRepository, vis domain.VisibilityRepository, threshold int64, window time.Duration, clock clockwork.Clock) *Enforcer {
	return &Enforcer{fraud: fraud, vis: vis, threshold: threshold, window: window, clock: clock}
}

// EnforcePost freezes the post when its high-severity flag count inside the
// window reaches the threshold. The freeze is one-way; a post already frozen
// reports false.
func (e *Enforcer) EnforcePost(ctx context.Context, postID uuid.UUID) (bool, error) {
	now := e.clock.Now()
	count, err := e.fraud.CountSince(ctx, postID, domain.SeverityHigh, now.Add(-e.window))
	if err != nil {
		return false, fmt.Errorf("count high-severity flags for post %s: %w", postID, err)
	}
	if count < e.threshold {
		return false, nil
	}

	frozen, err := e.vis.Freeze(ctx, postID)
	if err != nil {
		return false, fmt.Errorf("freeze post %s: %w", postID, err)
	}
	if frozen {
		metrics.PostsFrozen.Inc()
	}
	return frozen, nil
}
