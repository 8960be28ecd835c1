package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

// TierGates holds the promotion thresholds.
type TierGates struct {
	Tier1EV            float64
	Tier2EV            float64
	Tier3EV            float64
	Tier3MinReputation float64
	Tier3MaxAge        time.Duration
}

// TierMachine evaluates at most one forward transition per post per pass.
// Absorbing states (expired, frozen) refuse all promotions; regressions do
// not exist outside the auditor freeze.
type TierMachine struct {
	vis        domain.VisibilityRepository
	seeds      domain.SeedRepository
	reputation domain.ReputationService
	gates      TierGates
	clock      clockwork.Clock
}

func NewTierMachine(vis domain.VisibilityRepository, seeds domain.SeedRepository, reputation domain.ReputationService, gates TierGates, clock clockwork.Clock) *TierMachine {
	return &TierMachine{vis: vis, seeds: seeds, reputation: reputation, gates: gates, clock: clock}
}

// Evaluate checks the gate for the post's next tier and applies the advance
// when it passes. It returns nil when no transition fires, either because the
// post is terminal, the gate failed, or a concurrent pass advanced it first.
// ErrSeedNotCompleted is returned when a tier1 advance is blocked on an
// unfinished seed round; callers log and retry next pass.
func (m *TierMachine) Evaluate(ctx context.Context, state domain.PostVisibilityState) (*domain.TierTransition, error) {
	if !state.Promotable() {
		return nil, nil
	}

	next, ok := state.Tier.Next()
	if !ok {
		return nil, nil
	}

	pass, err := m.gateOpen(ctx, state, next)
	if err != nil {
		return nil, err
	}
	if !pass {
		return nil, nil
	}

	now := m.clock.Now()
	applied, err := m.vis.AdvanceTier(ctx, state.PostID, state.Tier, next, now)
	if err != nil {
		return nil, fmt.Errorf("advance tier for post %s: %w", state.PostID, err)
	}
	if !applied {
		// Another pass advanced (or expired/froze) the post first. A race,
		// not corruption.
		return nil, nil
	}

	metrics.TierTransitions.WithLabelValues(state.Tier.String(), next.String()).Inc()
	return &domain.TierTransition{PostID: state.PostID, From: state.Tier, To: next, At: now}, nil
}

func (m *TierMachine) gateOpen(ctx context.Context, state domain.PostVisibilityState, next domain.Tier) (bool, error) {
	switch next {
	case domain.Tier1:
		seeded, err := m.seeds.HasDistribution(ctx, state.PostID)
		if err != nil {
			return false, fmt.Errorf("check seed round for post %s: %w", state.PostID, err)
		}
		if !seeded {
			metrics.SeedNotCompletedTotal.Inc()
			return false, domain.ErrSeedNotCompleted
		}
		return state.EVScore > m.gates.Tier1EV, nil

	case domain.Tier2:
		return state.EVScore > m.gates.Tier2EV, nil

	case domain.Tier3:
		// Moneyball gates: all four required.
		if state.EVScore <= m.gates.Tier3EV {
			return false, nil
		}
		if m.clock.Now().Sub(state.CreatedAt) >= m.gates.Tier3MaxAge {
			return false, nil
		}
		creator, err := m.reputation.Creator(ctx, state.CreatorID)
		if err != nil {
			return false, fmt.Errorf("lookup creator %s: %w", state.CreatorID, err)
		}
		return creator.Verified && creator.ReputationScore > m.gates.Tier3MinReputation, nil
	}
	return false, nil
}
