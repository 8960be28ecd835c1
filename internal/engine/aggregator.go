package engine

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
)

// Aggregator converts raw engagement events into the weighted EV score.
// ComputeScore recomputes from the full event set every run, so calling it
// repeatedly (or concurrently for the same post) always converges to the
// same value.
type Aggregator struct {
	events  domain.EventRepository
	vis     domain.VisibilityRepository
	history domain.ScoreHistoryRepository
	clock   clockwork.Clock
}

func NewAggregator(events domain.EventRepository, vis domain.VisibilityRepository, history domain.ScoreHistoryRepository, clock clockwork.Clock) *Aggregator {
	return &Aggregator{events: events, vis: vis, history: history, clock: clock}
}

// ComputeScore aggregates all events for the post, derives EQS and EV, and
// persists both onto the visibility state and the score history. A post with
// no events yields EV=0 and is simply never promoted.
func (a *Aggregator) ComputeScore(ctx context.Context, state domain.PostVisibilityState) (domain.EVScore, error) {
	totals, err := a.events.Totals(ctx, state.PostID)
	if err != nil {
		return domain.EVScore{}, fmt.Errorf("aggregate events for post %s: %w", state.PostID, err)
	}

	now := a.clock.Now()
	score := domain.EVScore{
		PostID:     state.PostID,
		AuthEQS:    totals.AuthEQS(),
		AnonEQS:    totals.AnonEQS(),
		EQS:        totals.EQS(),
		ComputedAt: now,
	}

	// Posts younger than one second keep EV = EQS to avoid division blow-up.
	ageSeconds := now.Sub(state.CreatedAt).Seconds()
	if ageSeconds < 1 {
		score.EV = score.EQS
	} else {
		score.EV = score.EQS / ageSeconds
	}

	if err := a.vis.UpdateScore(ctx, score); err != nil {
		return domain.EVScore{}, fmt.Errorf("persist score for post %s: %w", state.PostID, err)
	}

	sample := domain.ScoreSample{
		PostID:     state.PostID,
		CreatorID:  state.CreatorID,
		EV:         score.EV,
		EQS:        score.EQS,
		RecordedAt: now,
	}
	if err := a.history.Append(ctx, sample); err != nil {
		return domain.EVScore{}, fmt.Errorf("append score history for post %s: %w", state.PostID, err)
	}

	return score, nil
}
