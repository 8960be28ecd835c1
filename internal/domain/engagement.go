package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a raw engagement event.
type EventKind string

const (
	EventView    EventKind = "view"
	EventLike    EventKind = "like"
	EventComment EventKind = "comment"
	EventShare   EventKind = "share"
	EventSpark   EventKind = "spark"
)

// EQS weights per event kind. Views count toward activity but carry no
// quality weight. Sparks are weighted by their amount, not their count.
const (
	WeightLike    = 1.0
	WeightComment = 3.0
	WeightShare   = 10.0
	WeightSpark   = 15.0
)

// EngagementEvent is an immutable engagement record produced by the external
// engagement API. ActorID is nil for anonymous events.
type EngagementEvent struct {
	ID              uuid.UUID
	PostID          uuid.UUID
	ActorID         *uuid.UUID
	Kind            EventKind
	IsAuthenticated bool
	Amount          float64
	OccurredAt      time.Time
}

// EngagementTotals holds per-kind sums for one post, split by authentication,
// as aggregated by the event store.
type EngagementTotals struct {
	PostID uuid.UUID

	AuthLikes    int64
	AuthComments int64
	AuthShares   int64
	AuthViews    int64
	AuthSparks   float64 // sum of amounts

	AnonLikes    int64
	AnonComments int64
	AnonShares   int64
	AnonViews    int64
	AnonSparks   float64
}

// AuthEQS returns the weighted quality score of authenticated engagement.
func (t EngagementTotals) AuthEQS() float64 {
	return float64(t.AuthLikes)*WeightLike +
		float64(t.AuthComments)*WeightComment +
		float64(t.AuthShares)*WeightShare +
		t.AuthSparks*WeightSpark
}

// AnonEQS returns the weighted quality score of anonymous engagement.
func (t EngagementTotals) AnonEQS() float64 {
	return float64(t.AnonLikes)*WeightLike +
		float64(t.AnonComments)*WeightComment +
		float64(t.AnonShares)*WeightShare +
		t.AnonSparks*WeightSpark
}

// EQS returns the combined weighted quality score.
func (t EngagementTotals) EQS() float64 {
	return t.AuthEQS() + t.AnonEQS()
}

// EVScore is the result of one scoring run for a post.
type EVScore struct {
	PostID     uuid.UUID
	EQS        float64
	AuthEQS    float64
	AnonEQS    float64
	EV         float64
	ComputedAt time.Time
}

// ScoreSample is one appended entry of the per-post EV history the auditor
// scans.
type ScoreSample struct {
	PostID     uuid.UUID
	CreatorID  uuid.UUID
	EV         float64
	EQS        float64
	RecordedAt time.Time
}
