package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeedDistributionRecord marks one seed impression target. The (PostID,
// UserID) pair is unique, so repeated distribution runs never produce
// duplicates.
type SeedDistributionRecord struct {
	PostID        uuid.UUID
	UserID        uuid.UUID
	DistributedAt time.Time
	Impressed     bool
}

// SeedResult summarises one seed distribution run for a post.
type SeedResult struct {
	PostID      uuid.UUID
	Genre       string
	Target      int // size of the sampled audience
	Distributed int // records actually inserted this run
	Candidates  int // size of the candidate set before sampling
	Skipped     bool // post already had a completed seed round
	LowCoverage bool // candidate set smaller than the configured floor
}
