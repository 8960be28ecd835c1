package domain

import (
	"context"

	"github.com/google/uuid"
)

// Creator is the slice of the external identity/reputation record the engine
// needs for trending gates.
type Creator struct {
	ID              uuid.UUID
	ReputationScore float64
	Verified        bool
}

// ReputationService reads creator reputation and verification, keyed by
// creator id. Lookups run under the configured bounded timeout.
type ReputationService interface {
	Creator(ctx context.Context, creatorID uuid.UUID) (*Creator, error)
}

// AffinityService resolves the seed audience: users following a genre who do
// not already follow the creator.
type AffinityService interface {
	SeedCandidates(ctx context.Context, genre string, creatorID uuid.UUID) ([]uuid.UUID, error)
}
