package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedpulse/internal/domain"
)

func testSeedConfig() SeedConfig {
	return SeedConfig{Ratio: 0.05, Floor: 10, Cap: 500}
}

func makeCandidates(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func newTestSeeder(posts domain.PostRepository, seeds domain.SeedRepository, affinity domain.AffinityService) *Seeder {
	return NewSeeder(posts, seeds, affinity, testSeedConfig(), clockwork.NewFakeClock(), 42)
}

func TestSeeder_SkipsAlreadySeededPost(t *testing.T) {
	seeds := &mockSeedRepo{
		hasDistributionFn: func(_ context.Context, _ uuid.UUID) (bool, error) {
			return true, nil
		},
	}
	posts := &mockPostRepo{
		getFn: func(_ context.Context, _ uuid.UUID) (*domain.Post, error) {
			t.Fatal("post lookup should not happen for a seeded post")
			return nil, nil
		},
	}

	seeder := newTestSeeder(posts, seeds, &mockAffinityService{})

	result, err := seeder.Distribute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.Distributed)
}

func TestSeeder_SamplesFivePercent(t *testing.T) {
	postID := uuid.New()
	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatorID: uuid.New(), Genre: "jazz"}, nil
		},
	}
	affinity := &mockAffinityService{
		seedCandidatesFn: func(_ context.Context, _ string, _ uuid.UUID) ([]uuid.UUID, error) {
			return makeCandidates(1000), nil
		},
	}

	var inserted []domain.SeedDistributionRecord
	seeds := &mockSeedRepo{
		insertBatchFn: func(_ context.Context, records []domain.SeedDistributionRecord) (int64, error) {
			inserted = records
			return int64(len(records)), nil
		},
	}

	seeder := newTestSeeder(posts, seeds, affinity)

	result, err := seeder.Distribute(context.Background(), postID)
	require.NoError(t, err)

	assert.Equal(t, 50, result.Target)
	assert.Equal(t, 50, result.Distributed)
	assert.False(t, result.LowCoverage)
	require.Len(t, inserted, 50)

	// Every record targets this post, and no user is selected twice.
	seen := make(map[uuid.UUID]struct{})
	for _, rec := range inserted {
		assert.Equal(t, postID, rec.PostID)
		_, dup := seen[rec.UserID]
		assert.False(t, dup)
		seen[rec.UserID] = struct{}{}
	}
}

func TestSeeder_FloorLiftsSmallSamples(t *testing.T) {
	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatorID: uuid.New(), Genre: "folk"}, nil
		},
	}
	affinity := &mockAffinityService{
		seedCandidatesFn: func(_ context.Context, _ string, _ uuid.UUID) ([]uuid.UUID, error) {
			// 5% of 100 is 5, below the floor of 10.
			return makeCandidates(100), nil
		},
	}

	seeder := newTestSeeder(posts, &mockSeedRepo{}, affinity)

	result, err := seeder.Distribute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 10, result.Target)
	assert.Equal(t, 10, result.Distributed)
	assert.False(t, result.LowCoverage)
}

func TestSeeder_CapBoundsLargeSamples(t *testing.T) {
	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatorID: uuid.New(), Genre: "pop"}, nil
		},
	}
	affinity := &mockAffinityService{
		seedCandidatesFn: func(_ context.Context, _ string, _ uuid.UUID) ([]uuid.UUID, error) {
			return makeCandidates(100000), nil
		},
	}

	seeder := newTestSeeder(posts, &mockSeedRepo{}, affinity)

	result, err := seeder.Distribute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 500, result.Target)
	assert.Equal(t, 500, result.Distributed)
}

func TestSeeder_LowCoverageDistributesWholeSet(t *testing.T) {
	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatorID: uuid.New(), Genre: "niche"}, nil
		},
	}
	affinity := &mockAffinityService{
		seedCandidatesFn: func(_ context.Context, _ string, _ uuid.UUID) ([]uuid.UUID, error) {
			return makeCandidates(4), nil
		},
	}

	seeder := newTestSeeder(posts, &mockSeedRepo{}, affinity)

	result, err := seeder.Distribute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, result.LowCoverage)
	assert.Equal(t, 4, result.Distributed)
}
