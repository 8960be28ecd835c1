package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

// SeedConfig bounds the random audience sample for new posts.
type SeedConfig struct {
	Ratio float64 // share of the candidate set to sample
	Floor int     // minimum audience size
	Cap   int     // maximum audience size
}

// Seeder selects a bounded random sample of genre-affiliated non-followers
// for a brand-new post. Distribution runs exactly once per post lifecycle;
// the (post, user) uniqueness invariant absorbs overlapping runs.
type Seeder struct {
	posts    domain.PostRepository
	seeds    domain.SeedRepository
	affinity domain.AffinityService
	cfg      SeedConfig
	clock    clockwork.Clock

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSeeder(posts domain.PostRepository, seeds domain.SeedRepository, affinity domain.AffinityService, cfg SeedConfig, clock clockwork.Clock, seed int64) *Seeder {
	return &Seeder{
		posts:    posts,
		seeds:    seeds,
		affinity: affinity,
		cfg:      cfg,
		clock:    clock,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Distribute runs one seed round for the post. A post that already has any
// distribution record short-circuits with a no-op, making retries and
// overlapping scheduler runs safe.
func (s *Seeder) Distribute(ctx context.Context, postID uuid.UUID) (domain.SeedResult, error) {
	seeded, err := s.seeds.HasDistribution(ctx, postID)
	if err != nil {
		return domain.SeedResult{}, fmt.Errorf("check seed round for post %s: %w", postID, err)
	}
	if seeded {
		return domain.SeedResult{PostID: postID, Skipped: true}, nil
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return domain.SeedResult{}, fmt.Errorf("load post %s: %w", postID, err)
	}

	candidates, err := s.affinity.SeedCandidates(ctx, post.Genre, post.CreatorID)
	if err != nil {
		return domain.SeedResult{}, fmt.Errorf("resolve seed candidates for post %s: %w", postID, err)
	}

	result := domain.SeedResult{
		PostID:     postID,
		Genre:      post.Genre,
		Candidates: len(candidates),
	}

	target := s.sampleSize(len(candidates))
	result.Target = target
	if len(candidates) < s.cfg.Floor {
		// Too few candidates: distribute to the whole set and warn rather
		// than fail.
		result.LowCoverage = true
		metrics.SeedLowCoverage.Inc()
	}

	selected := s.sample(candidates, target)

	now := s.clock.Now()
	records := make([]domain.SeedDistributionRecord, len(selected))
	for i, userID := range selected {
		records[i] = domain.SeedDistributionRecord{
			PostID:        postID,
			UserID:        userID,
			DistributedAt: now,
		}
	}

	inserted, err := s.seeds.InsertBatch(ctx, records)
	if err != nil {
		return domain.SeedResult{}, fmt.Errorf("insert seed records for post %s: %w", postID, err)
	}
	result.Distributed = int(inserted)
	metrics.SeedDistributions.Add(float64(inserted))

	return result, nil
}

// sampleSize clamps ratio*n into [Floor, Cap], and to n itself when the
// candidate set is smaller than the floor.
func (s *Seeder) sampleSize(n int) int {
	target := int(math.Ceil(float64(n) * s.cfg.Ratio))
	if target < s.cfg.Floor {
		target = s.cfg.Floor
	}
	if target > s.cfg.Cap {
		target = s.cfg.Cap
	}
	if target > n {
		target = n
	}
	return target
}

// sample draws k candidates uniformly without replacement.
func (s *Seeder) sample(candidates []uuid.UUID, k int) []uuid.UUID {
	if k >= len(candidates) {
		out := make([]uuid.UUID, len(candidates))
		copy(out, candidates)
		return out
	}

	pool := make([]uuid.UUID, len(candidates))
	copy(pool, candidates)

	s.mu.Lock()
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.mu.Unlock()

	return pool[:k]
}
