package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feedpulse/internal/domain"
)

// --- Mock implementations ---

type mockEventRepo struct {
	totalsFn       func(ctx context.Context, postID uuid.UUID) (domain.EngagementTotals, error)
	windowCountsFn func(ctx context.Context, postID uuid.UUID, since time.Time) (int64, int64, error)
	eventTimesFn   func(ctx context.Context, postID uuid.UUID, since time.Time) ([]time.Time, error)
}

func (m *mockEventRepo) Totals(ctx context.Context, postID uuid.UUID) (domain.EngagementTotals, error) {
	if m.totalsFn != nil {
		return m.totalsFn(ctx, postID)
	}
	return domain.EngagementTotals{PostID: postID}, nil
}

func (m *mockEventRepo) WindowCounts(ctx context.Context, postID uuid.UUID, since time.Time) (int64, int64, error) {
	if m.windowCountsFn != nil {
		return m.windowCountsFn(ctx, postID, since)
	}
	return 0, 0, nil
}

func (m *mockEventRepo) EventTimes(ctx context.Context, postID uuid.UUID, since time.Time) ([]time.Time, error) {
	if m.eventTimesFn != nil {
		return m.eventTimesFn(ctx, postID, since)
	}
	return nil, nil
}

func (m *mockEventRepo) PurgeOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockPostRepo struct {
	getFn func(ctx context.Context, postID uuid.UUID) (*domain.Post, error)
}

func (m *mockPostRepo) Get(ctx context.Context, postID uuid.UUID) (*domain.Post, error) {
	if m.getFn != nil {
		return m.getFn(ctx, postID)
	}
	return nil, domain.ErrPostNotFound
}

type mockVisibilityRepo struct {
	getFn         func(ctx context.Context, postID uuid.UUID) (*domain.PostVisibilityState, error)
	updateScoreFn func(ctx context.Context, score domain.EVScore) error
	updateDecayFn func(ctx context.Context, postID uuid.UUID, visibility float64, expired bool) error
	advanceTierFn func(ctx context.Context, postID uuid.UUID, from, to domain.Tier, at time.Time) (bool, error)
	freezeFn      func(ctx context.Context, postID uuid.UUID) (bool, error)
}

func (m *mockVisibilityRepo) Get(ctx context.Context, postID uuid.UUID) (*domain.PostVisibilityState, error) {
	if m.getFn != nil {
		return m.getFn(ctx, postID)
	}
	return nil, domain.ErrVisibilityNotFound
}

func (m *mockVisibilityRepo) ListActive(_ context.Context) ([]domain.PostVisibilityState, error) {
	return nil, nil
}

func (m *mockVisibilityRepo) ListUnexpired(_ context.Context) ([]domain.PostVisibilityState, error) {
	return nil, nil
}

func (m *mockVisibilityRepo) CreateMissing(_ context.Context) (int64, error) {
	return 0, nil
}

func (m *mockVisibilityRepo) UpdateScore(ctx context.Context, score domain.EVScore) error {
	if m.updateScoreFn != nil {
		return m.updateScoreFn(ctx, score)
	}
	return nil
}

func (m *mockVisibilityRepo) UpdateDecay(ctx context.Context, postID uuid.UUID, visibility float64, expired bool) error {
	if m.updateDecayFn != nil {
		return m.updateDecayFn(ctx, postID, visibility, expired)
	}
	return nil
}

func (m *mockVisibilityRepo) AdvanceTier(ctx context.Context, postID uuid.UUID, from, to domain.Tier, at time.Time) (bool, error) {
	if m.advanceTierFn != nil {
		return m.advanceTierFn(ctx, postID, from, to, at)
	}
	return true, nil
}

func (m *mockVisibilityRepo) Freeze(ctx context.Context, postID uuid.UUID) (bool, error) {
	if m.freezeFn != nil {
		return m.freezeFn(ctx, postID)
	}
	return true, nil
}

type mockSeedRepo struct {
	hasDistributionFn func(ctx context.Context, postID uuid.UUID) (bool, error)
	insertBatchFn     func(ctx context.Context, records []domain.SeedDistributionRecord) (int64, error)
}

func (m *mockSeedRepo) HasDistribution(ctx context.Context, postID uuid.UUID) (bool, error) {
	if m.hasDistributionFn != nil {
		return m.hasDistributionFn(ctx, postID)
	}
	return false, nil
}

func (m *mockSeedRepo) InsertBatch(ctx context.Context, records []domain.SeedDistributionRecord) (int64, error) {
	if m.insertBatchFn != nil {
		return m.insertBatchFn(ctx, records)
	}
	return int64(len(records)), nil
}

type mockTrendingRepo struct {
	currentFn    func(ctx context.Context) ([]domain.TrendingQueueEntry, error)
	candidatesFn func(ctx context.Context, gates domain.TrendingGates, now time.Time) ([]domain.TrendingCandidate, error)
	replaceFn    func(ctx context.Context, entries []domain.TrendingQueueEntry) error
	archiveFn    func(ctx context.Context, entries []domain.TrendingQueueEntry, reason string, at time.Time) error
}

func (m *mockTrendingRepo) Current(ctx context.Context) ([]domain.TrendingQueueEntry, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx)
	}
	return nil, nil
}

func (m *mockTrendingRepo) Candidates(ctx context.Context, gates domain.TrendingGates, now time.Time) ([]domain.TrendingCandidate, error) {
	if m.candidatesFn != nil {
		return m.candidatesFn(ctx, gates, now)
	}
	return nil, nil
}

func (m *mockTrendingRepo) Replace(ctx context.Context, entries []domain.TrendingQueueEntry) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, entries)
	}
	return nil
}

func (m *mockTrendingRepo) Archive(ctx context.Context, entries []domain.TrendingQueueEntry, reason string, at time.Time) error {
	if m.archiveFn != nil {
		return m.archiveFn(ctx, entries, reason, at)
	}
	return nil
}

type mockHistoryRepo struct {
	appendFn         func(ctx context.Context, sample domain.ScoreSample) error
	latestFn         func(ctx context.Context, postID uuid.UUID) (*domain.ScoreSample, error)
	creatorAverageFn func(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (float64, int64, error)
	activePostIDsFn  func(ctx context.Context, since time.Time) ([]uuid.UUID, error)
}

func (m *mockHistoryRepo) Append(ctx context.Context, sample domain.ScoreSample) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, sample)
	}
	return nil
}

func (m *mockHistoryRepo) Latest(ctx context.Context, postID uuid.UUID) (*domain.ScoreSample, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, postID)
	}
	return nil, nil
}

func (m *mockHistoryRepo) CreatorAverage(ctx context.Context, creatorID uuid.UUID, from, to time.Time) (float64, int64, error) {
	if m.creatorAverageFn != nil {
		return m.creatorAverageFn(ctx, creatorID, from, to)
	}
	return 0, 0, nil
}

func (m *mockHistoryRepo) ActivePostIDs(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	if m.activePostIDsFn != nil {
		return m.activePostIDsFn(ctx, since)
	}
	return nil, nil
}

func (m *mockHistoryRepo) PurgeOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type mockFraudRepo struct {
	appendFn     func(ctx context.Context, flag *domain.FraudFlag) error
	countSinceFn func(ctx context.Context, postID uuid.UUID, severity domain.Severity, since time.Time) (int64, error)
}

func (m *mockFraudRepo) Append(ctx context.Context, flag *domain.FraudFlag) error {
	if m.appendFn != nil {
		return m.appendFn(ctx, flag)
	}
	return nil
}

func (m *mockFraudRepo) CountSince(ctx context.Context, postID uuid.UUID, severity domain.Severity, since time.Time) (int64, error) {
	if m.countSinceFn != nil {
		return m.countSinceFn(ctx, postID, severity, since)
	}
	return 0, nil
}

func (m *mockFraudRepo) MarkReviewed(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

type mockReputationService struct {
	creatorFn func(ctx context.Context, creatorID uuid.UUID) (*domain.Creator, error)
}

func (m *mockReputationService) Creator(ctx context.Context, creatorID uuid.UUID) (*domain.Creator, error) {
	if m.creatorFn != nil {
		return m.creatorFn(ctx, creatorID)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockAffinityService struct {
	seedCandidatesFn func(ctx context.Context, genre string, creatorID uuid.UUID) ([]uuid.UUID, error)
}

func (m *mockAffinityService) SeedCandidates(ctx context.Context, genre string, creatorID uuid.UUID) ([]uuid.UUID, error) {
	if m.seedCandidatesFn != nil {
		return m.seedCandidatesFn(ctx, genre, creatorID)
	}
	return nil, nil
}
