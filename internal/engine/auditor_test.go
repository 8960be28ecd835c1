package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedpulse/internal/domain"
)

func testAuditConfig() AuditConfig {
	return AuditConfig{
		Window:             24 * time.Hour,
		SpikeFactor:        2,
		SpikeMinEV:         0.01,
		AnonRatioThreshold: 0.7,
		AnonNegligibleAuth: 5,
		TimingMinEvents:    10,
		TimingCVThreshold:  0.15,
	}
}

func flagTypes(flags []domain.FraudFlag) []domain.FlagType {
	out := make([]domain.FlagType, len(flags))
	for i, f := range flags {
		out[i] = f.FlagType
	}
	return out
}

// A dormant post hit by an anonymous like blast must produce high-severity
// spike and anon-ratio findings in the same run.
func TestAuditor_AnonymousBlast(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)

	postID := uuid.New()
	creatorID := uuid.New()

	history := &mockHistoryRepo{
		activePostIDsFn: func(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
			return []uuid.UUID{postID}, nil
		},
		latestFn: func(_ context.Context, _ uuid.UUID) (*domain.ScoreSample, error) {
			// 500 likes landed inside two minutes.
			return &domain.ScoreSample{PostID: postID, CreatorID: creatorID, EV: 4.1, RecordedAt: now}, nil
		},
		creatorAverageFn: func(_ context.Context, _ uuid.UUID, _, _ time.Time) (float64, int64, error) {
			return 0, 0, nil // no prior baseline
		},
	}

	events := &mockEventRepo{
		windowCountsFn: func(_ context.Context, _ uuid.UUID, _ time.Time) (int64, int64, error) {
			return 500, 2, nil
		},
	}

	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatorID: creatorID, CreatedAt: now.Add(-time.Hour)}, nil
		},
	}

	auditor := NewAuditor(events, history, posts, &mockFraudRepo{}, testAuditConfig(), clock)

	report, err := auditor.AuditAllPosts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scanned)
	require.Len(t, report.Violations, 2)
	assert.ElementsMatch(t,
		[]domain.FlagType{domain.FlagEVSpike, domain.FlagAnonRatio},
		flagTypes(report.Violations),
	)
	assert.Empty(t, report.Suspicious)
}

func TestAuditor_SpikeAgainstEstablishedBaseline(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		ev           float64
		wantFlag     bool
		wantSeverity domain.Severity
	}{
		{"below threshold", 15, false, ""},
		{"just above threshold", 25, true, domain.SeverityLow},
		{"triple the baseline", 35, true, domain.SeverityMedium},
		{"five times the baseline", 60, true, domain.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClockAt(now)
			postID := uuid.New()

			history := &mockHistoryRepo{
				activePostIDsFn: func(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
					return []uuid.UUID{postID}, nil
				},
				latestFn: func(_ context.Context, _ uuid.UUID) (*domain.ScoreSample, error) {
					return &domain.ScoreSample{PostID: postID, CreatorID: uuid.New(), EV: tt.ev, RecordedAt: now}, nil
				},
				creatorAverageFn: func(_ context.Context, _ uuid.UUID, _, _ time.Time) (float64, int64, error) {
					return 10, 40, nil
				},
			}

			posts := &mockPostRepo{
				getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
					return &domain.Post{ID: id, CreatedAt: now.Add(-time.Hour)}, nil
				},
			}

			auditor := NewAuditor(&mockEventRepo{}, history, posts, &mockFraudRepo{}, testAuditConfig(), clock)

			report, err := auditor.AuditAllPosts(context.Background())
			require.NoError(t, err)

			flags := report.Flags()
			if !tt.wantFlag {
				assert.Empty(t, flags)
				return
			}
			require.Len(t, flags, 1)
			assert.Equal(t, domain.FlagEVSpike, flags[0].FlagType)
			assert.Equal(t, tt.wantSeverity, flags[0].Severity)
		})
	}
}

func TestAuditor_BotCadence(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	postID := uuid.New()

	// 20 events exactly 30 seconds apart: zero variance.
	times := make([]time.Time, 20)
	for i := range times {
		times[i] = now.Add(time.Duration(i) * 30 * time.Second)
	}

	history := &mockHistoryRepo{
		activePostIDsFn: func(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
			return []uuid.UUID{postID}, nil
		},
		latestFn: func(_ context.Context, _ uuid.UUID) (*domain.ScoreSample, error) {
			return &domain.ScoreSample{PostID: postID, CreatorID: uuid.New(), EV: 1, RecordedAt: now}, nil
		},
		creatorAverageFn: func(_ context.Context, _ uuid.UUID, _, _ time.Time) (float64, int64, error) {
			return 1, 40, nil
		},
	}
	events := &mockEventRepo{
		eventTimesFn: func(_ context.Context, _ uuid.UUID, _ time.Time) ([]time.Time, error) {
			return times, nil
		},
	}
	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatedAt: now.Add(-time.Hour)}, nil
		},
	}

	auditor := NewAuditor(events, history, posts, &mockFraudRepo{}, testAuditConfig(), clock)

	report, err := auditor.AuditAllPosts(context.Background())
	require.NoError(t, err)

	flags := report.Flags()
	require.Len(t, flags, 1)
	assert.Equal(t, domain.FlagBotCadence, flags[0].FlagType)
	assert.Equal(t, domain.SeverityHigh, flags[0].Severity)
}

func TestIntervalCV(t *testing.T) {
	base := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	t.Run("uniform gaps", func(t *testing.T) {
		times := []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
		cv, ok := intervalCV(times)
		require.True(t, ok)
		assert.InDelta(t, 0, cv, 0.0001)
	})

	t.Run("bursty gaps", func(t *testing.T) {
		times := []time.Time{
			base,
			base.Add(2 * time.Second),
			base.Add(5 * time.Second),
			base.Add(10 * time.Minute),
			base.Add(11 * time.Minute),
			base.Add(45 * time.Minute),
		}
		cv, ok := intervalCV(times)
		require.True(t, ok)
		assert.Greater(t, cv, 0.15)
	})

	t.Run("too few events", func(t *testing.T) {
		_, ok := intervalCV([]time.Time{base, base.Add(time.Minute)})
		assert.False(t, ok)
	})
}

func TestAuditor_UnlabeledPromotion(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		promoted bool
		labeled  bool
		want     bool
	}{
		{"promoted and unlabeled", true, false, true},
		{"promoted and labeled", true, true, false},
		{"organic post", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClockAt(now)
			postID := uuid.New()

			history := &mockHistoryRepo{
				activePostIDsFn: func(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
					return []uuid.UUID{postID}, nil
				},
				latestFn: func(_ context.Context, _ uuid.UUID) (*domain.ScoreSample, error) {
					return &domain.ScoreSample{PostID: postID, CreatorID: uuid.New(), EV: 1, RecordedAt: now}, nil
				},
				creatorAverageFn: func(_ context.Context, _ uuid.UUID, _, _ time.Time) (float64, int64, error) {
					return 1, 40, nil
				},
			}
			posts := &mockPostRepo{
				getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
					return &domain.Post{ID: id, Promoted: tt.promoted, PromotionLabeled: tt.labeled, CreatedAt: now.Add(-time.Hour)}, nil
				},
			}

			auditor := NewAuditor(&mockEventRepo{}, history, posts, &mockFraudRepo{}, testAuditConfig(), clock)

			report, err := auditor.AuditAllPosts(context.Background())
			require.NoError(t, err)

			flags := report.Flags()
			if tt.want {
				require.Len(t, flags, 1)
				assert.Equal(t, domain.FlagUnlabeledPromo, flags[0].FlagType)
				assert.Equal(t, domain.SeverityMedium, flags[0].Severity)
			} else {
				assert.Empty(t, flags)
			}
		})
	}
}

func TestAuditor_AppendsEveryFlag(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(now)
	postID := uuid.New()

	history := &mockHistoryRepo{
		activePostIDsFn: func(_ context.Context, _ time.Time) ([]uuid.UUID, error) {
			return []uuid.UUID{postID}, nil
		},
		latestFn: func(_ context.Context, _ uuid.UUID) (*domain.ScoreSample, error) {
			return &domain.ScoreSample{PostID: postID, CreatorID: uuid.New(), EV: 4.1, RecordedAt: now}, nil
		},
	}
	events := &mockEventRepo{
		windowCountsFn: func(_ context.Context, _ uuid.UUID, _ time.Time) (int64, int64, error) {
			return 500, 2, nil
		},
	}
	posts := &mockPostRepo{
		getFn: func(_ context.Context, id uuid.UUID) (*domain.Post, error) {
			return &domain.Post{ID: id, CreatedAt: now.Add(-time.Hour)}, nil
		},
	}

	var appended []domain.FraudFlag
	fraud := &mockFraudRepo{
		appendFn: func(_ context.Context, flag *domain.FraudFlag) error {
			appended = append(appended, *flag)
			return nil
		},
	}

	auditor := NewAuditor(events, history, posts, fraud, testAuditConfig(), clock)

	report, err := auditor.AuditAllPosts(context.Background())
	require.NoError(t, err)
	assert.Len(t, appended, len(report.Flags()))
}
