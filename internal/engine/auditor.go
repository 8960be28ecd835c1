package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

// AuditConfig holds the anomaly thresholds.
type AuditConfig struct {
	Window             time.Duration // trailing window scanned per run
	SpikeFactor        float64       // flag when current EV exceeds factor × trailing average
	SpikeMinEV         float64       // spike floor for creators with no history
	AnonRatioThreshold float64       // anonymous share above which traffic looks purchased
	AnonNegligibleAuth int64         // authenticated count below which it counts as negligible
	TimingMinEvents    int           // minimum events before the cadence check applies
	TimingCVThreshold  float64       // coefficient of variation below which cadence looks botted
}

// baselineLag excludes the most recent samples from the trailing average so
// a spike cannot raise its own baseline.
const baselineLag = time.Hour

// Auditor scans recent scoring activity for statistical anomalies. It is
// read-only over engagement data and append-only over fraud flags, so a bug
// here can never corrupt the scoring pipeline. Enforcement is a separate
// policy (Enforcer).
type Auditor struct {
	events  domain.EventRepository
	history domain.ScoreHistoryRepository
	posts   domain.PostRepository
	fraud   domain.FraudRepository
	cfg     AuditConfig
	clock   clockwork.Clock
}

func NewAuditor(events domain.EventRepository, history domain.ScoreHistoryRepository, posts domain.PostRepository, fraud domain.FraudRepository, cfg AuditConfig, clock clockwork.Clock) *Auditor {
	return &Auditor{events: events, history: history, posts: posts, fraud: fraud, cfg: cfg, clock: clock}
}

// AuditAllPosts runs every check over posts with score activity in the
// trailing window. Per-post failures are logged and skipped; they never
// abort the run.
func (a *Auditor) AuditAllPosts(ctx context.Context) (domain.AuditReport, error) {
	now := a.clock.Now()
	since := now.Add(-a.cfg.Window)

	postIDs, err := a.history.ActivePostIDs(ctx, since)
	if err != nil {
		return domain.AuditReport{}, fmt.Errorf("list posts with recent activity: %w", err)
	}

	report := domain.AuditReport{Scanned: len(postIDs)}
	for _, postID := range postIDs {
		flags, err := a.auditPost(ctx, postID, since, now)
		if err != nil {
			slog.Warn("Audit skipped post", "post_id", postID.String(), "error", err)
			continue
		}
		for i := range flags {
			flag := flags[i]
			if err := a.fraud.Append(ctx, &flag); err != nil {
				slog.Error("Failed to append fraud flag", "post_id", postID.String(), "type", string(flag.FlagType), "error", err)
				continue
			}
			metrics.FraudFlagsTotal.WithLabelValues(string(flag.FlagType), string(flag.Severity)).Inc()
			if flag.Severity == domain.SeverityHigh {
				report.Violations = append(report.Violations, flag)
			} else {
				report.Suspicious = append(report.Suspicious, flag)
			}
		}
	}
	return report, nil
}

func (a *Auditor) auditPost(ctx context.Context, postID uuid.UUID, since, now time.Time) ([]domain.FraudFlag, error) {
	latest, err := a.history.Latest(ctx, postID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	var flags []domain.FraudFlag

	if flag := a.checkEVSpike(ctx, postID, latest, since, now); flag != nil {
		flags = append(flags, *flag)
	}
	if flag, err := a.checkAnonRatio(ctx, postID, since, now); err != nil {
		return nil, err
	} else if flag != nil {
		flags = append(flags, *flag)
	}
	if flag, err := a.checkPromotionLabel(ctx, postID, now); err != nil {
		return nil, err
	} else if flag != nil {
		flags = append(flags, *flag)
	}
	if flag, err := a.checkTiming(ctx, postID, since, now); err != nil {
		return nil, err
	} else if flag != nil {
		flags = append(flags, *flag)
	}

	return flags, nil
}

// checkEVSpike flags posts whose latest EV exceeds SpikeFactor times the
// creator's trailing average. A creator with no prior baseline is held to
// the absolute spike floor instead.
func (a *Auditor) checkEVSpike(ctx context.Context, postID uuid.UUID, latest *domain.ScoreSample, since, now time.Time) *domain.FraudFlag {
	avg, samples, err := a.history.CreatorAverage(ctx, latest.CreatorID, since, now.Add(-baselineLag))
	if err != nil {
		slog.Warn("EV spike baseline lookup failed", "post_id", postID.String(), "error", err)
		return nil
	}

	if samples == 0 || avg <= 0 {
		if latest.EV <= a.cfg.SpikeMinEV {
			return nil
		}
		return &domain.FraudFlag{
			PostID:         postID,
			FlagType:       domain.FlagEVSpike,
			Severity:       domain.SeverityHigh,
			MetricValue:    latest.EV,
			ThresholdValue: a.cfg.SpikeMinEV,
			CreatedAt:      now,
		}
	}

	threshold := a.cfg.SpikeFactor * avg
	if latest.EV <= threshold {
		return nil
	}

	ratio := latest.EV / avg
	severity := domain.SeverityLow
	switch {
	case ratio >= 5:
		severity = domain.SeverityHigh
	case ratio >= 3:
		severity = domain.SeverityMedium
	}

	return &domain.FraudFlag{
		PostID:         postID,
		FlagType:       domain.FlagEVSpike,
		Severity:       severity,
		MetricValue:    latest.EV,
		ThresholdValue: threshold,
		CreatedAt:      now,
	}
}

// checkAnonRatio flags posts whose anonymous engagement share exceeds the
// threshold while authenticated engagement stays negligible, a proxy for
// purchased or bot traffic.
func (a *Auditor) checkAnonRatio(ctx context.Context, postID uuid.UUID, since, now time.Time) (*domain.FraudFlag, error) {
	anon, auth, err := a.events.WindowCounts(ctx, postID, since)
	if err != nil {
		return nil, err
	}

	total := anon + auth
	if total == 0 {
		return nil, nil
	}

	ratio := float64(anon) / float64(total)
	if ratio <= a.cfg.AnonRatioThreshold || auth >= a.cfg.AnonNegligibleAuth {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if ratio > 0.9 {
		severity = domain.SeverityHigh
	}

	return &domain.FraudFlag{
		PostID:         postID,
		FlagType:       domain.FlagAnonRatio,
		Severity:       severity,
		MetricValue:    ratio,
		ThresholdValue: a.cfg.AnonRatioThreshold,
		CreatedAt:      now,
	}, nil
}

// checkPromotionLabel flags paid-promotion posts missing the required
// disclosure label.
func (a *Auditor) checkPromotionLabel(ctx context.Context, postID uuid.UUID, now time.Time) (*domain.FraudFlag, error) {
	post, err := a.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.Promoted || post.PromotionLabeled {
		return nil, nil
	}
	return &domain.FraudFlag{
		PostID:         postID,
		FlagType:       domain.FlagUnlabeledPromo,
		Severity:       domain.SeverityMedium,
		MetricValue:    1,
		ThresholdValue: 0,
		CreatedAt:      now,
	}, nil
}

// checkTiming flags near-uniform inter-event gaps. Human engagement is
// bursty; a coefficient of variation close to zero is bot cadence.
func (a *Auditor) checkTiming(ctx context.Context, postID uuid.UUID, since, now time.Time) (*domain.FraudFlag, error) {
	times, err := a.events.EventTimes(ctx, postID, since)
	if err != nil {
		return nil, err
	}
	if len(times) < a.cfg.TimingMinEvents {
		return nil, nil
	}

	cv, ok := intervalCV(times)
	if !ok || cv >= a.cfg.TimingCVThreshold {
		return nil, nil
	}

	severity := domain.SeverityMedium
	if cv < a.cfg.TimingCVThreshold/3 {
		severity = domain.SeverityHigh
	}

	return &domain.FraudFlag{
		PostID:         postID,
		FlagType:       domain.FlagBotCadence,
		Severity:       severity,
		MetricValue:    cv,
		ThresholdValue: a.cfg.TimingCVThreshold,
		CreatedAt:      now,
	}, nil
}

// intervalCV returns the coefficient of variation of the gaps between
// consecutive timestamps. ok is false when the gaps carry no signal (fewer
// than two intervals, or a zero mean).
func intervalCV(times []time.Time) (float64, bool) {
	if len(times) < 3 {
		return 0, false
	}

	intervals := make([]float64, 0, len(times)-1)
	var sum float64
	for i := 1; i < len(times); i++ {
		gap := times[i].Sub(times[i-1]).Seconds()
		intervals = append(intervals, gap)
		sum += gap
	}

	mean := sum / float64(len(intervals))
	if mean <= 0 {
		return 0, false
	}

	var variance float64
	for _, gap := range intervals {
		d := gap - mean
		variance += d * d
	}
	variance /= float64(len(intervals))

	return math.Sqrt(variance) / mean, true
}
