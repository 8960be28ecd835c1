package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"feedpulse/internal/config"
	"feedpulse/internal/domain"
	"feedpulse/internal/engine"
	"feedpulse/internal/logging"
	"feedpulse/internal/metrics"
)

// PassRunner holds every pass body. Each Run* method processes posts through
// a bounded worker pool; per-post errors are logged, counted, and skipped
// without aborting the pass. Only setup-class failures return an error.
type PassRunner struct {
	cfg        *config.Config
	vis        domain.VisibilityRepository
	events     domain.EventRepository
	history    domain.ScoreHistoryRepository
	aggregator *engine.Aggregator
	decayer    *engine.Decayer
	tiers      *engine.TierMachine
	seeder     *engine.Seeder
	trending   *engine.TrendingBuilder
	auditor    *engine.Auditor
	enforcer   *engine.Enforcer
	clock      clockwork.Clock
}

func NewPassRunner(
	cfg *config.Config,
	vis domain.VisibilityRepository,
	events domain.EventRepository,
	history domain.ScoreHistoryRepository,
	aggregator *engine.Aggregator,
	decayer *engine.Decayer,
	tiers *engine.TierMachine,
	seeder *engine.Seeder,
	trending *engine.TrendingBuilder,
	auditor *engine.Auditor,
	enforcer *engine.Enforcer,
	clock clockwork.Clock,
) *PassRunner {
	return &PassRunner{
		cfg:        cfg,
		vis:        vis,
		events:     events,
		history:    history,
		aggregator: aggregator,
		decayer:    decayer,
		tiers:      tiers,
		seeder:     seeder,
		trending:   trending,
		auditor:    auditor,
		enforcer:   enforcer,
		clock:      clock,
	}
}

// counters aggregates per-post outcomes across workers.
type counters struct {
	processed    atomic.Int64
	transitioned atomic.Int64
	failed       atomic.Int64
}

func (r *PassRunner) summarize(pass string, started time.Time, c *counters) domain.RunSummary {
	s := domain.RunSummary{
		Pass:         pass,
		StartedAt:    started,
		Duration:     r.clock.Since(started),
		Processed:    int(c.processed.Load()),
		Transitioned: int(c.transitioned.Load()),
		Failed:       int(c.failed.Load()),
	}
	metrics.PassPostsProcessed.WithLabelValues(pass).Add(float64(s.Processed))
	metrics.PassPostsFailed.WithLabelValues(pass).Add(float64(s.Failed))
	return s
}

// forEachPost fans posts out over the worker pool. The worker callback
// reports whether the post transitioned; its error is isolated per post.
func (r *PassRunner) forEachPost(ctx context.Context, pass string, posts []domain.PostVisibilityState, c *counters, work func(ctx context.Context, state domain.PostVisibilityState) (bool, error)) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	log := logging.WithPass(pass)
	for _, state := range posts {
		state := state
		g.Go(func() error {
			postCtx, cancel := context.WithTimeout(gctx, r.cfg.LookupTimeout)
			defer cancel()

			transitioned, err := work(postCtx, state)
			c.processed.Add(1)
			if err != nil {
				c.failed.Add(1)
				log.Warn("Post skipped", "post_id", state.PostID.String(), "error", err)
				return nil
			}
			if transitioned {
				c.transitioned.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// RunScore is the combined EV scoring + tier evaluation pass.
func (r *PassRunner) RunScore(ctx context.Context) (domain.RunSummary, error) {
	started := r.clock.Now()

	created, err := r.vis.CreateMissing(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}
	if created > 0 {
		slog.Info("Created visibility states for new posts", "count", created)
	}

	posts, err := r.vis.ListActive(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	var c counters
	r.forEachPost(ctx, "score", posts, &c, func(ctx context.Context, state domain.PostVisibilityState) (bool, error) {
		score, err := r.aggregator.ComputeScore(ctx, state)
		if err != nil {
			return false, err
		}
		state.EVScore = score.EV

		transition, err := r.tiers.Evaluate(ctx, state)
		if errors.Is(err, domain.ErrSeedNotCompleted) {
			// Retried next pass once the seed round lands.
			logging.WithPost(state.PostID.String()).Warn("Tier1 advance deferred")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return transition != nil, nil
	})

	return r.summarize("score", started, &c), nil
}

// RunDecay applies the decay curve to every unexpired post and purges events
// and score history past the retention window.
func (r *PassRunner) RunDecay(ctx context.Context) (domain.RunSummary, error) {
	started := r.clock.Now()

	posts, err := r.vis.ListUnexpired(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	var c counters
	r.forEachPost(ctx, "decay", posts, &c, func(ctx context.Context, state domain.PostVisibilityState) (bool, error) {
		_, expired, err := r.decayer.Decay(ctx, state)
		if err != nil {
			return false, err
		}
		return expired && !state.Expired, nil
	})

	cutoff := r.clock.Now().Add(-r.cfg.EventRetention)
	if purged, err := r.events.PurgeOlderThan(ctx, cutoff); err != nil {
		slog.Error("Event purge failed", "error", err)
	} else if purged > 0 {
		slog.Info("Purged engagement events", "count", purged)
	}
	if purged, err := r.history.PurgeOlderThan(ctx, cutoff); err != nil {
		slog.Error("Score history purge failed", "error", err)
	} else if purged > 0 {
		slog.Info("Purged score history", "count", purged)
	}

	return r.summarize("decay", started, &c), nil
}

// RunSeed distributes the seed audience for posts still in the seed tier.
func (r *PassRunner) RunSeed(ctx context.Context) (domain.RunSummary, error) {
	started := r.clock.Now()

	posts, err := r.vis.ListActive(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	var seedPosts []domain.PostVisibilityState
	for _, p := range posts {
		if p.Tier == domain.TierSeed {
			seedPosts = append(seedPosts, p)
		}
	}

	var c counters
	r.forEachPost(ctx, "seed", seedPosts, &c, func(ctx context.Context, state domain.PostVisibilityState) (bool, error) {
		result, err := r.seeder.Distribute(ctx, state.PostID)
		if err != nil {
			return false, err
		}
		if result.LowCoverage {
			logging.WithPost(state.PostID.String()).Warn("Seed round below floor", "candidates", result.Candidates, "distributed", result.Distributed)
		}
		return !result.Skipped && result.Distributed > 0, nil
	})

	return r.summarize("seed", started, &c), nil
}

// RunTrending rebuilds the trending queue.
func (r *PassRunner) RunTrending(ctx context.Context) (domain.RunSummary, error) {
	started := r.clock.Now()

	result, err := r.trending.Rebuild(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	slog.Info("Trending queue rebuilt",
		"size", result.Size,
		"entered", len(result.Diff.Entered),
		"exited", len(result.Diff.Exited),
		"moved", len(result.Diff.Moved),
		"archived", result.Archived,
	)

	return domain.RunSummary{
		Pass:         "trending",
		StartedAt:    started,
		Duration:     r.clock.Since(started),
		Processed:    result.Size,
		Transitioned: result.Added,
	}, nil
}

// RunAudit scans recent scoring activity for manipulation and applies the
// freeze policy to flagged posts.
func (r *PassRunner) RunAudit(ctx context.Context) (domain.RunSummary, error) {
	started := r.clock.Now()

	report, err := r.auditor.AuditAllPosts(ctx)
	if err != nil {
		return domain.RunSummary{}, err
	}

	flagged := make(map[string]domain.FraudFlag)
	for _, flag := range report.Flags() {
		flagged[flag.PostID.String()] = flag
	}

	for _, flag := range flagged {
		ok, err := r.enforcer.EnforcePost(ctx, flag.PostID)
		if err != nil {
			logging.WithPost(flag.PostID.String()).Warn("Enforcement skipped post", "error", err)
			continue
		}
		if ok {
			report.Frozen = append(report.Frozen, flag.PostID)
			logging.WithPost(flag.PostID.String()).Warn("Post frozen by enforcement policy")
		}
	}

	slog.Info("Audit completed",
		"scanned", report.Scanned,
		"suspicious", len(report.Suspicious),
		"violations", len(report.Violations),
		"frozen", len(report.Frozen),
	)

	return domain.RunSummary{
		Pass:         "audit",
		StartedAt:    started,
		Duration:     r.clock.Since(started),
		Processed:    report.Scanned,
		Transitioned: len(report.Frozen),
	}, nil
}
