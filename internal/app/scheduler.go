package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"feedpulse/internal/config"
	"feedpulse/internal/domain"
	"feedpulse/internal/metrics"
)

const schedulerTick = 30 * time.Second

// Job is one scheduled pass. A job is due when its interval has elapsed since
// its last successful run; a failed run retries on the next tick.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (domain.RunSummary, error)
}

// Jobs builds the full pass schedule from the runner and configured intervals.
func Jobs(runner *PassRunner, cfg *config.Config) []Job {
	return []Job{
		{Name: "score", Interval: cfg.ScoreInterval, Run: runner.RunScore},
		{Name: "seed", Interval: cfg.SeedInterval, Run: runner.RunSeed},
		{Name: "decay", Interval: cfg.DecayInterval, Run: runner.RunDecay},
		{Name: "trending", Interval: cfg.TrendingInterval, Run: runner.RunTrending},
		{Name: "audit", Interval: cfg.AuditInterval, Run: runner.RunAudit},
	}
}

// Scheduler drives the jobs on their intervals. When an elector is set, only
// the instance holding the leader lock runs jobs; followers keep retrying for
// the lock each tick.
type Scheduler struct {
	jobs    []Job
	elector *LeaderElector
	clock   clockwork.Clock

	isLeader    bool
	lastSuccess map[string]time.Time
}

func NewScheduler(jobs []Job, elector *LeaderElector, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		jobs:        jobs,
		elector:     elector,
		clock:       clock,
		lastSuccess: make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled. Jobs run sequentially within a tick so
// the score pass never races the seed pass on the same post.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(schedulerTick)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			if s.elector != nil && s.isLeader {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.elector.Release(releaseCtx); err != nil {
					slog.Warn("Failed to release leader lock", "error", err)
				}
			}
			return
		case <-ticker.Chan():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.ensureLeadership(ctx) {
		return
	}

	now := s.clock.Now()
	for _, job := range s.jobs {
		last, ok := s.lastSuccess[job.Name]
		if ok && now.Sub(last) < job.Interval {
			continue
		}
		s.runJob(ctx, job)
		if ctx.Err() != nil {
			return
		}
	}
}

// ensureLeadership reports whether this instance may run jobs on this tick.
func (s *Scheduler) ensureLeadership(ctx context.Context) bool {
	if s.elector == nil {
		return true
	}

	if s.isLeader {
		if err := s.elector.Renew(ctx); err != nil {
			slog.Warn("Lost scheduler leadership", "error", err)
			s.isLeader = false
			return false
		}
		return true
	}

	acquired, err := s.elector.TryAcquire(ctx)
	if err != nil {
		slog.Warn("Leader election attempt failed", "error", err)
		return false
	}
	if acquired {
		slog.Info("Acquired scheduler leadership")
		s.isLeader = true
	}
	return acquired
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	summary, err := job.Run(ctx)
	if err != nil {
		metrics.PassRunsTotal.WithLabelValues(job.Name, "failed").Inc()
		slog.Error("Pass failed", "pass", job.Name, "error", err)
		return
	}

	metrics.PassRunsTotal.WithLabelValues(job.Name, "ok").Inc()
	metrics.PassDuration.WithLabelValues(job.Name).Observe(summary.Duration.Seconds())
	slog.Info("Pass completed", "summary", summary)

	s.lastSuccess[job.Name] = s.clock.Now()
}
