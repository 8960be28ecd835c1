package domain

import (
	"log/slog"
	"time"
)

// RunSummary is the typed result every pass returns. The scheduler logs it
// once per run; pass bodies never log their own totals.
type RunSummary struct {
	Pass         string
	StartedAt    time.Time
	Duration     time.Duration
	Processed    int
	Transitioned int
	Failed       int
}

// LogValue renders the summary as structured fields for slog.
func (s RunSummary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pass", s.Pass),
		slog.Time("started_at", s.StartedAt),
		slog.Duration("duration", s.Duration),
		slog.Int("processed", s.Processed),
		slog.Int("transitioned", s.Transitioned),
		slog.Int("failed", s.Failed),
	)
}
