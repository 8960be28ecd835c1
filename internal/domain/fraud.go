package domain

import (
	"time"

	"github.com/google/uuid"
)

// FlagType names one auditor check.
type FlagType string

const (
	FlagEVSpike        FlagType = "ev_spike"
	FlagAnonRatio      FlagType = "anon_ratio"
	FlagUnlabeledPromo FlagType = "unlabeled_promotion"
	FlagBotCadence     FlagType = "bot_cadence"
)

// Severity grades a fraud flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FraudFlag is one append-only audit finding. Flags are never deleted, only
// annotated with a review timestamp.
type FraudFlag struct {
	ID             uuid.UUID
	PostID         uuid.UUID
	FlagType       FlagType
	Severity       Severity
	MetricValue    float64
	ThresholdValue float64
	CreatedAt      time.Time
	ReviewedAt     *time.Time
}

// AuditReport summarises one auditor run.
type AuditReport struct {
	Scanned    int
	Suspicious []FraudFlag // low/medium findings
	Violations []FraudFlag // high findings
	Frozen     []uuid.UUID // posts frozen by the enforcement policy
}

// Flags returns all findings of the run in one slice.
func (r AuditReport) Flags() []FraudFlag {
	out := make([]FraudFlag, 0, len(r.Suspicious)+len(r.Violations))
	out = append(out, r.Suspicious...)
	out = append(out, r.Violations...)
	return out
}
