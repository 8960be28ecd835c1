// Package engine implements the feed visibility pipeline: engagement
// aggregation, time decay, the tier state machine, seed distribution, the
// trending queue builder, and the anti-manipulation auditor. Each component
// is a pure consumer of the domain interfaces; scheduling and worker pooling
// live in internal/app.
package engine
