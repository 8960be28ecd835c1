// Package app orchestrates the engine's scheduled passes: it owns the
// worker pool, per-post error isolation, the interval scheduler, and leader
// election. Pass bodies return typed summaries; only the scheduler logs and
// reports them.
package app
