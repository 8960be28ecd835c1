// Package database implements the domain repositories on PostgreSQL via
// pgx. All writes are upserts or guarded updates so overlapping passes stay
// idempotent.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected", "max_conns", poolCfg.MaxConns)
	return pool, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id UUID PRIMARY KEY,
		creator_id UUID NOT NULL,
		genre TEXT NOT NULL,
		promoted BOOLEAN NOT NULL DEFAULT FALSE,
		promotion_labeled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS creators (
		id UUID PRIMARY KEY,
		reputation_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		verified BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS genre_follows (
		user_id UUID NOT NULL,
		genre TEXT NOT NULL,
		PRIMARY KEY (user_id, genre)
	)`,
	`CREATE TABLE IF NOT EXISTS creator_follows (
		user_id UUID NOT NULL,
		creator_id UUID NOT NULL,
		PRIMARY KEY (user_id, creator_id)
	)`,
	`CREATE TABLE IF NOT EXISTS engagement_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		post_id UUID NOT NULL,
		actor_id UUID,
		kind TEXT NOT NULL,
		is_authenticated BOOLEAN NOT NULL DEFAULT FALSE,
		amount DOUBLE PRECISION NOT NULL DEFAULT 1,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_post_occurred ON engagement_events(post_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS post_visibility (
		post_id UUID PRIMARY KEY,
		creator_id UUID NOT NULL,
		tier TEXT NOT NULL DEFAULT 'seed',
		eqs_auth DOUBLE PRECISION NOT NULL DEFAULT 0,
		eqs_anon DOUBLE PRECISION NOT NULL DEFAULT 0,
		ev_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		visibility_score DOUBLE PRECISION NOT NULL DEFAULT 100,
		expired BOOLEAN NOT NULL DEFAULT FALSE,
		frozen BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		tier_entered_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_visibility_active ON post_visibility(expired, frozen)`,
	`CREATE TABLE IF NOT EXISTS seed_distributions (
		post_id UUID NOT NULL,
		user_id UUID NOT NULL,
		distributed_at TIMESTAMPTZ NOT NULL,
		impressed BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (post_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS trending_queue (
		rank INTEGER PRIMARY KEY,
		post_id UUID NOT NULL UNIQUE,
		ev_score DOUBLE PRECISION NOT NULL,
		entered_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trending_archive (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		post_id UUID NOT NULL,
		rank INTEGER NOT NULL,
		ev_score DOUBLE PRECISION NOT NULL,
		entered_at TIMESTAMPTZ NOT NULL,
		archived_at TIMESTAMPTZ NOT NULL,
		reason TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS score_history (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		post_id UUID NOT NULL,
		creator_id UUID NOT NULL,
		ev DOUBLE PRECISION NOT NULL,
		eqs DOUBLE PRECISION NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_post_recorded ON score_history(post_id, recorded_at)`,
	`CREATE INDEX IF NOT EXISTS idx_history_creator_recorded ON score_history(creator_id, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS fraud_flags (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		post_id UUID NOT NULL,
		flag_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		metric_value DOUBLE PRECISION NOT NULL,
		threshold_value DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		reviewed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flags_post_created ON fraud_flags(post_id, created_at)`,
}

func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	for _, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	slog.Info("Database migrations completed")
	return nil
}
