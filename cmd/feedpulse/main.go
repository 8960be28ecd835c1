package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"feedpulse/internal/app"
	"feedpulse/internal/config"
	"feedpulse/internal/database"
	"feedpulse/internal/domain"
	"feedpulse/internal/engine"
	"feedpulse/internal/logging"
	"feedpulse/internal/redis"
	"feedpulse/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return rdb
}

func buildRunner(cfg *config.Config, pool *pgxpool.Pool, cache *redis.TrendingCache, clock clockwork.Clock) *app.PassRunner {
	events := database.NewEventRepo(pool)
	posts := database.NewPostRepo(pool)
	vis := database.NewVisibilityRepo(pool)
	seeds := database.NewSeedRepo(pool)
	trending := database.NewTrendingRepo(pool)
	history := database.NewHistoryRepo(pool)
	fraud := database.NewFraudRepo(pool)
	reputation := database.NewReputationRepo(pool)
	affinity := database.NewAffinityRepo(pool)

	aggregator := engine.NewAggregator(events, vis, history, clock)
	decayer := engine.NewDecayer(vis, clock)

	tiers := engine.NewTierMachine(vis, seeds, reputation, engine.TierGates{
		Tier1EV:            cfg.Tier1EVThreshold,
		Tier2EV:            cfg.Tier2EVThreshold,
		Tier3EV:            cfg.Tier3EVThreshold,
		Tier3MinReputation: cfg.Tier3MinReputation,
		Tier3MaxAge:        cfg.Tier3MaxAge,
	}, clock)

	seeder := engine.NewSeeder(posts, seeds, affinity, engine.SeedConfig{
		Ratio: cfg.SeedRatio,
		Floor: cfg.SeedFloor,
		Cap:   cfg.SeedCap,
	}, clock, time.Now().UnixNano())

	builder := engine.NewTrendingBuilder(trending, vis, cache, domain.TrendingGates{
		MinEV:         cfg.Tier3EVThreshold,
		MinReputation: cfg.Tier3MinReputation,
		MaxAge:        cfg.Tier3MaxAge,
		Limit:         cfg.TrendingSize,
	}, clock)

	auditor := engine.NewAuditor(events, history, posts, fraud, engine.AuditConfig{
		Window:             cfg.AuditWindow,
		SpikeFactor:        cfg.SpikeFactor,
		SpikeMinEV:         cfg.SpikeMinEV,
		AnonRatioThreshold: cfg.AnonRatioThreshold,
		AnonNegligibleAuth: cfg.AnonNegligibleAuth,
		TimingMinEvents:    cfg.TimingMinEvents,
		TimingCVThreshold:  cfg.TimingCVThreshold,
	}, clock)

	enforcer := engine.NewEnforcer(fraud, vis, cfg.FreezeHighFlags, cfg.AuditWindow, clock)

	return app.NewPassRunner(cfg, vis, events, history, aggregator, decayer, tiers, seeder, builder, auditor, enforcer, clock)
}

// runOnce executes a single pass (or all of them) and exits. Used for manual
// backfills and cron-style deployments.
func runOnce(jobs []app.Job, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// Tier evaluation runs inside the scoring pass.
	if name == "tiers" {
		name = "score"
	}

	var matched bool
	for _, job := range jobs {
		if name != "all" && job.Name != name {
			continue
		}
		matched = true

		summary, err := job.Run(ctx)
		if err != nil {
			slog.Error("Pass failed", "pass", job.Name, "error", err)
			os.Exit(1)
		}
		slog.Info("Pass completed", "summary", summary)
	}

	if !matched {
		slog.Error("Unknown pass", "pass", name)
		fmt.Fprintln(os.Stderr, "usage: feedpulse run <score|seed|decay|trending|audit|all>")
		os.Exit(2)
	}
}

// reviewFlag annotates a fraud flag with a review timestamp. This is the only
// write the CLI performs on the flag trail; flags are never deleted.
func reviewFlag(pool *pgxpool.Pool, rawID string, clock clockwork.Clock) {
	flagID, err := uuid.Parse(rawID)
	if err != nil {
		slog.Error("Invalid flag id", "flag_id", rawID, "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := database.NewFraudRepo(pool).MarkReviewed(ctx, flagID, clock.Now()); err != nil {
		slog.Error("Failed to mark flag reviewed", "flag_id", flagID.String(), "error", err)
		os.Exit(1)
	}
	slog.Info("Fraud flag marked reviewed", "flag_id", flagID.String())
}

func main() {
	_ = godotenv.Load()

	clock := clockwork.NewRealClock()
	cfg := setupConfig()

	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	rdb := setupRedis(cfg)
	defer func() { _ = rdb.Close() }()

	cache := redis.NewTrendingCache(rdb)
	runner := buildRunner(cfg, pool, cache, clock)
	jobs := app.Jobs(runner, cfg)

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: feedpulse run <score|seed|decay|trending|audit|all>")
				os.Exit(2)
			}
			runOnce(jobs, os.Args[2])
			return
		case "review":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: feedpulse review <flag-id>")
				os.Exit(2)
			}
			reviewFlag(pool, os.Args[2], clock)
			return
		}
	}

	hostname, _ := os.Hostname()
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	elector := app.NewLeaderElector(rdb, instanceID)

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	scheduler := app.NewScheduler(jobs, elector, clock)
	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Run(schedCtx)
		close(schedulerDone)
	}()

	vis := database.NewVisibilityRepo(pool)
	trending := database.NewTrendingRepo(pool)
	srv := server.NewServer(cfg, vis, trending, cache, pool, clock)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutdown signal received, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	stopScheduler()
	<-schedulerDone

	slog.Info("Shutdown complete")
}
