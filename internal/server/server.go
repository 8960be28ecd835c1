package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"feedpulse/internal/config"
	"feedpulse/internal/domain"
)

// postgresHealthChecker is a minimal interface for PostgreSQL health checks.
type postgresHealthChecker interface {
	Ping(ctx context.Context) error
}

// trendingSnapshotCache reads the published trending snapshot. It is the
// server's only Redis dependency, so it doubles as the Redis health check.
type trendingSnapshotCache interface {
	GetTrending(ctx context.Context) ([]domain.TrendingQueueEntry, error)
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	vis       domain.VisibilityRepository
	trending  domain.TrendingRepository
	cache     trendingSnapshotCache
	db        postgresHealthChecker
	startTime time.Time
}

func NewServer(
	cfg *config.Config,
	vis domain.VisibilityRepository,
	trending domain.TrendingRepository,
	cache trendingSnapshotCache,
	db postgresHealthChecker,
	clock clockwork.Clock,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())

	srv := &Server{
		echo:      e,
		config:    cfg,
		vis:       vis,
		trending:  trending,
		cache:     cache,
		db:        db,
		startTime: clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
