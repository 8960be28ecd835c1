package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"feedpulse/internal/domain"
	"feedpulse/internal/redis"
)

type trendingEntryResponse struct {
	PostID    string    `json:"post_id"`
	Rank      int       `json:"rank"`
	EVScore   float64   `json:"ev_score"`
	EnteredAt time.Time `json:"entered_at"`
}

type visibilityResponse struct {
	PostID          string    `json:"post_id"`
	Tier            string    `json:"tier"`
	EVScore         float64   `json:"ev_score"`
	VisibilityScore float64   `json:"visibility_score"`
	Expired         bool      `json:"expired"`
	Frozen          bool      `json:"frozen"`
	TierEnteredAt   time.Time `json:"tier_entered_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// handleTrending serves the trending queue. It prefers the Redis snapshot and
// falls back to the Postgres queue when the snapshot is missing or stale.
func (s *Server) handleTrending(c echo.Context) error {
	ctx := c.Request().Context()

	entries, err := s.cache.GetTrending(ctx)
	if err != nil {
		if !errors.Is(err, redis.ErrSnapshotMissing) {
			slog.Warn("Trending snapshot read failed, falling back to database", "error", err)
		}
		entries, err = s.trending.Current(ctx)
		if err != nil {
			return c.JSON(500, map[string]string{"error": "failed to load trending queue"})
		}
	}

	resp := make([]trendingEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = trendingEntryResponse{
			PostID:    e.PostID.String(),
			Rank:      e.Rank,
			EVScore:   e.EVScore,
			EnteredAt: e.EnteredAt,
		}
	}
	return c.JSON(200, map[string]any{"entries": resp})
}

func (s *Server) handleVisibility(c echo.Context) error {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "invalid post id"})
	}

	state, err := s.vis.Get(c.Request().Context(), postID)
	if errors.Is(err, domain.ErrVisibilityNotFound) {
		return c.JSON(404, map[string]string{"error": "post not tracked"})
	}
	if err != nil {
		return c.JSON(500, map[string]string{"error": "failed to load visibility state"})
	}

	return c.JSON(200, visibilityResponse{
		PostID:          state.PostID.String(),
		Tier:            string(state.EffectiveTier()),
		EVScore:         state.EVScore,
		VisibilityScore: state.VisibilityScore,
		Expired:         state.Expired,
		Frozen:          state.Frozen,
		TierEnteredAt:   state.TierEnteredAt,
		UpdatedAt:       state.UpdatedAt,
	})
}
