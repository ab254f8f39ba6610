package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
)

// Store is re-exported so transaction callbacks read naturally.
type Store = repository.Store

// LeaderboardCache is satisfied by *repository.LeaderboardCache.
type LeaderboardCache interface {
	// Get returns the cached board, or on a miss the generation to pass to Set.
	Get(ctx context.Context, circleID int64) (rows []repository.LeaderboardRow, gen int64, hit bool, err error)
	// Set is a no-op when the board was invalidated after the Get that
	// returned gen.
	Set(ctx context.Context, circleID, gen int64, rows []repository.LeaderboardRow) error
	Invalidate(ctx context.Context, circleID int64) error
}

// requireMember returns Forbidden for anyone outside the circle.
func requireMember(ctx context.Context, store repository.Store, circleID int64, userID string) (*models.CircleMember, error) {
	member, err := store.Members().Get(ctx, circleID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, forbidden("not a member of this circle")
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return member, nil
}

// wrapInternal passes domain errors through untouched and adds op context
// to storage failures.
func wrapInternal(op string, err error) error {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

// invalidateLeaderboard runs after commit. The cache is an optimization so a
// failure here is logged and not returned.
func invalidateLeaderboard(ctx context.Context, cache LeaderboardCache, log *slog.Logger, circleID int64) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, circleID); err != nil {
		log.Warn("leaderboard_cache_invalidate_failed", "circle_id", circleID, "error", err)
	}
}
