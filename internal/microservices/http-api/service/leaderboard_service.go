package service

import (
	"context"
	"log/slog"
	"sort"

	"circlehub/internal/microservices/http-api/models"
	"circlehub/internal/microservices/http-api/repository"
)

type LeaderboardEntry struct {
	Rank int
	repository.LeaderboardRow
	IsCurrentUser bool
}

// LeaderboardExport is the data behind the spreadsheet download.
type LeaderboardExport struct {
	Circle  models.Circle
	Entries []LeaderboardEntry
}

type LeaderboardService interface {
	Leaderboard(ctx context.Context, userID string, circleID int64) ([]LeaderboardEntry, error)
	Export(ctx context.Context, userID string, circleID int64) (*LeaderboardExport, error)
}

type leaderboardService struct {
	store repository.Store
	cache LeaderboardCache
	log   *slog.Logger
}

func NewLeaderboardService(store repository.Store, cache LeaderboardCache, log *slog.Logger) LeaderboardService {
	return &leaderboardService{store: store, cache: cache, log: log}
}

func (s *leaderboardService) Leaderboard(ctx context.Context, userID string, circleID int64) ([]LeaderboardEntry, error) {
	if _, err := requireMember(ctx, s.store, circleID, userID); err != nil {
		return nil, err
	}
	rows, err := s.rows(ctx, circleID)
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{
			Rank:           i + 1,
			LeaderboardRow: row,
			IsCurrentUser:  row.UserID == userID,
		}
	}
	return entries, nil
}

func (s *leaderboardService) Export(ctx context.Context, userID string, circleID int64) (*LeaderboardExport, error) {
	entries, err := s.Leaderboard(ctx, userID, circleID)
	if err != nil {
		return nil, err
	}
	circle, err := s.store.Circles().GetByID(ctx, circleID)
	if err != nil {
		return nil, wrapInternal("get circle", err)
	}
	return &LeaderboardExport{Circle: *circle, Entries: entries}, nil
}

// rows serves the sorted board from cache, computing and storing it on a miss.
func (s *leaderboardService) rows(ctx context.Context, circleID int64) ([]repository.LeaderboardRow, error) {
	// gen is read before the members so a concurrent award invalidates it
	var gen int64
	cacheUsable := s.cache != nil
	if cacheUsable {
		rows, g, ok, err := s.cache.Get(ctx, circleID)
		if err != nil {
			s.log.Warn("leaderboard_cache_get_failed", "circle_id", circleID, "error", err)
			cacheUsable = false
		}
		if ok {
			return rows, nil
		}
		gen = g
	}

	members, err := s.store.Members().ListByCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}
	completed, err := s.store.Progress().CountCompletedByCircle(ctx, circleID)
	if err != nil {
		return nil, err
	}

	rows := make([]repository.LeaderboardRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, repository.LeaderboardRow{
			UserID:              m.UserID,
			Username:            m.Username,
			AvatarURL:           m.AvatarURL,
			CirclePoints:        m.CirclePoints,
			ChallengesCompleted: completed[m.UserID],
		})
	}
	SortLeaderboard(rows)

	if cacheUsable {
		if err := s.cache.Set(ctx, circleID, gen, rows); err != nil {
			s.log.Warn("leaderboard_cache_set_failed", "circle_id", circleID, "error", err)
		}
	}
	return rows, nil
}

// SortLeaderboard orders by points descending, then username, then user id.
func SortLeaderboard(rows []repository.LeaderboardRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.CirclePoints != b.CirclePoints {
			return a.CirclePoints > b.CirclePoints
		}
		if a.Username != b.Username {
			return a.Username < b.Username
		}
		return a.UserID < b.UserID
	})
}
