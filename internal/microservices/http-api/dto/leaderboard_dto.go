package dto

import (
	"time"

	"circlehub/internal/microservices/http-api/repository"
	"circlehub/internal/microservices/http-api/service"
)

type LeaderboardEntryResponse struct {
	Rank                int     `json:"rank"`
	UserID              string  `json:"user_id"`
	Username            string  `json:"username"`
	AvatarURL           *string `json:"avatar_url,omitempty"`
	CirclePoints        int     `json:"circle_points"`
	ChallengesCompleted int     `json:"challenges_completed"`
	IsCurrentUser       bool    `json:"is_current_user"`
}

func FromLeaderboard(entries []service.LeaderboardEntry) []LeaderboardEntryResponse {
	out := make([]LeaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntryResponse{
			Rank:                e.Rank,
			UserID:              e.UserID,
			Username:            e.Username,
			AvatarURL:           e.AvatarURL,
			CirclePoints:        e.CirclePoints,
			ChallengesCompleted: e.ChallengesCompleted,
			IsCurrentUser:       e.IsCurrentUser,
		})
	}
	return out
}

type ActivityResponse struct {
	ID           int64     `json:"id"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	ActivityType string    `json:"activity_type"`
	ChallengeID  *int64    `json:"challenge_id,omitempty"`
	BookTitle    *string   `json:"book_title,omitempty"`
	BookCover    *string   `json:"book_cover,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

func FromActivities(list []repository.ActivityView) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(list))
	for _, a := range list {
		out = append(out, ActivityResponse{
			ID:           a.ID,
			UserID:       a.UserID,
			Username:     a.Username,
			AvatarURL:    a.AvatarURL,
			ActivityType: string(a.Type),
			ChallengeID:  a.ChallengeID,
			BookTitle:    a.BookTitle,
			BookCover:    a.BookCover,
			Content:      a.Content,
			CreatedAt:    a.CreatedAt,
		})
	}
	return out
}
