package service

import (
	"context"

	"circlehub/internal/microservices/http-api/repository"
)

const (
	DefaultActivityLimit = 30
	MaxActivityLimit     = 100
)

type ActivityService interface {
	List(ctx context.Context, userID string, circleID int64, limit int) ([]repository.ActivityView, error)
}

type activityService struct {
	store repository.Store
}

func NewActivityService(store repository.Store) ActivityService {
	return &activityService{store: store}
}

// List returns the newest feed rows first.
func (s *activityService) List(ctx context.Context, userID string, circleID int64, limit int) ([]repository.ActivityView, error) {
	if _, err := requireMember(ctx, s.store, circleID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}
	return s.store.Activities().ListByCircle(ctx, circleID, limit)
}
