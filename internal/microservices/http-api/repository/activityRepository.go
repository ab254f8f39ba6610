package repository

import (
	"context"
	"fmt"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// ActivityView is a feed row with user and book display fields.
type ActivityView struct {
	models.CircleActivity `gorm:"embedded"`
	Username              string  `json:"username"`
	AvatarURL             *string `json:"avatar_url,omitempty"`
	BookTitle             *string `json:"book_title,omitempty"`
	BookCover             *string `json:"book_cover,omitempty"`
}

// ActivityRepository is append-only: there is no update or delete.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.CircleActivity) error
	ListByCircle(ctx context.Context, circleID int64, limit int) ([]ActivityView, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *models.CircleActivity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (r *activityRepository) ListByCircle(ctx context.Context, circleID int64, limit int) ([]ActivityView, error) {
	var list []ActivityView
	if err := r.db.WithContext(ctx).
		Table("circle_activities").
		Select("circle_activities.*, COALESCE(u.username, 'Unknown') AS username, u.avatar_url AS avatar_url, "+
			"b.title AS book_title, b.cover_url AS book_cover").
		Joins("LEFT JOIN users u ON u.id = circle_activities.user_id").
		Joins("LEFT JOIN books b ON b.id = circle_activities.book_id").
		Where("circle_activities.circle_id = ?", circleID).
		Order("circle_activities.created_at DESC, circle_activities.id DESC").
		Limit(limit).
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return list, nil
}
