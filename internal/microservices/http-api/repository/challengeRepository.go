package repository

import (
	"context"
	"fmt"
	"time"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetInCircle(ctx context.Context, circleID, challengeID int64) (*models.Challenge, error)
	// List returns the circle's challenges newest first. With activeOnly it
	// keeps only active challenges whose end date is not before now.
	List(ctx context.Context, circleID int64, activeOnly bool, now time.Time) ([]models.Challenge, error)
	SetActive(ctx context.Context, challengeID int64, active bool) error
}

type challengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db}
}

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	if err := r.db.WithContext(ctx).Create(challenge).Error; err != nil {
		return fmt.Errorf("create challenge: %w", translate(err))
	}
	return nil
}

func (r *challengeRepository) GetInCircle(ctx context.Context, circleID, challengeID int64) (*models.Challenge, error) {
	var ch models.Challenge
	if err := r.db.WithContext(ctx).
		Where("id = ? AND circle_id = ?", challengeID, circleID).
		First(&ch).Error; err != nil {
		return nil, translate(err)
	}
	return &ch, nil
}

func (r *challengeRepository) List(ctx context.Context, circleID int64, activeOnly bool, now time.Time) ([]models.Challenge, error) {
	var list []models.Challenge
	q := r.db.WithContext(ctx).Where("circle_id = ?", circleID)
	if activeOnly {
		q = q.Where("is_active = ? AND end_date >= ?", true, now)
	}
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	return list, nil
}

func (r *challengeRepository) SetActive(ctx context.Context, challengeID int64, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ?", challengeID).
		Update("is_active", active)
	if result.Error != nil {
		return fmt.Errorf("set challenge active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
