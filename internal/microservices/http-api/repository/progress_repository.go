package repository

import (
	"context"
	"fmt"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressView is a progress row with the member's display fields.
type ProgressView struct {
	models.ChallengeProgress `gorm:"embedded"`
	Username                 string  `json:"username"`
	AvatarURL                *string `json:"avatar_url,omitempty"`
}

type ProgressRepository interface {
	// Seed inserts zero-valued rows, skipping pairs that already exist.
	Seed(ctx context.Context, rows []models.ChallengeProgress) error
	// GetOrCreateForUpdate returns the (challenge, user) row locked for the
	// rest of the transaction, inserting a zero row first if needed.
	GetOrCreateForUpdate(ctx context.Context, challengeID int64, userID string) (*models.ChallengeProgress, error)
	Save(ctx context.Context, progress *models.ChallengeProgress) error
	ListByChallenges(ctx context.Context, challengeIDs []int64) ([]ProgressView, error)
	// CountCompletedByCircle maps user id to completed challenges in the circle.
	CountCompletedByCircle(ctx context.Context, circleID int64) (map[string]int, error)
}

type progressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Seed(ctx context.Context, rows []models.ChallengeProgress) error {
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error; err != nil {
		return fmt.Errorf("seed progress: %w", err)
	}
	return nil
}

func (r *progressRepository) GetOrCreateForUpdate(ctx context.Context, challengeID int64, userID string) (*models.ChallengeProgress, error) {
	db := r.db.WithContext(ctx)
	// ON CONFLICT keeps two first-time writers from racing on the insert;
	// the row lock below then serializes them.
	seed := &models.ChallengeProgress{ChallengeID: challengeID, UserID: userID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(seed).Error; err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}

	var p models.ChallengeProgress
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		First(&p).Error; err != nil {
		return nil, fmt.Errorf("lock progress: %w", translate(err))
	}
	return &p, nil
}

func (r *progressRepository) Save(ctx context.Context, progress *models.ChallengeProgress) error {
	if err := r.db.WithContext(ctx).
		Model(progress).
		Select("current_value", "completed", "completed_at", "updated_at").
		Updates(progress).Error; err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (r *progressRepository) ListByChallenges(ctx context.Context, challengeIDs []int64) ([]ProgressView, error) {
	var list []ProgressView
	if len(challengeIDs) == 0 {
		return list, nil
	}
	if err := r.db.WithContext(ctx).
		Table("challenge_progress").
		Select("challenge_progress.*, COALESCE(u.username, 'Unknown') AS username, u.avatar_url AS avatar_url").
		Joins("LEFT JOIN users u ON u.id = challenge_progress.user_id").
		Where("challenge_progress.challenge_id IN ?", challengeIDs).
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return list, nil
}

func (r *progressRepository) CountCompletedByCircle(ctx context.Context, circleID int64) (map[string]int, error) {
	var rows []struct {
		UserID string
		Total  int
	}
	if err := r.db.WithContext(ctx).
		Table("challenge_progress AS p").
		Select("p.user_id AS user_id, COUNT(*) AS total").
		Joins("JOIN circle_challenges c ON c.id = p.challenge_id").
		Where("c.circle_id = ? AND p.completed = ?", circleID, true).
		Group("p.user_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count completed: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Total
	}
	return out, nil
}
