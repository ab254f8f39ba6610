package repository

import (
	"context"
	"fmt"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CircleSummary is a circle row plus aggregate and per-viewer columns.
type CircleSummary struct {
	models.Circle `gorm:"embedded"`
	MemberCount   int64             `json:"member_count"`
	MyRole        models.MemberRole `json:"my_role,omitempty"`
	MyPoints      int               `json:"my_points"`
}

type CircleRepository interface {
	Create(ctx context.Context, circle *models.Circle) error
	GetByID(ctx context.Context, id int64) (*models.Circle, error)
	// GetForUpdate locks the circle row until the transaction ends. Writers
	// that check a circle-wide rule (the admin count) take it before any
	// membership lock.
	GetForUpdate(ctx context.Context, id int64) (*models.Circle, error)
	GetByInviteCode(ctx context.Context, code string) (*models.Circle, error)
	InviteCodeExists(ctx context.Context, code string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]CircleSummary, error)
	ListPublic(ctx context.Context, excludeUserID string, limit int) ([]CircleSummary, error)
	Update(ctx context.Context, circle *models.Circle) error
	Delete(ctx context.Context, id int64) error
}

type circleRepository struct {
	db *gorm.DB
}

func NewCircleRepository(db *gorm.DB) CircleRepository {
	return &circleRepository{db: db}
}

func (r *circleRepository) Create(ctx context.Context, circle *models.Circle) error {
	if err := r.db.WithContext(ctx).Create(circle).Error; err != nil {
		return fmt.Errorf("create circle: %w", translate(err))
	}
	return nil
}

func (r *circleRepository) GetByID(ctx context.Context, id int64) (*models.Circle, error) {
	var c models.Circle
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *circleRepository) GetForUpdate(ctx context.Context, id int64) (*models.Circle, error) {
	var c models.Circle
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *circleRepository) GetByInviteCode(ctx context.Context, code string) (*models.Circle, error) {
	var c models.Circle
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *circleRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Circle{}).
		Where("invite_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

const memberCountSelect = "(SELECT COUNT(*) FROM circle_members cm WHERE cm.circle_id = c.id) AS member_count"

func (r *circleRepository) ListForUser(ctx context.Context, userID string) ([]CircleSummary, error) {
	var list []CircleSummary
	if err := r.db.WithContext(ctx).
		Table("reading_circles AS c").
		Select("c.*, m.role AS my_role, m.circle_points AS my_points, "+memberCountSelect).
		Joins("JOIN circle_members m ON m.circle_id = c.id AND m.user_id = ?", userID).
		Order("c.created_at DESC").
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("list circles for user: %w", err)
	}
	return list, nil
}

// ListPublic returns the newest public circles excludeUserID is not part of.
func (r *circleRepository) ListPublic(ctx context.Context, excludeUserID string, limit int) ([]CircleSummary, error) {
	var list []CircleSummary
	if err := r.db.WithContext(ctx).
		Table("reading_circles AS c").
		Select("c.*, "+memberCountSelect).
		Where("c.is_private = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM circle_members x WHERE x.circle_id = c.id AND x.user_id = ?)", excludeUserID).
		Order("c.created_at DESC").
		Limit(limit).
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("list public circles: %w", err)
	}
	return list, nil
}

func (r *circleRepository) Update(ctx context.Context, circle *models.Circle) error {
	if err := r.db.WithContext(ctx).
		Model(circle).
		Select("name", "description", "is_private").
		Updates(circle).Error; err != nil {
		return fmt.Errorf("update circle: %w", err)
	}
	return nil
}

// Delete removes the circle and everything hanging off it. The foreign keys
// cascade as well; the explicit deletes keep this correct on schemas where
// they were created without ON DELETE.
func (r *circleRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	challengeIDs := db.Model(&models.Challenge{}).Select("id").Where("circle_id = ?", id)
	steps := []struct {
		what  string
		model any
		query *gorm.DB
	}{
		{"activity", &models.CircleActivity{}, db.Where("circle_id = ?", id)},
		{"progress", &models.ChallengeProgress{}, db.Where("challenge_id IN (?)", challengeIDs)},
		{"challenges", &models.Challenge{}, db.Where("circle_id = ?", id)},
		{"members", &models.CircleMember{}, db.Where("circle_id = ?", id)},
	}
	for _, s := range steps {
		if err := s.query.Delete(s.model).Error; err != nil {
			return fmt.Errorf("delete circle %s: %w", s.what, err)
		}
	}
	result := db.Delete(&models.Circle{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete circle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
