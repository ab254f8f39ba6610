package repository

import (
	"context"
	"fmt"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MemberView is a membership joined with the member's display fields.
type MemberView struct {
	models.CircleMember `gorm:"embedded"`
	Username            string  `json:"username"`
	AvatarURL           *string `json:"avatar_url,omitempty"`
}

type MemberRepository interface {
	Create(ctx context.Context, member *models.CircleMember) error
	Get(ctx context.Context, circleID int64, userID string) (*models.CircleMember, error)
	// GetForUpdate locks the membership row until the transaction ends.
	GetForUpdate(ctx context.Context, circleID int64, userID string) (*models.CircleMember, error)
	Delete(ctx context.Context, circleID int64, userID string) error
	CountAdmins(ctx context.Context, circleID int64) (int64, error)
	ListByCircle(ctx context.Context, circleID int64) ([]MemberView, error)
	UpdateRole(ctx context.Context, circleID int64, userID string, role models.MemberRole) error
	// AddPoints is the only write path for circle_points.
	AddPoints(ctx context.Context, memberID int64, points int) error
}

type memberRepository struct {
	db *gorm.DB
}

func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

func (r *memberRepository) Create(ctx context.Context, member *models.CircleMember) error {
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return fmt.Errorf("create member: %w", translate(err))
	}
	return nil
}

func (r *memberRepository) Get(ctx context.Context, circleID int64, userID string) (*models.CircleMember, error) {
	var m models.CircleMember
	if err := r.db.WithContext(ctx).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *memberRepository) GetForUpdate(ctx context.Context, circleID int64, userID string) (*models.CircleMember, error) {
	var m models.CircleMember
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *memberRepository) Delete(ctx context.Context, circleID int64, userID string) error {
	result := r.db.WithContext(ctx).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		Delete(&models.CircleMember{})
	if result.Error != nil {
		return fmt.Errorf("delete member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *memberRepository) CountAdmins(ctx context.Context, circleID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CircleMember{}).
		Where("circle_id = ? AND role = ?", circleID, models.RoleAdmin).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

func (r *memberRepository) ListByCircle(ctx context.Context, circleID int64) ([]MemberView, error) {
	var list []MemberView
	if err := r.db.WithContext(ctx).
		Table("circle_members").
		Select("circle_members.*, COALESCE(u.username, 'Unknown') AS username, u.avatar_url AS avatar_url").
		Joins("LEFT JOIN users u ON u.id = circle_members.user_id").
		Where("circle_members.circle_id = ?", circleID).
		Order("circle_members.joined_at ASC").
		Scan(&list).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return list, nil
}

func (r *memberRepository) UpdateRole(ctx context.Context, circleID int64, userID string, role models.MemberRole) error {
	result := r.db.WithContext(ctx).
		Model(&models.CircleMember{}).
		Where("circle_id = ? AND user_id = ?", circleID, userID).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *memberRepository) AddPoints(ctx context.Context, memberID int64, points int) error {
	if points == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.CircleMember{}).
		Where("id = ?", memberID).
		Update("circle_points", gorm.Expr("circle_points + ?", points)).Error; err != nil {
		return fmt.Errorf("add points: %w", err)
	}
	return nil
}
