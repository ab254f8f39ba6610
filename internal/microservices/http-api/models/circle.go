package models

import "time"

type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

func (r MemberRole) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Circle is a reading group. InviteCode never changes after creation.
type Circle struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Description string    `json:"description" gorm:"type:text"`
	InviteCode  string    `json:"invite_code" gorm:"size:20;uniqueIndex:idx_circles_invite_code;not null"`
	IsPrivate   bool      `json:"is_private" gorm:"not null;default:false"`
	CreatedBy   string    `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (Circle) TableName() string {
	return "reading_circles"
}

// CircleMember is the (circle, user) membership. CirclePoints is only
// changed through the points ledger.
type CircleMember struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	CircleID     int64      `json:"circle_id" gorm:"not null;uniqueIndex:idx_circle_member;constraint:OnDelete:CASCADE"`
	UserID       string     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_circle_member"`
	Role         MemberRole `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	CirclePoints int        `json:"circle_points" gorm:"not null;default:0"`
	JoinedAt     time.Time  `json:"joined_at" gorm:"autoCreateTime"`

	Circle *Circle `json:"-" gorm:"foreignKey:CircleID;constraint:OnDelete:CASCADE;"`
}

func (CircleMember) TableName() string {
	return "circle_members"
}

func (m *CircleMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}
