package models

import "time"

type ActivityType string

const (
	ActivityCircleCreated     ActivityType = "created_circle"
	ActivityJoined            ActivityType = "joined"
	ActivityChallengeCreated  ActivityType = "challenge_created"
	ActivityChallengeComplete ActivityType = "challenge_complete"
	ActivityProgressUpdate    ActivityType = "progress_update"
)

// CircleActivity is an append-only feed row.
type CircleActivity struct {
	ID          int64        `json:"id" gorm:"primaryKey;autoIncrement"`
	CircleID    int64        `json:"circle_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	UserID      string       `json:"user_id" gorm:"type:uuid;not null"`
	Type        ActivityType `json:"activity_type" gorm:"column:activity_type;type:varchar(50);not null"`
	ChallengeID *int64       `json:"challenge_id,omitempty"`
	BookID      *int64       `json:"book_id,omitempty"`
	Content     string       `json:"content" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime;index"`

	Circle *Circle `json:"-" gorm:"foreignKey:CircleID;constraint:OnDelete:CASCADE;"`
}

func (CircleActivity) TableName() string {
	return "circle_activities"
}
