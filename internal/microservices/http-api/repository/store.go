package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the circle repositories so a service can run several
// writes as one transaction.
type Store interface {
	Circles() CircleRepository
	Members() MemberRepository
	Challenges() ChallengeRepository
	Progress() ProgressRepository
	Activities() ActivityRepository

	// Transaction runs fn against a store bound to a single database
	// transaction. Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Circles() CircleRepository       { return &circleRepository{db: s.db} }
func (s *gormStore) Members() MemberRepository       { return &memberRepository{db: s.db} }
func (s *gormStore) Challenges() ChallengeRepository { return &challengeRepository{db: s.db} }
func (s *gormStore) Progress() ProgressRepository    { return &progressRepository{db: s.db} }
func (s *gormStore) Activities() ActivityRepository  { return &activityRepository{db: s.db} }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
