package models

import (
	"errors"
	"strings"
	"time"
)

type ChallengeType string

const (
	ChallengeBookRace   ChallengeType = "book_race"
	ChallengeBooksCount ChallengeType = "books_count"
	ChallengePagesCount ChallengeType = "pages_count"
	ChallengeGenre      ChallengeType = "genre_challenge"
)

var (
	ErrUnknownChallengeType = errors.New("unknown challenge type")
	ErrMissingTargetBook    = errors.New("book race requires a target book")
	ErrInvalidTargetCount   = errors.New("count challenges require a positive target count")
	ErrMissingTargetGenre   = errors.New("genre challenge requires a genre and a positive target count")
)

// Target is the type-specific goal of a challenge. Exactly one variant
// exists per ChallengeType and each carries only its own fields.
type Target interface {
	Type() ChallengeType
	// PointsPerUnit is the award for one unit of progress.
	PointsPerUnit() int
	validate() error
}

type BookRaceTarget struct {
	BookID int64
}

type BooksCountTarget struct {
	Count int
}

type PagesCountTarget struct {
	Count int
}

type GenreTarget struct {
	Genre string
	Count int
}

func (BookRaceTarget) Type() ChallengeType   { return ChallengeBookRace }
func (BooksCountTarget) Type() ChallengeType { return ChallengeBooksCount }
func (PagesCountTarget) Type() ChallengeType { return ChallengePagesCount }
func (GenreTarget) Type() ChallengeType      { return ChallengeGenre }

// One point per page for races, ten per item otherwise.
func (BookRaceTarget) PointsPerUnit() int   { return 1 }
func (BooksCountTarget) PointsPerUnit() int { return 10 }
func (PagesCountTarget) PointsPerUnit() int { return 10 }
func (GenreTarget) PointsPerUnit() int      { return 10 }

func (t BookRaceTarget) validate() error {
	if t.BookID <= 0 {
		return ErrMissingTargetBook
	}
	return nil
}

func (t BooksCountTarget) validate() error {
	if t.Count <= 0 {
		return ErrInvalidTargetCount
	}
	return nil
}

func (t PagesCountTarget) validate() error {
	if t.Count <= 0 {
		return ErrInvalidTargetCount
	}
	return nil
}

func (t GenreTarget) validate() error {
	if strings.TrimSpace(t.Genre) == "" || t.Count <= 0 {
		return ErrMissingTargetGenre
	}
	return nil
}

// NewTarget builds the variant for kind from the optional request fields
// and validates that the fields required by the variant are present.
func NewTarget(kind ChallengeType, bookID *int64, count *int, genre *string) (Target, error) {
	var t Target
	switch kind {
	case ChallengeBookRace:
		if bookID == nil {
			return nil, ErrMissingTargetBook
		}
		t = BookRaceTarget{BookID: *bookID}
	case ChallengeBooksCount, ChallengePagesCount:
		if count == nil {
			return nil, ErrInvalidTargetCount
		}
		if kind == ChallengeBooksCount {
			t = BooksCountTarget{Count: *count}
		} else {
			t = PagesCountTarget{Count: *count}
		}
	case ChallengeGenre:
		if genre == nil || count == nil {
			return nil, ErrMissingTargetGenre
		}
		t = GenreTarget{Genre: strings.TrimSpace(*genre), Count: *count}
	default:
		return nil, ErrUnknownChallengeType
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Challenge is a time-boxed goal inside a circle. The target columns are
// flat for storage; use Target() to work with them.
type Challenge struct {
	ID           int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	CircleID     int64         `json:"circle_id" gorm:"not null;index;constraint:OnDelete:CASCADE"`
	Name         string        `json:"name" gorm:"size:150;not null"`
	Description  string        `json:"description" gorm:"type:text"`
	Kind         ChallengeType `json:"challenge_type" gorm:"column:challenge_type;type:varchar(30);not null"`
	TargetBookID *int64        `json:"target_book_id,omitempty"`
	TargetCount  *int          `json:"target_count,omitempty"`
	TargetGenre  *string       `json:"target_genre,omitempty" gorm:"size:100"`
	StartDate    time.Time     `json:"start_date" gorm:"not null"`
	EndDate      time.Time     `json:"end_date" gorm:"not null"`
	IsActive     bool          `json:"is_active" gorm:"not null;default:true"`
	CreatedBy    string        `json:"created_by" gorm:"type:uuid;not null"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`

	Circle *Circle `json:"-" gorm:"foreignKey:CircleID;constraint:OnDelete:CASCADE;"`
}

func (Challenge) TableName() string {
	return "circle_challenges"
}

// SetTarget stores the variant into the flat columns.
func (c *Challenge) SetTarget(t Target) {
	c.Kind = t.Type()
	c.TargetBookID, c.TargetCount, c.TargetGenre = nil, nil, nil
	switch v := t.(type) {
	case BookRaceTarget:
		id := v.BookID
		c.TargetBookID = &id
	case BooksCountTarget:
		n := v.Count
		c.TargetCount = &n
	case PagesCountTarget:
		n := v.Count
		c.TargetCount = &n
	case GenreTarget:
		n, g := v.Count, v.Genre
		c.TargetCount = &n
		c.TargetGenre = &g
	}
}

// Target rebuilds the variant from the stored columns.
func (c *Challenge) Target() (Target, error) {
	return NewTarget(c.Kind, c.TargetBookID, c.TargetCount, c.TargetGenre)
}

// OpenAt reports whether progress may be recorded at now.
func (c *Challenge) OpenAt(now time.Time) bool {
	return c.IsActive && !now.After(c.EndDate)
}

// ChallengeProgress is one member's value toward a challenge. Completed
// never goes back to false once set.
type ChallengeProgress struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ChallengeID  int64      `json:"challenge_id" gorm:"not null;uniqueIndex:idx_challenge_user;constraint:OnDelete:CASCADE"`
	UserID       string     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_challenge_user"`
	CurrentValue int        `json:"current_value" gorm:"not null;default:0"`
	Completed    bool       `json:"completed" gorm:"not null;default:false"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Challenge *Challenge `json:"-" gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE;"`
}

func (ChallengeProgress) TableName() string {
	return "challenge_progress"
}
