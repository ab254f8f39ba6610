package models

import "time"

// Library statuses as written by the library collaborator.
const (
	LibraryStatusRead             = "read"
	LibraryStatusCurrentlyReading = "currently_reading"
	LibraryStatusWantToRead       = "want_to_read"
	LibraryStatusOwned            = "owned"
)

// LibraryEntry is a row of a user's personal library.
type LibraryEntry struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"user_id"`
	BookID      int64      `gorm:"not null;index" json:"book_id"`
	Status      string     `gorm:"type:varchar(50)" json:"status"`
	CurrentPage *int       `json:"current_page,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	AddedAt     time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"added_at"`
}

func (LibraryEntry) TableName() string {
	return "user_books"
}

// IsFinished reports whether the book is marked as read.
func (e *LibraryEntry) IsFinished() bool {
	return e.Status == LibraryStatusRead
}

// Page is the current page, 0 when unset.
func (e *LibraryEntry) Page() int {
	if e.CurrentPage == nil {
		return 0
	}
	return *e.CurrentPage
}

// CompletedAt is the finished timestamp falling back to when the book was added.
func (e *LibraryEntry) CompletedAt() time.Time {
	if e.FinishedAt != nil {
		return *e.FinishedAt
	}
	return e.AddedAt
}
