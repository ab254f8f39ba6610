package models

import "time"

// Book is a catalog entry. Only the fields used for challenge targets and
// display enrichment are mapped.
type Book struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string     `json:"title" gorm:"not null"`
	Author    string     `json:"author" gorm:"not null"`
	Genre     *string    `json:"genre,omitempty"`
	PageCount *int       `json:"page_count,omitempty"`
	CoverURL  *string    `json:"cover_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" gorm:"autoCreateTime"`
}

func (Book) TableName() string {
	return "books"
}

// Pages returns the page count, or 0 when the catalog doesn't know it.
func (b *Book) Pages() int {
	if b == nil || b.PageCount == nil {
		return 0
	}
	return *b.PageCount
}
