package repository

import (
	"context"
	"fmt"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// LibraryReader is the read-only view of users' personal libraries.
type LibraryReader interface {
	// GetEntry returns ErrNotFound when the book is not in the user's library.
	GetEntry(ctx context.Context, userID string, bookID int64) (*models.LibraryEntry, error)
	// ListFinished returns every entry with status "read", oldest first.
	ListFinished(ctx context.Context, userID string) ([]models.LibraryEntry, error)
}

type libraryRepository struct {
	db *gorm.DB
}

func NewLibraryRepository(db *gorm.DB) LibraryReader {
	return &libraryRepository{db: db}
}

func (r *libraryRepository) GetEntry(ctx context.Context, userID string, bookID int64) (*models.LibraryEntry, error) {
	var entry models.LibraryEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&entry).Error; err != nil {
		return nil, fmt.Errorf("get library entry: %w", translate(err))
	}
	return &entry, nil
}

func (r *libraryRepository) ListFinished(ctx context.Context, userID string) ([]models.LibraryEntry, error) {
	var entries []models.LibraryEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.LibraryStatusRead).
		Order("COALESCE(finished_at, added_at) ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list finished books: %w", err)
	}
	return entries, nil
}
