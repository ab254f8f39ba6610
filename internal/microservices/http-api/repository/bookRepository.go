package repository

import (
	"context"
	"fmt"

	"circlehub/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// BookCatalog reads the shared book catalog. Books are owned elsewhere;
// this service never writes them.
type BookCatalog interface {
	GetBook(ctx context.Context, id int64) (*models.Book, error)
}

type BookRepo struct {
	db *gorm.DB
}

func NewBookRepo(db *gorm.DB) *BookRepo {
	return &BookRepo{db: db}
}

func (r *BookRepo) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, fmt.Errorf("get book %d: %w", id, translate(err))
	}
	return &b, nil
}
