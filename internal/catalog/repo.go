package catalog

import (
	"context"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads the menu and the news feed.
type Repository struct {
	repo.Base
}

// NewRepository binds a catalog repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListCategories returns categories ordered for display with their available
// items preloaded. A non-nil categoryID narrows the result to that category.
func (r *Repository) ListCategories(ctx context.Context, categoryID *uuid.UUID) ([]models.Category, error) {
	query := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_available = ?", true).Order("name ASC")
		}).
		Order("display_order ASC").
		Order("name ASC")
	if categoryID != nil {
		query = query.Where("id = ?", *categoryID)
	}

	var categories []models.Category
	if err := query.Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindAvailableItem returns an orderable menu item.
func (r *Repository) FindAvailableItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.DB(ctx).
		Where("id = ? AND is_available = ?", id, true).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// ListNews returns active posts, newest first.
func (r *Repository) ListNews(ctx context.Context, limit int) ([]models.NewsPost, error) {
	var posts []models.NewsPost
	if err := r.DB(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// FindNews returns one active post.
func (r *Repository) FindNews(ctx context.Context, id uuid.UUID) (*models.NewsPost, error) {
	var post models.NewsPost
	if err := r.DB(ctx).Where("id = ? AND is_active = ?", id, true).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}
