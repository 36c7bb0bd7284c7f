package catalog

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/google/uuid"
)

const defaultNewsLimit = 20

type catalogRepository interface {
	ListCategories(ctx context.Context, categoryID *uuid.UUID) ([]models.Category, error)
	FindAvailableItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	ListNews(ctx context.Context, limit int) ([]models.NewsPost, error)
	FindNews(ctx context.Context, id uuid.UUID) (*models.NewsPost, error)
}

// Service serves the public menu and news feed.
type Service interface {
	Menu(ctx context.Context, categoryID *uuid.UUID) ([]CategoryDTO, error)
	GetItem(ctx context.Context, id uuid.UUID) (*MenuItemDTO, error)
	News(ctx context.Context, limit int) ([]NewsDTO, error)
	GetNews(ctx context.Context, id uuid.UUID) (*NewsDTO, error)
}

type service struct {
	repo catalogRepository
}

// NewService builds a catalog service.
func NewService(r catalogRepository) (Service, error) {
	if r == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: r}, nil
}

func (s *service) Menu(ctx context.Context, categoryID *uuid.UUID) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list menu")
	}
	if categoryID != nil && len(categories) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	out := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryDTO(c))
	}
	return out, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*MenuItemDTO, error) {
	item, err := s.repo.FindAvailableItem(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load menu item")
	}
	dto := toMenuItemDTO(*item)
	return &dto, nil
}

func (s *service) News(ctx context.Context, limit int) ([]NewsDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultNewsLimit
	}
	posts, err := s.repo.ListNews(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list news")
	}
	out := make([]NewsDTO, 0, len(posts))
	for _, p := range posts {
		out = append(out, toNewsDTO(p))
	}
	return out, nil
}

func (s *service) GetNews(ctx context.Context, id uuid.UUID) (*NewsDTO, error) {
	post, err := s.repo.FindNews(ctx, id)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "news post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load news post")
	}
	dto := toNewsDTO(*post)
	return &dto, nil
}
