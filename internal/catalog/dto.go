package catalog

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
)

type MenuItemDTO struct {
	ID          uuid.UUID `json:"id"`
	CategoryID  uuid.UUID `json:"category_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsAvailable bool      `json:"is_available"`
}

type CategoryDTO struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	DisplayOrder int           `json:"display_order"`
	Items        []MenuItemDTO `json:"items"`
}

type NewsDTO struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toMenuItemDTO(m models.MenuItem) MenuItemDTO {
	return MenuItemDTO{
		ID:          m.ID,
		CategoryID:  m.CategoryID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		ImageURL:    m.ImageURL,
		IsAvailable: m.IsAvailable,
	}
}

func toCategoryDTO(c models.Category) CategoryDTO {
	items := make([]MenuItemDTO, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, toMenuItemDTO(item))
	}
	return CategoryDTO{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		DisplayOrder: c.DisplayOrder,
		Items:        items,
	}
}

func toNewsDTO(n models.NewsPost) NewsDTO {
	return NewsDTO{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		ImageURL:  n.ImageURL,
		CreatedAt: n.CreatedAt,
	}
}
