package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewsPost is a restaurant announcement or promotion.
type NewsPost struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title     string    `gorm:"column:title;type:text;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	ImageURL  *string   `gorm:"column:image_url;type:text"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (NewsPost) TableName() string {
	return "news_posts"
}

func (n *NewsPost) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
