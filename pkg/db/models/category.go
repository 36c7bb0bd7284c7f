package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups menu items for display.
type Category struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Name         string     `gorm:"column:name;type:text;not null"`
	Description  string     `gorm:"column:description;type:text;not null;default:''"`
	DisplayOrder int        `gorm:"column:display_order;not null;default:0"`
	Items        []MenuItem `gorm:"foreignKey:CategoryID"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
