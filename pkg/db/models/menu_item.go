package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuItem is an orderable dish. Price is in whole currency units.
type MenuItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID  uuid.UUID `gorm:"column:category_id;type:uuid;not null;index"`
	Name        string    `gorm:"column:name;type:text;not null"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	Price       int64     `gorm:"column:price;not null;check:price >= 0"`
	ImageURL    *string   `gorm:"column:image_url;type:text"`
	IsAvailable bool      `gorm:"column:is_available;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
