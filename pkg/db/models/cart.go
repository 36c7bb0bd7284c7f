package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is owned by exactly one of a user or an anonymous session key.
type Cart struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionKey *string    `gorm:"column:session_key;type:text;uniqueIndex"`
	Items      []CartItem `gorm:"foreignKey:CartID"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the cart belongs to an anonymous session.
func (c *Cart) IsGuest() bool {
	return c.UserID == nil
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
