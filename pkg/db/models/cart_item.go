package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one (cart, menu item) line. Quantity is always >= 1.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID     uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:cart_items_cart_menu_item_key"`
	MenuItemID uuid.UUID `gorm:"column:menu_item_id;type:uuid;not null;uniqueIndex:cart_items_cart_menu_item_key"`
	Quantity   int       `gorm:"column:quantity;not null;check:quantity >= 1"`
	MenuItem   *MenuItem `gorm:"foreignKey:MenuItemID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
