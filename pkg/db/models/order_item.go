package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderItem snapshots a cart line at checkout time.
type OrderItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	MenuItemID   uuid.UUID `gorm:"column:menu_item_id;type:uuid;not null"`
	Name         string    `gorm:"column:name;type:text;not null"`
	Quantity     int       `gorm:"column:quantity;not null;check:quantity >= 1"`
	UnitPrice    int64     `gorm:"column:unit_price;not null"`
	LineSubtotal int64     `gorm:"column:line_subtotal;not null"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
