package models

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order is immutable after checkout except for Status.
type Order struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID              uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status              enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	Subtotal            int64                `gorm:"column:subtotal;not null;default:0"`
	DiscountApplied     int64                `gorm:"column:discount_applied;not null;default:0"`
	DiscountSource      enums.DiscountSource `gorm:"column:discount_source;type:text;not null;default:'none'"`
	TotalAmount         int64                `gorm:"column:total_amount;not null;default:0"`
	PointsEarned        int64                `gorm:"column:points_earned;not null;default:0"`
	CustomerName        string               `gorm:"column:customer_name;type:text;not null"`
	Phone               string               `gorm:"column:phone;type:text;not null"`
	DeliveryAddress     string               `gorm:"column:delivery_address;type:text;not null"`
	PaymentMethod       enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	SpecialInstructions string               `gorm:"column:special_instructions;type:text;not null;default:''"`
	Items               []OrderItem          `gorm:"foreignKey:OrderID"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	if o.DiscountSource == "" {
		o.DiscountSource = enums.DiscountSourceNone
	}
	return nil
}
