package models

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StagedBenefit is a paid-for discount or reward waiting for the user's next
// checkout. ConsumedAt is set exactly once, by the checkout that applied it.
type StagedBenefit struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Kind         enums.BenefitKind   `gorm:"column:kind;type:text;not null"`
	DiscountType *enums.DiscountType `gorm:"column:discount_type;type:text"`
	DiscountRate string              `gorm:"column:discount_rate;type:text;not null;default:'0'"`
	RedemptionID *uuid.UUID          `gorm:"column:redemption_id;type:uuid"`
	PointsSpent  int64               `gorm:"column:points_spent;not null"`
	ExpiresAt    time.Time           `gorm:"column:expires_at;not null"`
	ConsumedAt   *time.Time          `gorm:"column:consumed_at"`
	OrderID      *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (b *StagedBenefit) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
