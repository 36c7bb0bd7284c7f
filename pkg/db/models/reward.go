package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reward is a staff-defined item customers can buy with points.
type Reward struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name           string    `gorm:"column:name;type:text;not null"`
	Description    string    `gorm:"column:description;type:text;not null;default:''"`
	PointsRequired int64     `gorm:"column:points_required;not null;check:points_required >= 1"`
	Tier           int       `gorm:"column:tier;not null;default:1"`
	IsActive       bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Reward) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RewardRedemption is the append-only audit row of a catalog reward purchase.
type RewardRedemption struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	RewardID    uuid.UUID  `gorm:"column:reward_id;type:uuid;not null"`
	PointsSpent int64      `gorm:"column:points_spent;not null"`
	OrderID     *uuid.UUID `gorm:"column:order_id;type:uuid"`
	Reward      *Reward    `gorm:"foreignKey:RewardID"`
	RedeemedAt  time.Time  `gorm:"column:redeemed_at;autoCreateTime"`
}

func (r *RewardRedemption) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
