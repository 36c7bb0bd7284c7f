package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoyaltyProfile holds the point balance and VIP tier of exactly one user.
type LoyaltyProfile struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Phone     string     `gorm:"column:phone;type:text;not null;default:''"`
	Address   string     `gorm:"column:address;type:text;not null;default:''"`
	Points    int64      `gorm:"column:points;not null;default:0;check:points >= 0"`
	IsVIP     bool       `gorm:"column:is_vip;not null;default:false"`
	VIPSince  *time.Time `gorm:"column:vip_since"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (LoyaltyProfile) TableName() string {
	return "loyalty_profiles"
}

func (p *LoyaltyProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
