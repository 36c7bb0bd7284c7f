package models

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Username     string           `gorm:"column:username;type:text;not null;uniqueIndex"`
	Email        string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	FirstName    string           `gorm:"column:first_name;not null;default:''"`
	LastName     string           `gorm:"column:last_name;not null;default:''"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time       `gorm:"column:last_login_at"`
	SystemRole   enums.SystemRole `gorm:"column:system_role;type:text;not null;default:'customer'"`
	Profile      *LoyaltyProfile  `gorm:"foreignKey:UserID"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.SystemRole == "" {
		u.SystemRole = enums.SystemRoleCustomer
	}
	return nil
}
