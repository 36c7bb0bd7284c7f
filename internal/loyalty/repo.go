package loyalty

import (
	"context"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists loyalty profiles.
type Repository struct {
	repo.Base
}

// NewRepository binds a profile repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Create inserts a new profile.
func (r *Repository) Create(ctx context.Context, profile *models.LoyaltyProfile) error {
	return r.DB(ctx).Create(profile).Error
}

// FindByUserID returns the profile of a user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.LoyaltyProfile, error) {
	var profile models.LoyaltyProfile
	if err := r.DB(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// LockByUserID provisions the profile when it does not exist yet and returns
// it under a row lock held until the transaction ends.
func (r *Repository) LockByUserID(ctx context.Context, userID uuid.UUID) (*models.LoyaltyProfile, error) {
	seed := &models.LoyaltyProfile{UserID: userID}
	if err := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(seed).Error; err != nil {
		return nil, err
	}

	var profile models.LoyaltyProfile
	if err := r.ForUpdate(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Save writes the mutable profile columns, zero values included.
func (r *Repository) Save(ctx context.Context, profile *models.LoyaltyProfile) error {
	return r.DB(ctx).
		Model(&models.LoyaltyProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]any{
			"points":    profile.Points,
			"is_vip":    profile.IsVIP,
			"vip_since": profile.VIPSince,
			"phone":     profile.Phone,
			"address":   profile.Address,
		}).Error
}
