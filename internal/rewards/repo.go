package rewards

import (
	"context"
	"time"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists the reward catalog, redemption audit rows and staged
// benefits.
type Repository struct {
	repo.Base
}

// NewRepository binds a rewards repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// ListActive returns the active catalog, cheapest first.
func (r *Repository) ListActive(ctx context.Context) ([]models.Reward, error) {
	var rewards []models.Reward
	if err := r.DB(ctx).
		Where("is_active = ?", true).
		Order("points_required ASC").
		Order("name ASC").
		Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *Repository) FindActive(ctx context.Context, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.DB(ctx).Where("id = ? AND is_active = ?", id, true).First(&reward).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *Repository) CreateRedemption(ctx context.Context, redemption *models.RewardRedemption) error {
	return r.DB(ctx).Create(redemption).Error
}

// ListRedemptions returns a user's redemptions, newest first.
func (r *Repository) ListRedemptions(ctx context.Context, userID uuid.UUID, limit int) ([]models.RewardRedemption, error) {
	var rows []models.RewardRedemption
	if err := r.DB(ctx).
		Preload("Reward").
		Where("user_id = ?", userID).
		Order("redeemed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) CreateStaged(ctx context.Context, benefit *models.StagedBenefit) error {
	return r.DB(ctx).Create(benefit).Error
}

// ListOpen returns unconsumed, unexpired benefits of a user, oldest first.
func (r *Repository) ListOpen(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.StagedBenefit, error) {
	return r.open(r.DB(ctx), userID, now, "")
}

// LockOpen is ListOpen under row locks, optionally narrowed to one kind.
func (r *Repository) LockOpen(ctx context.Context, userID uuid.UUID, kind enums.BenefitKind, now time.Time) ([]models.StagedBenefit, error) {
	return r.open(r.ForUpdate(ctx), userID, now, kind)
}

func (r *Repository) open(query *gorm.DB, userID uuid.UUID, now time.Time, kind enums.BenefitKind) ([]models.StagedBenefit, error) {
	query = query.Where("user_id = ? AND consumed_at IS NULL AND expires_at > ?", userID, now)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var rows []models.StagedBenefit
	if err := query.Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Consume marks benefits as applied to orderID. Rows consumed by a concurrent
// checkout are left alone; the returned count tells the caller how many it won.
func (r *Repository) Consume(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.DB(ctx).
		Model(&models.StagedBenefit{}).
		Where("id IN ? AND consumed_at IS NULL", ids).
		Updates(map[string]any{"consumed_at": at, "order_id": orderID})
	return res.RowsAffected, res.Error
}

// LinkRedemptions records the order a catalog reward was delivered with.
func (r *Repository) LinkRedemptions(ctx context.Context, ids []uuid.UUID, orderID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.DB(ctx).
		Model(&models.RewardRedemption{}).
		Where("id IN ?", ids).
		Update("order_id", orderID).Error
}

// RewardNames maps redemption ids to the name of the reward they bought.
func (r *Repository) RewardNames(ctx context.Context, redemptionIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(redemptionIDs))
	if len(redemptionIDs) == 0 {
		return names, nil
	}
	var rows []struct {
		ID   uuid.UUID
		Name string
	}
	if err := r.DB(ctx).
		Table("reward_redemptions AS rr").
		Select("rr.id AS id, rw.name AS name").
		Joins("JOIN rewards AS rw ON rw.id = rr.reward_id").
		Where("rr.id IN ?", redemptionIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}
