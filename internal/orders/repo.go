package orders

import (
	"context"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/angelmondragon/tablebite-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Create inserts the order together with its Items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.DB(ctx).Create(order).Error
}

func (r *repository) FindForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForUser returns one page of orders newest first, plus one lookahead row.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.DB(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Where("user_id = ?", userID).
		Scopes(pagination.Newest(cursor, limit)).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Lock(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.ForUpdate(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}
