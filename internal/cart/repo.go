package cart

import (
	"context"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists carts and their lines.
type Repository struct {
	repo.Base
}

// NewRepository binds a cart repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	return NewRepository(tx)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindBySession(ctx context.Context, sessionKey string) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB(ctx).Where("session_key = ?", sessionKey).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// EnsureForUser returns the user's cart, creating it when missing. Concurrent
// callers converge on the same row through the unique owner constraint.
func (r *Repository) EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	seed := &models.Cart{UserID: &userID}
	if err := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(seed).Error; err != nil {
		return nil, err
	}
	return r.FindByUser(ctx, userID)
}

// EnsureForSession is EnsureForUser for anonymous sessions.
func (r *Repository) EnsureForSession(ctx context.Context, sessionKey string) (*models.Cart, error) {
	key := sessionKey
	seed := &models.Cart{SessionKey: &key}
	if err := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "session_key"}}, DoNothing: true}).
		Create(seed).Error; err != nil {
		return nil, err
	}
	return r.FindBySession(ctx, sessionKey)
}

// LockCart re-reads the cart under a row lock.
func (r *Repository) LockCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.ForUpdate(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) DeleteCart(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Cart{}, "id = ?", id).Error
}

// LockLine returns the (cart, menu item) line under a row lock, or nil when the
// line does not exist.
func (r *Repository) LockLine(ctx context.Context, cartID, menuItemID uuid.UUID) (*models.CartItem, error) {
	var line models.CartItem
	err := r.ForUpdate(ctx).
		Where("cart_id = ? AND menu_item_id = ?", cartID, menuItemID).
		First(&line).Error
	if repo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *Repository) CreateLine(ctx context.Context, line *models.CartItem) error {
	return r.DB(ctx).Create(line).Error
}

func (r *Repository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.DB(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

func (r *Repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	return r.DB(ctx).Delete(&models.CartItem{}, "id = ?", lineID).Error
}

func (r *Repository) DeleteLines(ctx context.Context, cartID uuid.UUID) error {
	return r.DB(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}

// ListLines returns the lines in insertion order with their menu items.
func (r *Repository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var lines []models.CartItem
	if err := r.DB(ctx).
		Preload("MenuItem").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *Repository) SumQuantity(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var total int64
	err := r.DB(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}
