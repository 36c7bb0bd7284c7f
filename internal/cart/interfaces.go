package cart

import (
	"context"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindBySession(ctx context.Context, sessionKey string) (*models.Cart, error)
	EnsureForUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	EnsureForSession(ctx context.Context, sessionKey string) (*models.Cart, error)
	LockCart(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	DeleteCart(ctx context.Context, id uuid.UUID) error

	LockLine(ctx context.Context, cartID, menuItemID uuid.UUID) (*models.CartItem, error)
	CreateLine(ctx context.Context, line *models.CartItem) error
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	DeleteLines(ctx context.Context, cartID uuid.UUID) error
	ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	SumQuantity(ctx context.Context, cartID uuid.UUID) (int64, error)
}

type menuLookup interface {
	FindAvailableItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
}
