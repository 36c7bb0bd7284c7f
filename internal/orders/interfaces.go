package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/angelmondragon/tablebite-backend/pkg/pagination"
)

// Repository persists placed orders. Lines are immutable once created; only
// the order status moves afterwards.
type Repository interface {
	// WithTx rebinds the repository to tx. A nil tx keeps the current handle.
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	// FindForUser misses with gorm.ErrRecordNotFound when the order belongs
	// to someone else.
	FindForUser(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	// Lock must run inside a transaction.
	Lock(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}
