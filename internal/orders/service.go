package orders

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes order history to customers and status changes to staff.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, change StatusChange) (*OrderDTO, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the orders service.
func NewService(r Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if r == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: r, tx: tx, logg: logg}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListForUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	rows, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	page := &OrderPage{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		page.Orders = append(page.Orders, ToDTO(row))
	}
	return page, nil
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.repo.FindForUser(ctx, orderID, userID)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	dto := ToDTO(*order)
	return &dto, nil
}

// UpdateStatus moves an order forward along its lifecycle, or cancels it.
// Terminal orders and backward moves are rejected with STATE_CONFLICT.
func (s *service) UpdateStatus(ctx context.Context, change StatusChange) (*OrderDTO, error) {
	if !change.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"invalid_fields": []string{"status"}})
	}

	var (
		updated *models.Order
		from    string
	)
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		order, err := r.Lock(ctx, change.OrderID)
		if err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock order")
		}
		if !order.Status.CanTransitionTo(change.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order cannot move from %s to %s", order.Status, change.Status))
		}
		if err := r.UpdateStatus(ctx, order.ID, change.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		from = order.Status.String()
		updated, err = r.FindForUser(ctx, order.ID, order.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": updated.ID.String(),
			"from":     from,
			"to":       updated.Status.String(),
			"actor_id": change.ActorUserID.String(),
		})
		s.logg.Info(logCtx, "orders.status_changed")
	}
	dto := ToDTO(*updated)
	return &dto, nil
}
