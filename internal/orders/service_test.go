package orders

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	svc, err := NewService(NewRepository(conn), client, nil)
	require.NoError(t, err)
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:          userID,
		Subtotal:        80000,
		TotalAmount:     80000,
		PointsEarned:    8000,
		CustomerName:    "Lan",
		Phone:           "0900000000",
		DeliveryAddress: "1 Le Loi",
		PaymentMethod:   enums.PaymentMethodCOD,
		CreatedAt:       createdAt,
		Items: []models.OrderItem{
			{MenuItemID: uuid.New(), Name: "Pho", Quantity: 2, UnitPrice: 40000, LineSubtotal: 80000},
		},
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

func TestListPagesNewestFirst(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, 0)
	other := dbtest.MustCreateUser(t, conn, 0)

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, seedOrder(t, conn, user.ID, base.Add(time.Duration(i)*time.Hour)).ID)
	}
	seedOrder(t, conn, other.ID, base.Add(10*time.Hour))

	first, err := svc.List(context.Background(), user.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.Equal(t, ids[4], first.Orders[0].ID)
	require.Equal(t, ids[3], first.Orders[1].ID)
	require.NotEmpty(t, first.NextCursor)
	require.Len(t, first.Orders[0].Items, 1)

	second, err := svc.List(context.Background(), user.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	require.Equal(t, ids[2], second.Orders[0].ID)

	third, err := svc.List(context.Background(), user.ID, pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Orders, 1)
	require.Equal(t, ids[0], third.Orders[0].ID)
	require.Empty(t, third.NextCursor)

	_, err = svc.List(context.Background(), user.ID, pagination.Params{Cursor: "not a cursor"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetIsScopedToOwner(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	owner := dbtest.MustCreateUser(t, conn, 0)
	stranger := dbtest.MustCreateUser(t, conn, 0)
	order := seedOrder(t, conn, owner.ID, time.Now().UTC())

	dto, err := svc.Get(context.Background(), owner.ID, order.ID)
	require.NoError(t, err)
	require.Equal(t, int64(80000), dto.TotalAmount)
	require.Equal(t, enums.OrderStatusPending, dto.Status)

	_, err = svc.Get(context.Background(), stranger.ID, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.Get(context.Background(), uuid.Nil, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, 0)
	order := seedOrder(t, conn, user.ID, time.Now().UTC())
	ctx := context.Background()

	dto, err := svc.UpdateStatus(ctx, StatusChange{OrderID: order.ID, Status: enums.OrderStatusPreparing})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPreparing, dto.Status)

	_, err = svc.UpdateStatus(ctx, StatusChange{OrderID: order.ID, Status: enums.OrderStatusConfirmed})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	dto, err = svc.UpdateStatus(ctx, StatusChange{OrderID: order.ID, Status: enums.OrderStatusCancelled})
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, dto.Status)

	_, err = svc.UpdateStatus(ctx, StatusChange{OrderID: order.ID, Status: enums.OrderStatusDelivered})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, StatusChange{OrderID: order.ID, Status: enums.OrderStatus("lost")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateStatus(ctx, StatusChange{OrderID: uuid.New(), Status: enums.OrderStatusReady})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusCancelled, stored.Status)
}
