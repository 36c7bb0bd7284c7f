package cart

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/angelmondragon/tablebite-backend/internal/catalog"
	"github.com/angelmondragon/tablebite-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebite-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingVisitors struct {
	mu    sync.Mutex
	saves int
}

func (r *recordingVisitors) Save(ctx context.Context, visitor *session.Visitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return nil
}

func newCartService(t *testing.T) (Service, *gorm.DB, *recordingVisitors) {
	t.Helper()
	client, conn := dbtest.Client(t)
	visitors := &recordingVisitors{}
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(conn),
		Menu:     catalog.NewRepository(conn),
		Tx:       client,
		Visitors: visitors,
	})
	require.NoError(t, err)
	return svc, conn, visitors
}

func guestShopper() session.Shopper {
	return session.Shopper{Visitor: &session.Visitor{Token: "guest_" + uuid.NewString()}}
}

func userShopper(id uuid.UUID, visitor *session.Visitor) session.Shopper {
	return session.Shopper{UserID: &id, Visitor: visitor}
}

func countCarts(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&models.Cart{}).Count(&n).Error)
	return n
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	t.Parallel()
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestGuestAddItemCreatesCartAndCachesID(t *testing.T) {
	t.Parallel()
	svc, conn, visitors := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	shopper := guestShopper()
	ctx := context.Background()

	view, err := svc.Resolve(ctx, shopper)
	require.NoError(t, err)
	require.Nil(t, view.CartID)
	require.Zero(t, countCarts(t, conn), "reading must not persist an empty guest cart")

	res, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 2})
	require.NoError(t, err)
	require.False(t, res.Removed)
	require.Equal(t, 2, res.Line.Quantity)
	require.Equal(t, int64(100000), res.Line.LineTotal)
	require.NotNil(t, shopper.Visitor.CartID)
	require.Equal(t, 1, visitors.saves)

	res, err = svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, 3, res.Line.Quantity)
	require.Equal(t, int64(3), res.ItemCount)
	require.Equal(t, 1, visitors.saves, "unchanged cart id is not re-saved")

	res, err = svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 5, Mode: ModeReplace})
	require.NoError(t, err)
	require.Equal(t, 5, res.Line.Quantity)
	require.Equal(t, int64(5), svc.TotalItemCount(ctx, shopper))
}

func TestAddItemRejectsUnknownAndUnavailableItems(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	soldOut := dbtest.MustCreateMenuItem(t, conn, "Seasonal", 70000, false)
	shopper := guestShopper()

	_, err := svc.AddItem(context.Background(), shopper, AddItemInput{MenuItemID: soldOut.ID, Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(context.Background(), shopper, AddItemInput{MenuItemID: uuid.New(), Quantity: 1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(context.Background(), shopper, AddItemInput{MenuItemID: uuid.New(), Quantity: 1, Mode: "double"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Zero(t, countCarts(t, conn))
}

func TestAnonymousCallWithoutSessionIsRejected(t *testing.T) {
	t.Parallel()
	svc, _, _ := newCartService(t)
	_, err := svc.Resolve(context.Background(), session.Shopper{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	require.Zero(t, svc.TotalItemCount(context.Background(), session.Shopper{}))
}

func TestRemovingLastGuestLineDeletesCart(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	shopper := guestShopper()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, int64(1), countCarts(t, conn))

	res, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: -2})
	require.NoError(t, err)
	require.True(t, res.Removed)
	require.Nil(t, res.Line)
	require.Zero(t, countCarts(t, conn))
	require.Nil(t, shopper.Visitor.CartID)

	res, err = svc.RemoveItem(ctx, shopper, pho.ID)
	require.NoError(t, err)
	require.True(t, res.Removed, "removing a missing line is a no-op")
	require.Zero(t, countCarts(t, conn))
}

func TestSetQuantityAndRemoveKeepOtherLines(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	tea := dbtest.MustCreateMenuItem(t, conn, "Iced Tea", 10000, true)
	shopper := guestShopper()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: tea.ID, Quantity: 3})
	require.NoError(t, err)

	res, err := svc.SetQuantity(ctx, shopper, pho.ID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, res.Line.Quantity)
	require.Equal(t, int64(7), res.ItemCount)

	res, err = svc.SetQuantity(ctx, shopper, pho.ID, 0)
	require.NoError(t, err)
	require.True(t, res.Removed)
	require.Equal(t, int64(3), res.ItemCount)

	view, err := svc.Resolve(ctx, shopper)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.Equal(t, "Iced Tea", view.Items[0].Name)
	require.Equal(t, int64(30000), view.Subtotal)
}

func TestClearGuestCartDropsRowAndSessionReference(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	shopper := guestShopper()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 1})
	require.NoError(t, err)
	first := *shopper.Visitor.CartID

	require.NoError(t, svc.Clear(ctx, shopper))
	require.Zero(t, countCarts(t, conn))
	require.Nil(t, shopper.Visitor.CartID)

	_, err = svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 1})
	require.NoError(t, err)
	require.NotEqual(t, first, *shopper.Visitor.CartID, "a cleared guest cart is never reused")
}

func TestClearUserCartKeepsCartRow(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	user := dbtest.MustCreateUser(t, conn, 0)
	shopper := userShopper(user.ID, &session.Visitor{Token: "tok_" + uuid.NewString()})
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, shopper))

	require.Equal(t, int64(1), countCarts(t, conn))
	require.Zero(t, svc.TotalItemCount(ctx, shopper))
}

func TestStaleCachedCartIDIsIgnored(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	other := guestShopper()
	_, err := svc.AddItem(context.Background(), other, AddItemInput{MenuItemID: pho.ID, Quantity: 1})
	require.NoError(t, err)

	// A session pointing at someone else's cart must not read or write it.
	shopper := guestShopper()
	shopper.Visitor.RememberCart(*other.Visitor.CartID)

	view, err := svc.Resolve(context.Background(), shopper)
	require.NoError(t, err)
	require.Empty(t, view.Items)
	require.Nil(t, shopper.Visitor.CartID)
}

func TestIncrementSequencesEqualClampedSumOfDeltas(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 5; round++ {
		shopper := guestShopper()
		expected := 0
		for step := 0; step < 12; step++ {
			delta := rng.Intn(7) - 3
			expected += delta
			if expected <= 0 {
				expected = 0
			}

			res, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: delta})
			require.NoError(t, err)
			if expected == 0 {
				require.True(t, res.Removed, "round %d step %d", round, step)
				require.Nil(t, res.Line)
				continue
			}
			require.False(t, res.Removed)
			require.Equal(t, expected, res.Line.Quantity, "round %d step %d", round, step)
		}
		require.Equal(t, int64(expected), svc.TotalItemCount(ctx, shopper))
	}
}

func TestConcurrentIncrementsOnSameLineAreNotLost(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	user := dbtest.MustCreateUser(t, conn, 0)
	ctx := context.Background()

	const tabs = 6
	var wg sync.WaitGroup
	errs := make(chan error, tabs)
	for i := 0; i < tabs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shopper := userShopper(user.ID, nil)
			_, err := svc.AddItem(ctx, shopper, AddItemInput{MenuItemID: pho.ID, Quantity: 1})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(tabs), svc.TotalItemCount(ctx, userShopper(user.ID, nil)))
}

func TestMergeGuestCartAddsQuantitiesAndIsIdempotent(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	tea := dbtest.MustCreateMenuItem(t, conn, "Iced Tea", 10000, true)
	user := dbtest.MustCreateUser(t, conn, 0)
	ctx := context.Background()

	visitor := &session.Visitor{Token: "tok_" + uuid.NewString()}
	guest := session.Shopper{Visitor: visitor}
	_, err := svc.AddItem(ctx, guest, AddItemInput{MenuItemID: pho.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guest, AddItemInput{MenuItemID: tea.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, userShopper(user.ID, nil), AddItemInput{MenuItemID: pho.ID, Quantity: 1})
	require.NoError(t, err)

	signedIn := userShopper(user.ID, visitor)
	merged, err := svc.MergeGuestCart(ctx, signedIn)
	require.NoError(t, err)
	require.True(t, merged)

	first, err := svc.Resolve(ctx, signedIn)
	require.NoError(t, err)
	require.Equal(t, *first.CartID, *visitor.CartID, "session is rebound to the user's cart")

	merged, err = svc.MergeGuestCart(ctx, signedIn)
	require.NoError(t, err)
	require.False(t, merged)

	second, err := svc.Resolve(ctx, signedIn)
	require.NoError(t, err)
	require.Equal(t, first, second)

	quantities := map[uuid.UUID]int{}
	for _, line := range second.Items {
		quantities[line.MenuItemID] = line.Quantity
	}
	require.Equal(t, 3, quantities[pho.ID])
	require.Equal(t, 1, quantities[tea.ID])
	require.Equal(t, int64(1), countCarts(t, conn), "guest cart is deleted after merge")
}

func TestTotalItemCountIncludesPendingGuestLines(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	user := dbtest.MustCreateUser(t, conn, 0)
	ctx := context.Background()

	visitor := &session.Visitor{Token: "tok_" + uuid.NewString()}
	_, err := svc.AddItem(ctx, session.Shopper{Visitor: visitor}, AddItemInput{MenuItemID: pho.ID, Quantity: 2})
	require.NoError(t, err)

	signedIn := userShopper(user.ID, visitor)
	require.Equal(t, int64(2), svc.TotalItemCount(ctx, signedIn))

	view, err := svc.Resolve(ctx, signedIn)
	require.NoError(t, err)
	require.Equal(t, int64(2), view.ItemCount)
	require.Equal(t, int64(2), svc.TotalItemCount(ctx, signedIn))
	require.Equal(t, int64(1), countCarts(t, conn), "guest cart is folded into the user's cart")
}

func TestMergeDropsUnavailableLines(t *testing.T) {
	t.Parallel()
	svc, conn, _ := newCartService(t)
	pho := dbtest.MustCreateMenuItem(t, conn, "Pho", 50000, true)
	user := dbtest.MustCreateUser(t, conn, 0)
	ctx := context.Background()

	visitor := &session.Visitor{Token: "tok_" + uuid.NewString()}
	_, err := svc.AddItem(ctx, session.Shopper{Visitor: visitor}, AddItemInput{MenuItemID: pho.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.MenuItem{}).Where("id = ?", pho.ID).Update("is_available", false).Error)

	view, err := svc.Resolve(ctx, userShopper(user.ID, visitor))
	require.NoError(t, err)
	require.Empty(t, view.Items)

	var lines int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&lines).Error)
	require.Zero(t, lines)
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	mode, err := ParseMode("")
	require.NoError(t, err)
	require.Equal(t, ModeIncrement, mode)
	mode, err = ParseMode(" Replace ")
	require.NoError(t, err)
	require.Equal(t, ModeReplace, mode)
	_, err = ParseMode("set")
	require.Error(t, err)
}
