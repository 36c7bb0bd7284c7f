package loyalty

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	program := NewProgram(config.LoyaltyConfig{VIPThreshold: 500}, dbtest.FixedClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	svc, err := NewService(client, program, nil)
	require.NoError(t, err)
	return svc, conn
}

func reloadProfile(t *testing.T, conn *gorm.DB, userID uuid.UUID) models.LoyaltyProfile {
	t.Helper()
	var profile models.LoyaltyProfile
	require.NoError(t, conn.Where("user_id = ?", userID).First(&profile).Error)
	return profile
}

func TestGetProfileProvisionsMissingProfile(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)

	user := &models.User{Username: "staffer", Email: "staffer@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, conn.Create(user).Error)

	dto, err := svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "staffer", dto.Username)
	require.Zero(t, dto.Points)
	require.Equal(t, int64(500), dto.PointsToVIP)

	var count int64
	require.NoError(t, conn.Model(&models.LoyaltyProfile{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	_, err = svc.GetProfile(context.Background(), user.ID)
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.LoyaltyProfile{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestUpdateProfileTrimsContactFields(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, 0)

	phone := " 0901234567 "
	dto, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "0901234567", dto.Phone)
	require.Empty(t, dto.Address)

	stored := reloadProfile(t, conn, user.ID)
	require.Equal(t, "0901234567", stored.Phone)
}

func TestAddPointsCrossesVIPThreshold(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, 450)

	dto, err := svc.AddPoints(context.Background(), user.ID, 50)
	require.NoError(t, err)
	require.True(t, dto.IsVIP)
	require.NotNil(t, dto.VIPSince)

	stored := reloadProfile(t, conn, user.ID)
	require.Equal(t, int64(500), stored.Points)
	require.True(t, stored.IsVIP)
}

func TestRedeemPointsDeclineLeavesBalance(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, 49999)

	res, err := svc.RedeemPoints(context.Background(), user.ID, 50000)
	require.NoError(t, err)
	require.False(t, res.Accepted)
	require.Equal(t, int64(1), res.PointsNeeded)
	require.Equal(t, int64(49999), reloadProfile(t, conn, user.ID).Points)

	_, err = svc.AddPoints(context.Background(), user.ID, 1)
	require.NoError(t, err)
	res, err = svc.RedeemPoints(context.Background(), user.ID, 50000)
	require.NoError(t, err)
	require.True(t, res.Accepted)
	require.Zero(t, res.Balance)
	require.Zero(t, reloadProfile(t, conn, user.ID).Points)
}

func TestConcurrentAddPointsAreNotLost(t *testing.T) {
	t.Parallel()
	svc, conn := newTestService(t)
	user := dbtest.MustCreateUser(t, conn, 0)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPoints(context.Background(), user.ID, 25)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(workers*25), reloadProfile(t, conn, user.ID).Points)
}

func TestServiceRejectsAnonymousAndUnknownUsers(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.GetProfile(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.GetProfile(context.Background(), uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddPoints(context.Background(), uuid.New(), -5)
	require.Error(t, err)
}
