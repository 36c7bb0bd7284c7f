package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/angelmondragon/tablebite-backend/pkg/security"
)

var fastPasswords = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestSeedIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	staff := &staffAccount{Username: "Chef", Email: "Chef@Example.com", Password: "kitchen-secret"}

	first, err := seed(context.Background(), conn, staff, fastPasswords)
	require.NoError(t, err)
	require.Equal(t, len(menu), first.Categories)
	require.Equal(t, 9, first.MenuItems)
	require.Equal(t, len(news), first.News)
	require.Equal(t, 3, first.Rewards)
	require.Equal(t, 1, first.Staff)

	second, err := seed(context.Background(), conn, staff, fastPasswords)
	require.NoError(t, err)
	require.Equal(t, summary{}, second)

	var rewards []models.Reward
	require.NoError(t, conn.Order("points_required ASC").Find(&rewards).Error)
	require.Len(t, rewards, 3)
	require.Equal(t, "Free Dessert", rewards[0].Name)
	require.Equal(t, int64(100), rewards[0].PointsRequired)
	require.Equal(t, 3, rewards[2].Tier)
}

func TestSeedStaffAccountCanSignIn(t *testing.T) {
	conn := dbtest.Open(t)
	staff := &staffAccount{Username: "chef", Email: "Chef@Example.com", Password: "kitchen-secret"}

	_, err := seed(context.Background(), conn, staff, fastPasswords)
	require.NoError(t, err)

	var user models.User
	require.NoError(t, conn.Preload("Profile").Where("username = ?", "chef").First(&user).Error)
	require.Equal(t, enums.SystemRoleStaff, user.SystemRole)
	require.Equal(t, "chef@example.com", user.Email)
	require.NotNil(t, user.Profile)

	ok, err := security.VerifyPassword("kitchen-secret", user.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSeedWithoutStaff(t *testing.T) {
	conn := dbtest.Open(t)

	out, err := seed(context.Background(), conn, nil, fastPasswords)
	require.NoError(t, err)
	require.Zero(t, out.Staff)

	var count int64
	require.NoError(t, conn.Model(&models.User{}).Count(&count).Error)
	require.Zero(t, count)
}
