package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebite-backend/internal/loyalty"
	"github.com/angelmondragon/tablebite-backend/internal/users"
	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/angelmondragon/tablebite-backend/pkg/security"
)

type seedCategory struct {
	name        string
	description string
	items       []seedItem
}

type seedItem struct {
	name        string
	description string
	price       int64
}

var menu = []seedCategory{
	{
		name:        "Starters",
		description: "Small plates to share",
		items: []seedItem{
			{name: "Spring Rolls", description: "Crispy rolls with pork and glass noodles", price: 45000},
			{name: "Garden Salad", description: "Mixed greens with house dressing", price: 55000},
		},
	},
	{
		name:        "Mains",
		description: "Signature dishes",
		items: []seedItem{
			{name: "Grilled Chicken Rice", description: "Lemongrass chicken over broken rice", price: 85000},
			{name: "Beef Pho", description: "Slow-simmered broth with rare beef", price: 95000},
			{name: "Seafood Noodles", description: "Stir-fried noodles with prawns and squid", price: 120000},
		},
	},
	{
		name:        "Desserts",
		description: "Something sweet",
		items: []seedItem{
			{name: "Coconut Flan", description: "Caramel custard with coconut cream", price: 35000},
			{name: "Mango Sticky Rice", description: "Fresh mango with sweet sticky rice", price: 40000},
		},
	},
	{
		name:        "Drinks",
		description: "Hot and cold drinks",
		items: []seedItem{
			{name: "Iced Coffee", description: "Vietnamese drip coffee with condensed milk", price: 30000},
			{name: "Fresh Lime Soda", description: "Lime, soda and a pinch of salt", price: 25000},
		},
	},
}

var news = []models.NewsPost{
	{Title: "Now open for delivery", Content: "Order from the app and get your favourites delivered to your door.", IsActive: true},
	{Title: "Double points weekend", Content: "Every order this weekend earns loyalty points toward VIP status.", IsActive: true},
}

var rewardsCatalog = []models.Reward{
	{Name: "Free Dessert", Description: "Any dessert from the menu", PointsRequired: 100, Tier: 1, IsActive: true},
	{Name: "Free Main Dish", Description: "Any main dish from the menu", PointsRequired: 250, Tier: 2, IsActive: true},
	{Name: "VIP Status", Description: "Permanent VIP pricing on every order", PointsRequired: 500, Tier: 3, IsActive: true},
}

type staffAccount struct {
	Username string
	Email    string
	Password string
}

type summary struct {
	Categories int
	MenuItems  int
	News       int
	Rewards    int
	Staff      int
}

// seed inserts the demo dataset. Rows are matched by name, so running it
// again only fills in whatever is missing.
func seed(ctx context.Context, conn *gorm.DB, staff *staffAccount, passwords config.PasswordConfig) (summary, error) {
	var (
		out  summary
		errs error
	)
	db := conn.WithContext(ctx)

	for _, c := range menu {
		category, created, err := ensure(db, models.Category{Name: c.name, Description: c.description}, "name = ?", c.name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("category %q: %w", c.name, err))
			continue
		}
		if created {
			out.Categories++
		}

		for _, it := range c.items {
			fresh := models.MenuItem{CategoryID: category.ID, Name: it.name, Description: it.description, Price: it.price, IsAvailable: true}
			_, created, err := ensure(db, fresh, "category_id = ? AND name = ?", category.ID, it.name)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("menu item %q: %w", it.name, err))
				continue
			}
			if created {
				out.MenuItems++
			}
		}
	}

	for _, n := range news {
		_, created, err := ensure(db, n, "title = ?", n.Title)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("news %q: %w", n.Title, err))
			continue
		}
		if created {
			out.News++
		}
	}

	for _, r := range rewardsCatalog {
		_, created, err := ensure(db, r, "name = ?", r.Name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reward %q: %w", r.Name, err))
			continue
		}
		if created {
			out.Rewards++
		}
	}

	if staff != nil {
		created, err := seedStaff(ctx, conn, *staff, passwords)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("staff %q: %w", staff.Username, err))
		} else if created {
			out.Staff++
		}
	}
	return out, errs
}

// ensure loads the first row matching query, creating fresh when none exists.
func ensure[T any](db *gorm.DB, fresh T, query string, args ...any) (*T, bool, error) {
	var found T
	res := db.Where(query, args...).Limit(1).Find(&found)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return &found, false, nil
	}
	if err := db.Create(&fresh).Error; err != nil {
		return nil, false, err
	}
	return &fresh, true, nil
}

func seedStaff(ctx context.Context, conn *gorm.DB, staff staffAccount, passwords config.PasswordConfig) (bool, error) {
	if strings.TrimSpace(staff.Username) == "" || staff.Password == "" {
		return false, fmt.Errorf("username and password are required")
	}
	usernameTaken, _, err := users.NewRepository(conn).Taken(ctx, staff.Username, staff.Email)
	if err != nil {
		return false, err
	}
	if usernameTaken {
		return false, nil
	}

	hash, err := security.HashPassword(staff.Password, passwords)
	if err != nil {
		return false, err
	}
	err = conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).Create(ctx, users.NewAccount{
			Username:     staff.Username,
			Email:        staff.Email,
			PasswordHash: hash,
			Role:         enums.SystemRoleStaff,
		})
		if err != nil {
			return err
		}
		return loyalty.NewRepository(tx).Create(ctx, &models.LoyaltyProfile{UserID: user.ID})
	})
	return err == nil, err
}
