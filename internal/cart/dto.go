package cart

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
)

// Mode selects how AddItem combines the requested quantity with an existing line.
type Mode string

const (
	ModeIncrement Mode = "increment"
	ModeReplace   Mode = "replace"
)

// ParseMode defaults to increment.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case "", ModeIncrement:
		return ModeIncrement, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("invalid cart mode %q", value)
	}
}

// AddItemInput is one add_item call. Quantity may be negative in increment mode.
type AddItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
	Mode       Mode
}

type LineView struct {
	MenuItemID  uuid.UUID `json:"menu_item_id"`
	Name        string    `json:"name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   int64     `json:"line_total"`
	IsAvailable bool      `json:"is_available"`
}

type CartView struct {
	CartID    *uuid.UUID `json:"cart_id,omitempty"`
	Items     []LineView `json:"items"`
	ItemCount int64      `json:"item_count"`
	Subtotal  int64      `json:"subtotal"`
}

// MutationResult reports the line after a mutation; Removed is set when the
// line no longer exists.
type MutationResult struct {
	Line      *LineView `json:"line,omitempty"`
	Removed   bool      `json:"removed"`
	ItemCount int64     `json:"item_count"`
}

func emptyView() *CartView {
	return &CartView{Items: []LineView{}}
}

func toLineView(line models.CartItem) LineView {
	view := LineView{
		MenuItemID: line.MenuItemID,
		Quantity:   line.Quantity,
	}
	if line.MenuItem != nil {
		view.Name = line.MenuItem.Name
		view.UnitPrice = line.MenuItem.Price
		view.IsAvailable = line.MenuItem.IsAvailable
		view.LineTotal = line.MenuItem.Price * int64(line.Quantity)
	}
	return view
}

func toCartView(cart *models.Cart, lines []models.CartItem) *CartView {
	view := emptyView()
	if cart == nil {
		return view
	}
	id := cart.ID
	view.CartID = &id
	for _, line := range lines {
		lv := toLineView(line)
		view.Items = append(view.Items, lv)
		view.ItemCount += int64(lv.Quantity)
		view.Subtotal += lv.LineTotal
	}
	return view
}
