package orders

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderItemDTO is the price snapshot of one ordered line.
type OrderItemDTO struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	UnitPrice    int64     `json:"unit_price"`
	LineSubtotal int64     `json:"line_subtotal"`
}

// OrderDTO is the customer-facing view of an order.
type OrderDTO struct {
	ID                  uuid.UUID            `json:"id"`
	Status              enums.OrderStatus    `json:"status"`
	Subtotal            int64                `json:"subtotal"`
	DiscountApplied     int64                `json:"discount_applied"`
	DiscountSource      enums.DiscountSource `json:"discount_source"`
	TotalAmount         int64                `json:"total_amount"`
	PointsEarned        int64                `json:"points_earned"`
	CustomerName        string               `json:"customer_name"`
	Phone               string               `json:"phone"`
	DeliveryAddress     string               `json:"delivery_address"`
	PaymentMethod       enums.PaymentMethod  `json:"payment_method"`
	SpecialInstructions string               `json:"special_instructions,omitempty"`
	Items               []OrderItemDTO       `json:"items"`
	CreatedAt           time.Time            `json:"created_at"`
}

// OrderPage is one page of order history.
type OrderPage struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// StatusChange is what staff submit to move an order along its lifecycle.
type StatusChange struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	ActorUserID uuid.UUID
}

// ToDTO maps an order row, with its Items loaded, to its view.
func ToDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                  order.ID,
		Status:              order.Status,
		Subtotal:            order.Subtotal,
		DiscountApplied:     order.DiscountApplied,
		DiscountSource:      order.DiscountSource,
		TotalAmount:         order.TotalAmount,
		PointsEarned:        order.PointsEarned,
		CustomerName:        order.CustomerName,
		Phone:               order.Phone,
		DeliveryAddress:     order.DeliveryAddress,
		PaymentMethod:       order.PaymentMethod,
		SpecialInstructions: order.SpecialInstructions,
		Items:               make([]OrderItemDTO, 0, len(order.Items)),
		CreatedAt:           order.CreatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			MenuItemID:   item.MenuItemID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			LineSubtotal: item.LineSubtotal,
		})
	}
	return dto
}
