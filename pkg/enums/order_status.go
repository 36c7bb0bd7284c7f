package enums

import "fmt"

// OrderStatus tracks the kitchen/delivery lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderStatusFlow lists the forward-only path; cancelled sits outside it.
var orderStatusFlow = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	return s == OrderStatusCancelled || s.step() >= 0
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s. Statuses only move
// forward along the flow; cancelled is reachable from any non-terminal status.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() || s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.step() > s.step()
}

func (s OrderStatus) step() int {
	for i, candidate := range orderStatusFlow {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(value)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid order status %q", value)
	}
	return status, nil
}
