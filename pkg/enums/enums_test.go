package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusReady, true},
		{OrderStatusConfirmed, OrderStatusPreparing, true},
		{OrderStatusReady, OrderStatusDelivered, true},
		{OrderStatusPreparing, OrderStatusConfirmed, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatus("lost"), OrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseOrderStatus("ready"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if pm, err := ParsePaymentMethod("momo"); err != nil || pm != PaymentMethodMoMo {
		t.Fatalf("unexpected payment method %q err=%v", pm, err)
	}
	if pm, err := ParsePaymentMethod(" COD "); err != nil || pm != PaymentMethodCOD {
		t.Fatalf("payment method should ignore case and padding, got %q err=%v", pm, err)
	}
	if _, err := ParsePaymentMethod("card"); err == nil {
		t.Fatal("expected error for unsupported payment method")
	}
	if dt, err := ParseDiscountType("5percent"); err != nil || dt != DiscountTypeFivePercent {
		t.Fatalf("unexpected discount type %q err=%v", dt, err)
	}
	if _, err := ParseSystemRole("admin"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
