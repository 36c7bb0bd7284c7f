package checkout

import (
	"testing"

	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
)

func TestValidateDeliveryInfo_OK(t *testing.T) {
	method, err := ValidateDeliveryInfo(DeliveryInfo{
		CustomerName:  " Lan ",
		Phone:         "0901234567",
		Address:       "12 Hang Bac",
		PaymentMethod: "cod",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if method != enums.PaymentMethodCOD {
		t.Fatalf("expected cod, got %s", method)
	}
}

func TestValidateDeliveryInfo_ListsMissingFields(t *testing.T) {
	_, err := ValidateDeliveryInfo(DeliveryInfo{CustomerName: "Lan", Address: "   "})
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected pkgerrors.Error, got %T", err)
	}
	if typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected code %s, got %s", pkgerrors.CodeValidation, typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	missing, ok := details["missing_fields"].([]string)
	if !ok {
		t.Fatalf("expected missing_fields slice, got %T", details["missing_fields"])
	}
	want := []string{"phone", "delivery_address", "payment_method"}
	if len(missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, missing)
	}
	for i := range want {
		if missing[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, missing)
		}
	}
}

func TestValidateDeliveryInfo_RejectsUnknownPaymentMethod(t *testing.T) {
	_, err := ValidateDeliveryInfo(DeliveryInfo{
		CustomerName:  "Lan",
		Phone:         "0901234567",
		Address:       "12 Hang Bac",
		PaymentMethod: "card",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
