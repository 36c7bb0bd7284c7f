package checkout

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
)

// DeliveryInfo is the contact and delivery snapshot a customer submits at checkout.
type DeliveryInfo struct {
	CustomerName        string
	Phone               string
	Address             string
	PaymentMethod       string
	SpecialInstructions string
}

// Normalize trims surrounding whitespace from every field.
func (d DeliveryInfo) Normalize() DeliveryInfo {
	return DeliveryInfo{
		CustomerName:        strings.TrimSpace(d.CustomerName),
		Phone:               strings.TrimSpace(d.Phone),
		Address:             strings.TrimSpace(d.Address),
		PaymentMethod:       strings.TrimSpace(d.PaymentMethod),
		SpecialInstructions: strings.TrimSpace(d.SpecialInstructions),
	}
}

// ValidateDeliveryInfo requires name, phone, address and a supported payment
// method. The error lists every missing field so the caller can fix them at once.
func ValidateDeliveryInfo(info DeliveryInfo) (enums.PaymentMethod, error) {
	info = info.Normalize()

	var missing []string
	if info.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if info.Phone == "" {
		missing = append(missing, "phone")
	}
	if info.Address == "" {
		missing = append(missing, "delivery_address")
	}
	if info.PaymentMethod == "" {
		missing = append(missing, "payment_method")
	}
	if len(missing) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("missing delivery information: %s", strings.Join(missing, ", "))).WithDetails(map[string]any{
			"missing_fields": missing,
		})
	}

	method, err := enums.ParsePaymentMethod(info.PaymentMethod)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").WithDetails(map[string]any{
			"invalid_fields": []string{"payment_method"},
			"allowed":        enums.PaymentMethods(),
		})
	}
	return method, nil
}
