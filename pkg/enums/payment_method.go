package enums

import (
	"fmt"
	"slices"
	"strings"
)

// PaymentMethod is how the customer pays the courier or the shop. Nothing is
// charged online; the method only tells staff what to collect.
type PaymentMethod string

const (
	PaymentMethodBank PaymentMethod = "bank"
	PaymentMethodMoMo PaymentMethod = "momo"
	PaymentMethodCOD  PaymentMethod = "cod"
)

// PaymentMethods lists the accepted methods in display order.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{PaymentMethodCOD, PaymentMethodBank, PaymentMethodMoMo}
}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool {
	return slices.Contains(PaymentMethods(), p)
}

// ParsePaymentMethod accepts any casing and surrounding whitespace.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if !method.IsValid() {
		return "", fmt.Errorf("unsupported payment method %q", value)
	}
	return method, nil
}
