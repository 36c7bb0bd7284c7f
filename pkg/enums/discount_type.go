package enums

import "fmt"

// DiscountType identifies a points-purchased order discount.
type DiscountType string

const (
	DiscountTypeFivePercent DiscountType = "5percent"
	DiscountTypeVIP         DiscountType = "vip"
)

var validDiscountTypes = []DiscountType{
	DiscountTypeFivePercent,
	DiscountTypeVIP,
}

// String implements fmt.Stringer.
func (d DiscountType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountType.
func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType.
func ParseDiscountType(value string) (DiscountType, error) {
	for _, candidate := range validDiscountTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}

// DiscountSource records which rule produced an order's discount.
type DiscountSource string

const (
	DiscountSourceNone   DiscountSource = "none"
	DiscountSourceManual DiscountSource = "manual"
	DiscountSourceVIP    DiscountSource = "vip_tier"
)
