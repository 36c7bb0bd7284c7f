package enums

// BenefitKind distinguishes staged order discounts from staged catalog rewards.
type BenefitKind string

const (
	BenefitKindDiscount BenefitKind = "discount"
	BenefitKindReward   BenefitKind = "reward"
)

// String implements fmt.Stringer.
func (k BenefitKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known BenefitKind.
func (k BenefitKind) IsValid() bool {
	return k == BenefitKindDiscount || k == BenefitKindReward
}
