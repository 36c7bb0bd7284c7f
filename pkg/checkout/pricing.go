package checkout

import (
	"fmt"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Pricing holds the loyalty rates applied to every order.
type Pricing struct {
	EarnRate decimal.Decimal
	VIPRate  decimal.Decimal
	offers   []DiscountOffer
}

// DiscountOffer is an order discount customers buy with points.
type DiscountOffer struct {
	Type       enums.DiscountType
	Rate       decimal.Decimal
	PointsCost int64
}

// Totals is the result of pricing one order.
type Totals struct {
	Subtotal     int64
	Discount     int64
	Total        int64
	PointsEarned int64
	Source       enums.DiscountSource
}

// NewPricing parses the configured rates.
func NewPricing(cfg config.LoyaltyConfig) (Pricing, error) {
	earn, err := decimal.NewFromString(cfg.EarnRate)
	if err != nil {
		return Pricing{}, fmt.Errorf("parse earn rate: %w", err)
	}
	vip, err := decimal.NewFromString(cfg.VIPDiscountRate)
	if err != nil {
		return Pricing{}, fmt.Errorf("parse vip discount rate: %w", err)
	}
	if earn.IsNegative() || vip.IsNegative() || vip.GreaterThan(decimal.NewFromInt(1)) {
		return Pricing{}, fmt.Errorf("loyalty rates out of range")
	}
	return Pricing{
		EarnRate: earn,
		VIPRate:  vip,
		offers: []DiscountOffer{
			{Type: enums.DiscountTypeFivePercent, Rate: decimal.RequireFromString("0.05"), PointsCost: 100},
			{Type: enums.DiscountTypeVIP, Rate: decimal.RequireFromString("0.10"), PointsCost: 200},
		},
	}, nil
}

// DefaultPricing mirrors the shipped configuration defaults.
func DefaultPricing() Pricing {
	p, _ := NewPricing(config.LoyaltyConfig{VIPThreshold: 500, EarnRate: "0.10", VIPDiscountRate: "0.10"})
	return p
}

// Offers lists the purchasable discounts, cheapest first.
func (p Pricing) Offers() []DiscountOffer {
	return append([]DiscountOffer(nil), p.offers...)
}

// Offer returns the purchasable discount of the given type.
func (p Pricing) Offer(kind enums.DiscountType) (DiscountOffer, bool) {
	for _, offer := range p.offers {
		if offer.Type == kind {
			return offer, true
		}
	}
	return DiscountOffer{}, false
}

// ManualRate returns the rate bought with a points discount of the given type.
func (p Pricing) ManualRate(kind enums.DiscountType) (decimal.Decimal, bool) {
	offer, ok := p.Offer(kind)
	return offer.Rate, ok
}

// Compute applies at most one discount: a staged manual rate wins over the VIP
// rate. Total is truncated to whole units and the discount is whatever the
// truncation leaves, so Total == Subtotal - Discount always holds. Points are
// earned on the subtotal, before any discount.
func (p Pricing) Compute(subtotal int64, manualRate *decimal.Decimal, isVIP bool) Totals {
	totals := Totals{Subtotal: subtotal, Total: subtotal, Source: enums.DiscountSourceNone}
	base := decimal.NewFromInt(subtotal)

	var rate decimal.Decimal
	switch {
	case manualRate != nil:
		rate = *manualRate
		totals.Source = enums.DiscountSourceManual
	case isVIP:
		rate = p.VIPRate
		totals.Source = enums.DiscountSourceVIP
	}
	if rate.IsPositive() {
		totals.Total = base.Sub(base.Mul(rate)).Truncate(0).IntPart()
		if totals.Total < 0 {
			totals.Total = 0
		}
		totals.Discount = subtotal - totals.Total
	}

	totals.PointsEarned = base.Mul(p.EarnRate).Floor().IntPart()
	return totals
}
