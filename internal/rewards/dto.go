package rewards

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/checkout"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/google/uuid"
)

// Outcome of a redemption attempt.
type Outcome string

const (
	OutcomeStaged   Outcome = "staged"
	OutcomeDeclined Outcome = "declined"
)

type RewardDTO struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	PointsRequired int64     `json:"points_required"`
	Tier           int       `json:"tier"`
	Affordable     bool      `json:"affordable"`
}

type DiscountOfferDTO struct {
	Type       enums.DiscountType `json:"type"`
	Rate       string             `json:"rate"`
	PointsCost int64              `json:"points_cost"`
	Affordable bool               `json:"affordable"`
}

type StagedBenefitDTO struct {
	ID           uuid.UUID           `json:"id"`
	Kind         enums.BenefitKind   `json:"kind"`
	DiscountType *enums.DiscountType `json:"discount_type,omitempty"`
	DiscountRate string              `json:"discount_rate,omitempty"`
	RewardName   string              `json:"reward_name,omitempty"`
	PointsSpent  int64               `json:"points_spent"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

type RedemptionDTO struct {
	ID          uuid.UUID  `json:"id"`
	RewardID    uuid.UUID  `json:"reward_id"`
	RewardName  string     `json:"reward_name"`
	PointsSpent int64      `json:"points_spent"`
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	RedeemedAt  time.Time  `json:"redeemed_at"`
}

// Overview is everything the rewards page shows.
type Overview struct {
	Balance   int64              `json:"balance"`
	IsVIP     bool               `json:"is_vip"`
	Available []RewardDTO        `json:"available"`
	Catalog   []RewardDTO        `json:"catalog"`
	Discounts []DiscountOfferDTO `json:"discounts"`
	Staged    []StagedBenefitDTO `json:"staged"`
}

// RedeemResult is either Declined with the shortfall or Staged with the benefit.
type RedeemResult struct {
	Outcome      Outcome           `json:"outcome"`
	PointsNeeded int64             `json:"points_needed,omitempty"`
	Balance      int64             `json:"balance"`
	Benefit      *StagedBenefitDTO `json:"benefit,omitempty"`
}

func toRewardDTO(r models.Reward, balance int64) RewardDTO {
	return RewardDTO{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		PointsRequired: r.PointsRequired,
		Tier:           r.Tier,
		Affordable:     r.PointsRequired <= balance,
	}
}

func toOfferDTO(o checkout.DiscountOffer, balance int64) DiscountOfferDTO {
	return DiscountOfferDTO{
		Type:       o.Type,
		Rate:       o.Rate.String(),
		PointsCost: o.PointsCost,
		Affordable: o.PointsCost <= balance,
	}
}

func toStagedDTO(b models.StagedBenefit, rewardName string) StagedBenefitDTO {
	dto := StagedBenefitDTO{
		ID:           b.ID,
		Kind:         b.Kind,
		DiscountType: b.DiscountType,
		RewardName:   rewardName,
		PointsSpent:  b.PointsSpent,
		ExpiresAt:    b.ExpiresAt,
	}
	if b.Kind == enums.BenefitKindDiscount {
		dto.DiscountRate = b.DiscountRate
	}
	return dto
}

func toRedemptionDTO(r models.RewardRedemption) RedemptionDTO {
	dto := RedemptionDTO{
		ID:          r.ID,
		RewardID:    r.RewardID,
		PointsSpent: r.PointsSpent,
		OrderID:     r.OrderID,
		RedeemedAt:  r.RedeemedAt,
	}
	if r.Reward != nil {
		dto.RewardName = r.Reward.Name
	}
	return dto
}
