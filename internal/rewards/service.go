package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/tablebite-backend/internal/loyalty"
	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/pkg/checkout"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/angelmondragon/tablebite-backend/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	historyLimit     = 50
	defaultStagedTTL = 72 * time.Hour
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service redeems points for catalog rewards and order discounts. A redeemed
// benefit is staged for the user's next checkout.
type Service interface {
	Overview(ctx context.Context, userID uuid.UUID) (*Overview, error)
	History(ctx context.Context, userID uuid.UUID) ([]RedemptionDTO, error)
	RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (*RedeemResult, error)
	RedeemDiscount(ctx context.Context, userID uuid.UUID, kind enums.DiscountType) (*RedeemResult, error)
}

// ServiceParams bundles the rewards service dependencies.
type ServiceParams struct {
	Tx        txRunner
	Program   loyalty.Program
	Pricing   checkout.Pricing
	StagedTTL time.Duration
	Clock     func() time.Time
	Metrics   *metrics.CommerceMetrics
	Logger    *logger.Logger
}

type service struct {
	tx        txRunner
	program   loyalty.Program
	pricing   checkout.Pricing
	stagedTTL time.Duration
	now       func() time.Time
	metrics   *metrics.CommerceMetrics
	logg      *logger.Logger
}

// NewService wires the rewards service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	ttl := params.StagedTTL
	if ttl <= 0 {
		ttl = defaultStagedTTL
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:        params.Tx,
		program:   params.Program,
		pricing:   params.Pricing,
		stagedTTL: ttl,
		now:       clock,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) Overview(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	var out *Overview
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		profile, err := loyalty.NewRepository(tx).FindByUserID(ctx, userID)
		if repo.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "loyalty profile not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load profile")
		}
		r := NewRepository(tx)
		catalog, err := r.ListActive(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list rewards")
		}
		staged, err := r.ListOpen(ctx, userID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list staged benefits")
		}
		names, err := r.RewardNames(ctx, redemptionIDs(staged))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reward names")
		}

		out = &Overview{
			Balance:   profile.Points,
			IsVIP:     profile.IsVIP,
			Available: []RewardDTO{},
			Catalog:   make([]RewardDTO, 0, len(catalog)),
			Discounts: []DiscountOfferDTO{},
			Staged:    make([]StagedBenefitDTO, 0, len(staged)),
		}
		for _, reward := range catalog {
			dto := toRewardDTO(reward, profile.Points)
			out.Catalog = append(out.Catalog, dto)
			if dto.Affordable {
				out.Available = append(out.Available, dto)
			}
		}
		for _, offer := range s.pricing.Offers() {
			out.Discounts = append(out.Discounts, toOfferDTO(offer, profile.Points))
		}
		for _, b := range staged {
			name := ""
			if b.RedemptionID != nil {
				name = names[*b.RedemptionID]
			}
			out.Staged = append(out.Staged, toStagedDTO(b, name))
		}
		return nil
	})
	return out, err
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]RedemptionDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	var out []RedemptionDTO
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		rows, err := NewRepository(tx).ListRedemptions(ctx, userID, historyLimit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list redemptions")
		}
		out = make([]RedemptionDTO, 0, len(rows))
		for _, row := range rows {
			out = append(out, toRedemptionDTO(row))
		}
		return nil
	})
	return out, err
}

func (s *service) RedeemReward(ctx context.Context, userID, rewardID uuid.UUID) (*RedeemResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	var result *RedeemResult
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		r := NewRepository(tx)
		reward, err := r.FindActive(ctx, rewardID)
		if err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load reward")
		}

		profiles := loyalty.NewRepository(tx)
		profile, err := profiles.LockByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock profile")
		}
		outcome, err := s.program.RedeemPoints(profile, reward.PointsRequired)
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			result = declined(outcome, profile)
			return nil
		}
		if err := profiles.Save(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit points")
		}

		redemption := &models.RewardRedemption{
			UserID:      userID,
			RewardID:    reward.ID,
			PointsSpent: reward.PointsRequired,
		}
		if err := r.CreateRedemption(ctx, redemption); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record redemption")
		}
		benefit := &models.StagedBenefit{
			UserID:       userID,
			Kind:         enums.BenefitKindReward,
			DiscountRate: "0",
			RedemptionID: &redemption.ID,
			PointsSpent:  reward.PointsRequired,
			ExpiresAt:    s.now().Add(s.stagedTTL),
		}
		if err := r.CreateStaged(ctx, benefit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stage reward")
		}
		dto := toStagedDTO(*benefit, reward.Name)
		result = &RedeemResult{Outcome: OutcomeStaged, Balance: profile.Points, Benefit: &dto}
		return nil
	})
	return s.finish(ctx, enums.BenefitKindReward, result, err)
}

func (s *service) RedeemDiscount(ctx context.Context, userID uuid.UUID, kind enums.DiscountType) (*RedeemResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	offer, ok := s.pricing.Offer(kind)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown discount type").
			WithDetails(map[string]any{"invalid_fields": []string{"discount_type"}})
	}

	var result *RedeemResult
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		profiles := loyalty.NewRepository(tx)
		profile, err := profiles.LockByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock profile")
		}

		r := NewRepository(tx)
		open, err := r.LockOpen(ctx, userID, enums.BenefitKindDiscount, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check staged discounts")
		}
		if len(open) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "a discount is already waiting for your next order")
		}

		outcome, err := s.program.RedeemPoints(profile, offer.PointsCost)
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			result = declined(outcome, profile)
			return nil
		}
		if err := profiles.Save(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debit points")
		}

		discountType := offer.Type
		benefit := &models.StagedBenefit{
			UserID:       userID,
			Kind:         enums.BenefitKindDiscount,
			DiscountType: &discountType,
			DiscountRate: offer.Rate.String(),
			PointsSpent:  offer.PointsCost,
			ExpiresAt:    s.now().Add(s.stagedTTL),
		}
		if err := r.CreateStaged(ctx, benefit); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stage discount")
		}
		dto := toStagedDTO(*benefit, "")
		result = &RedeemResult{Outcome: OutcomeStaged, Balance: profile.Points, Benefit: &dto}
		return nil
	})
	return s.finish(ctx, enums.BenefitKindDiscount, result, err)
}

func (s *service) finish(ctx context.Context, kind enums.BenefitKind, result *RedeemResult, err error) (*RedeemResult, error) {
	if err != nil {
		outcome := "error"
		if pkgerrors.IsCode(err, pkgerrors.CodeConcurrency) {
			outcome = "conflict"
			s.metrics.IncConflict("redeem_" + kind.String())
		}
		s.metrics.ObserveRedemption(kind.String(), outcome)
		return nil, err
	}
	s.metrics.ObserveRedemption(kind.String(), string(result.Outcome))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"kind":    kind.String(),
			"outcome": string(result.Outcome),
			"balance": result.Balance,
		})
		s.logg.Info(logCtx, "rewards.redeemed")
	}
	return result, nil
}

func declined(outcome loyalty.Redemption, profile *models.LoyaltyProfile) *RedeemResult {
	return &RedeemResult{
		Outcome:      OutcomeDeclined,
		PointsNeeded: outcome.PointsNeeded,
		Balance:      profile.Points,
	}
}

func redemptionIDs(benefits []models.StagedBenefit) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(benefits))
	for _, b := range benefits {
		if b.RedemptionID != nil {
			ids = append(ids, *b.RedemptionID)
		}
	}
	return ids
}
