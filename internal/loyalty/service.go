package loyalty

import (
	"context"
	"fmt"

	"github.com/angelmondragon/tablebite-backend/internal/repo"
	"github.com/angelmondragon/tablebite-backend/internal/users"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes profile reads and the point operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error)
	AddPoints(ctx context.Context, userID uuid.UUID, amount int64) (*ProfileDTO, error)
	RedeemPoints(ctx context.Context, userID uuid.UUID, amount int64) (*RedeemResult, error)
}

type service struct {
	tx      txRunner
	program Program
	logg    *logger.Logger
}

// NewService wires the loyalty service.
func NewService(tx txRunner, program Program, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{tx: tx, program: program, logg: logg}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	var out *ProfileDTO
	err := s.withProfile(ctx, userID, func(tx *gorm.DB, user *models.User, profile *models.LoyaltyProfile) error {
		out = toProfileDTO(user, profile, s.program.VIPThreshold())
		return nil
	})
	return out, err
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*ProfileDTO, error) {
	var out *ProfileDTO
	err := s.withProfile(ctx, userID, func(tx *gorm.DB, user *models.User, profile *models.LoyaltyProfile) error {
		input.apply(profile)
		if err := NewRepository(tx).Save(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save profile")
		}
		out = toProfileDTO(user, profile, s.program.VIPThreshold())
		return nil
	})
	return out, err
}

func (s *service) AddPoints(ctx context.Context, userID uuid.UUID, amount int64) (*ProfileDTO, error) {
	var (
		out      *ProfileDTO
		promoted bool
	)
	err := s.withProfile(ctx, userID, func(tx *gorm.DB, user *models.User, profile *models.LoyaltyProfile) error {
		var err error
		promoted, err = s.program.AddPoints(profile, amount)
		if err != nil {
			return err
		}
		if err := NewRepository(tx).Save(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save profile")
		}
		out = toProfileDTO(user, profile, s.program.VIPThreshold())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if promoted && s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "loyalty.vip_promoted")
	}
	return out, nil
}

func (s *service) RedeemPoints(ctx context.Context, userID uuid.UUID, amount int64) (*RedeemResult, error) {
	var out *RedeemResult
	err := s.withProfile(ctx, userID, func(tx *gorm.DB, _ *models.User, profile *models.LoyaltyProfile) error {
		outcome, err := s.program.RedeemPoints(profile, amount)
		if err != nil {
			return err
		}
		out = &RedeemResult{Accepted: outcome.Accepted, PointsNeeded: outcome.PointsNeeded, Balance: profile.Points}
		if !outcome.Accepted {
			return nil
		}
		if err := NewRepository(tx).Save(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save profile")
		}
		return nil
	})
	return out, err
}

func (s *service) withProfile(ctx context.Context, userID uuid.UUID, fn func(tx *gorm.DB, user *models.User, profile *models.LoyaltyProfile) error) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).FindByID(ctx, userID)
		if err != nil {
			if repo.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}
		profile, err := NewRepository(tx).LockByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock profile")
		}
		return fn(tx, user, profile)
	})
}
