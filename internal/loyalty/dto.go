package loyalty

import (
	"strings"
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	"github.com/google/uuid"
)

// ProfileDTO is the customer-facing profile view.
type ProfileDTO struct {
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	Points      int64      `json:"points"`
	IsVIP       bool       `json:"is_vip"`
	VIPSince    *time.Time `json:"vip_since,omitempty"`
	PointsToVIP int64      `json:"points_to_vip"`
}

// UpdateProfileInput carries the editable contact fields. Nil leaves a field untouched.
type UpdateProfileInput struct {
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Address *string `json:"address" validate:"omitempty,max=512"`
}

// RedeemResult reports a direct point debit.
type RedeemResult struct {
	Accepted     bool  `json:"accepted"`
	PointsNeeded int64 `json:"points_needed,omitempty"`
	Balance      int64 `json:"balance"`
}

func toProfileDTO(user *models.User, profile *models.LoyaltyProfile, threshold int64) *ProfileDTO {
	dto := &ProfileDTO{
		UserID:   profile.UserID,
		Phone:    profile.Phone,
		Address:  profile.Address,
		Points:   profile.Points,
		IsVIP:    profile.IsVIP,
		VIPSince: profile.VIPSince,
	}
	if user != nil {
		dto.Username = user.Username
		dto.Email = user.Email
		dto.FirstName = user.FirstName
		dto.LastName = user.LastName
	}
	if !profile.IsVIP && profile.Points < threshold {
		dto.PointsToVIP = threshold - profile.Points
	}
	return dto
}

func (in UpdateProfileInput) apply(profile *models.LoyaltyProfile) {
	if in.Phone != nil {
		profile.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		profile.Address = strings.TrimSpace(*in.Address)
	}
}
