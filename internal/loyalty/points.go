package loyalty

import (
	"time"

	"github.com/angelmondragon/tablebite-backend/pkg/config"
	"github.com/angelmondragon/tablebite-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
)

// Program applies the points rules to a profile loaded under lock. It never
// touches the database; callers persist the profile inside the same
// transaction that took the lock.
type Program struct {
	vipThreshold int64
	now          func() time.Time
}

// Redemption is the outcome of a point debit attempt.
type Redemption struct {
	Accepted     bool
	PointsNeeded int64
}

// NewProgram builds the rules from configuration.
func NewProgram(cfg config.LoyaltyConfig, clock func() time.Time) Program {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	threshold := int64(cfg.VIPThreshold)
	if threshold <= 0 {
		threshold = 500
	}
	return Program{vipThreshold: threshold, now: clock}
}

// VIPThreshold returns the balance that promotes a profile to VIP.
func (p Program) VIPThreshold() int64 {
	return p.vipThreshold
}

// AddPoints credits amount and promotes the profile to VIP the first time the
// balance reaches the threshold. VIP is never revoked.
func (p Program) AddPoints(profile *models.LoyaltyProfile, amount int64) (bool, error) {
	if amount < 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "points amount must not be negative")
	}
	profile.Points += amount
	if profile.IsVIP || profile.Points < p.vipThreshold {
		return false, nil
	}
	now := p.now()
	profile.IsVIP = true
	profile.VIPSince = &now
	return true, nil
}

// RedeemPoints debits amount when the balance covers it. A short balance is a
// declined outcome carrying the shortfall, not an error.
func (p Program) RedeemPoints(profile *models.LoyaltyProfile, amount int64) (Redemption, error) {
	if amount <= 0 {
		return Redemption{}, pkgerrors.New(pkgerrors.CodeValidation, "points amount must be positive")
	}
	if profile.Points < amount {
		return Redemption{PointsNeeded: amount - profile.Points}, nil
	}
	profile.Points -= amount
	return Redemption{Accepted: true}, nil
}
