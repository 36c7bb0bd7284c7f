package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/api/validators"
	"github.com/angelmondragon/tablebite-backend/internal/rewards"
	"github.com/angelmondragon/tablebite-backend/pkg/enums"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// RewardsOverview returns the balance, the catalog split by affordability, the
// discount offers, what is staged for the next order, and redemption history.
func RewardsOverview(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("rewards"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		overview, err := svc.Overview(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.History(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"overview": overview,
			"history":  history,
		})
	}
}

// RewardRedeem debits the reward's cost and stages it for the next checkout.
// A short balance is a declined result, not an error.
func RewardRedeem(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("rewards"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rewardID, err := validators.ParseUUIDParam(r, "rewardId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RedeemReward(r.Context(), userID, rewardID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type redeemDiscountRequest struct {
	DiscountType string `json:"discount_type" validate:"required"`
}

func DiscountRedeem(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("rewards"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload redeemDiscountRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RedeemDiscount(r.Context(), userID, enums.DiscountType(strings.ToLower(strings.TrimSpace(payload.DiscountType))))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
