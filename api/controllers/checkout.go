package controllers

import (
	"net/http"

	"github.com/angelmondragon/tablebite-backend/api/middleware"
	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/api/validators"
	"github.com/angelmondragon/tablebite-backend/internal/checkout"
	pkgcheckout "github.com/angelmondragon/tablebite-backend/pkg/checkout"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// Presence is checked by the checkout engine so every missing field is
// reported together; the tags here only bound sizes and check the phone's shape.
type checkoutRequest struct {
	CustomerName        string `json:"customer_name" validate:"max=120"`
	Phone               string `json:"phone" validate:"omitempty,max=32,phone"`
	DeliveryAddress     string `json:"delivery_address" validate:"max=512"`
	PaymentMethod       string `json:"payment_method" validate:"max=16"`
	SpecialInstructions string `json:"special_instructions" validate:"max=1000"`
}

func (r checkoutRequest) toDeliveryInfo() pkgcheckout.DeliveryInfo {
	return pkgcheckout.DeliveryInfo{
		CustomerName:        r.CustomerName,
		Phone:               r.Phone,
		Address:             r.DeliveryAddress,
		PaymentMethod:       r.PaymentMethod,
		SpecialInstructions: r.SpecialInstructions,
	}
}

func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("checkout"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), middleware.ShopperFromContext(r.Context()), payload.toDeliveryInfo())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
