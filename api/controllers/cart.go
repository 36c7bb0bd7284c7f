package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/api/middleware"
	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/api/validators"
	"github.com/angelmondragon/tablebite-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

type addCartItemRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id" validate:"required"`
	Quantity   *int      `json:"quantity" validate:"omitempty,min=-1000,max=1000"`
	Mode       string    `json:"mode" validate:"omitempty,oneof=increment replace"`
}

func (r addCartItemRequest) toInput() (cart.AddItemInput, error) {
	mode, err := cart.ParseMode(r.Mode)
	if err != nil {
		return cart.AddItemInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart mode")
	}
	quantity := 1
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	return cart.AddItemInput{MenuItemID: r.MenuItemID, Quantity: quantity, Mode: mode}, nil
}

type setCartQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=1000"`
}

func CartGet(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}

		view, err := svc.Resolve(r.Context(), middleware.ShopperFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartCount is the header badge; it never fails.
func CartCount(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var count int64
		if svc != nil {
			count = svc.TotalItemCount(r.Context(), middleware.ShopperFromContext(r.Context()))
		}
		responses.WriteSuccess(w, map[string]int64{"item_count": count})
	}
}

func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AddItem(r.Context(), middleware.ShopperFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CartSetQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setCartQuantityRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetQuantity(r.Context(), middleware.ShopperFromContext(r.Context()), itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.RemoveItem(r.Context(), middleware.ShopperFromContext(r.Context()), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("cart"))
			return
		}

		if err := svc.Clear(r.Context(), middleware.ShopperFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
