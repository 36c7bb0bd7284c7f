package controllers

import (
	"net/http"

	"github.com/angelmondragon/tablebite-backend/api/middleware"
	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/api/validators"
	"github.com/angelmondragon/tablebite-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// AuthRegister creates the account and signs it in, folding any guest cart
// the visitor built before registering.
func AuthRegister(registerSvc auth.RegisterService, authSvc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if registerSvc == nil || authSvc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var req auth.RegisterRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := registerSvc.Register(r.Context(), req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := authSvc.Login(r.Context(), auth.LoginRequest{Username: req.Username, Password: req.Password}, middleware.VisitorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var req auth.LoginRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Login(r.Context(), req, middleware.VisitorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// AuthLogout revokes the refresh session bound to the presented access token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		accessID := middleware.AccessIDFromContext(r.Context())
		if accessID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		if err := svc.Logout(r.Context(), accessID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("auth"))
			return
		}

		var req auth.RefreshRequest
		if err := validators.DecodeJSONBody(w, r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Refresh(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
