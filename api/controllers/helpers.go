package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebite-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/tablebite-backend/pkg/errors"
)

// requireUserID returns the signed-in user's id or an UNAUTHORIZED error.
func requireUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func unavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
