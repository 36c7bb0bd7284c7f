package controllers

import (
	"net/http"

	"github.com/angelmondragon/tablebite-backend/api/responses"
	"github.com/angelmondragon/tablebite-backend/api/validators"
	"github.com/angelmondragon/tablebite-backend/internal/catalog"
	"github.com/angelmondragon/tablebite-backend/pkg/logger"
)

// Menu lists categories with their available items, optionally narrowed to
// ?category=<id>.
func Menu(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		categoryID, err := validators.ParseQueryUUID(r, "category")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		categories, err := svc.Menu(r.Context(), categoryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"categories": categories})
	}
}

func MenuItem(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		itemID, err := validators.ParseUUIDParam(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetItem(r.Context(), itemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func NewsList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		posts, err := svc.News(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"news": posts})
	}
}

func NewsDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("catalog"))
			return
		}

		newsID, err := validators.ParseUUIDParam(r, "newsId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		post, err := svc.GetNews(r.Context(), newsID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, post)
	}
}
