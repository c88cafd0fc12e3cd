package controllers

import (
	"net/http"

	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/api/responses"
	"github.com/revibe-app/revibe-backend/internal/categories"
	"github.com/revibe-app/revibe-backend/internal/profiles"
	"github.com/revibe-app/revibe-backend/internal/setup"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
)

type layoutResponse struct {
	Identity   *profiles.ProfileDetail  `json:"identity"`
	Categories []categories.CategoryDTO `json:"categories"`
	Setup      *setup.ChecklistDTO      `json:"setup"`
}

// Layout assembles everything the web shell needs on first paint: the
// session identity, the active category tree and the onboarding checklist.
func Layout(profileSvc profiles.Service, categorySvc categories.Service, setupSvc setup.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if profileSvc == nil || categorySvc == nil || setupSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "layout services unavailable"))
			return
		}

		actor := middleware.Principal(r.Context())

		identity, err := profileSvc.Me(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cats, err := categorySvc.List(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checklist, err := setupSvc.Checklist(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, layoutResponse{
			Identity:   identity,
			Categories: cats,
			Setup:      checklist,
		})
	}
}
