package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/api/responses"
	"github.com/revibe-app/revibe-backend/api/validators"
	"github.com/revibe-app/revibe-backend/internal/audit"
	"github.com/revibe-app/revibe-backend/internal/users"
	"github.com/revibe-app/revibe-backend/pkg/enums"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
)

type promoteRequest struct {
	Role string  `json:"role" validate:"required,oneof=user moderator admin"`
	Note *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// AdminPromoteUser changes a user's role. Demotions go through the same
// endpoint; the role in the body is the new role, whatever direction.
func AdminPromoteUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := validators.ParsePathUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body promoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role, err := enums.ParseUserRole(body.Role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role"))
			return
		}

		user, err := svc.Promote(r.Context(), users.PromoteInput{
			Actor:  middleware.Principal(r.Context()),
			UserID: userID,
			Role:   role,
			Note:   body.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, user)
	}
}

// AuditEntries pages through the audit log, filterable by action, target
// table, and acting admin.
func AuditEntries(reader *audit.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit reader unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminUserID, err := validators.ParseQueryUUID(r, "admin_user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := reader.ListEntries(r.Context(), middleware.Principal(r.Context()), audit.EntriesQuery{
			Pagination:  params,
			Action:      strings.TrimSpace(r.URL.Query().Get("action")),
			TargetTable: strings.TrimSpace(r.URL.Query().Get("target_table")),
			AdminUserID: adminUserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// AuditApprovals pages through recorded admin approvals.
func AuditApprovals(reader *audit.Reader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reader == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit reader unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminUserID, err := validators.ParseQueryUUID(r, "admin_user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := reader.ListApprovals(r.Context(), middleware.Principal(r.Context()), audit.ApprovalsQuery{
			Pagination:  params,
			Action:      strings.TrimSpace(r.URL.Query().Get("action")),
			TargetType:  strings.TrimSpace(r.URL.Query().Get("target_type")),
			AdminUserID: adminUserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}
