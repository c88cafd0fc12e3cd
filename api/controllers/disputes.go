package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/api/responses"
	"github.com/revibe-app/revibe-backend/api/validators"
	"github.com/revibe-app/revibe-backend/internal/disputes"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
)

// DisputeOpen starts a dispute against an order the actor bought.
func DisputeOpen(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		var body disputes.OpenInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())

		dispute, err := svc.Open(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dispute)
	}
}

func DisputesList(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.Principal(r.Context()), disputes.ListInput{
			Pagination: params,
			OrderID:    orderID,
			Status:     strings.TrimSpace(r.URL.Query().Get("status")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func DisputeDetail(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeId"), "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Get(r.Context(), middleware.Principal(r.Context()), disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

// DisputeRespond acknowledges a pending response request from either party.
func DisputeRespond(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeId"), "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Respond(r.Context(), middleware.Principal(r.Context()), disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

// DisputeWithdraw lets the opener pull an unresolved dispute back.
func DisputeWithdraw(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeId"), "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispute, err := svc.Withdraw(r.Context(), middleware.Principal(r.Context()), disputeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

// AdminDisputeRequestResponse asks the named party to answer the dispute.
func AdminDisputeRequestResponse(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeId"), "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body disputes.RequestResponseInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())
		body.DisputeID = disputeID

		dispute, err := svc.RequestResponse(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}

func AdminDisputeEscalate(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return adminDisputeDecision(svc, logg, svcEscalate)
}

func AdminDisputeResolve(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return adminDisputeDecision(svc, logg, svcResolve)
}

func AdminDisputeClose(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return adminDisputeDecision(svc, logg, svcClose)
}

type disputeDecision int

const (
	svcEscalate disputeDecision = iota
	svcResolve
	svcClose
)

// adminDisputeDecision shares the decode-and-dispatch shape of the three
// admin outcomes; only the service call differs.
func adminDisputeDecision(svc disputes.Service, logg *logger.Logger, kind disputeDecision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispute service unavailable"))
			return
		}

		disputeID, err := validators.ParsePathUUID(chi.URLParam(r, "disputeId"), "disputeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body disputes.DecisionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())
		body.DisputeID = disputeID

		var dispute *disputes.DisputeDTO
		switch kind {
		case svcEscalate:
			dispute, err = svc.Escalate(r.Context(), body)
		case svcResolve:
			dispute, err = svc.Resolve(r.Context(), body)
		default:
			dispute, err = svc.Close(r.Context(), body)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dispute)
	}
}
