package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/api/responses"
	"github.com/revibe-app/revibe-backend/api/validators"
	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/returns"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
)

// ReturnRequest opens a return for a delivered order.
func ReturnRequest(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
			return
		}

		var body returns.RequestInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())

		ret, err := svc.Request(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}

func ReturnsList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
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

		page, err := svc.List(r.Context(), middleware.Principal(r.Context()), returns.ListInput{
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

func ReturnDetail(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return returnByID(svc, logg, func(svc returns.Service) returnAction { return svc.Get })
}

// ReturnApprove is the seller accepting the return request.
func ReturnApprove(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return returnByID(svc, logg, func(svc returns.Service) returnAction { return svc.Approve })
}

// ReturnMarkShippedBack records the buyer handing the item to the carrier.
func ReturnMarkShippedBack(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return returnByID(svc, logg, func(svc returns.Service) returnAction { return svc.MarkShippedBack })
}

// ReturnMarkReceived records the item arriving back with the seller.
func ReturnMarkReceived(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return returnByID(svc, logg, func(svc returns.Service) returnAction { return svc.MarkReceived })
}

func ReturnStartInspection(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return returnByID(svc, logg, func(svc returns.Service) returnAction { return svc.StartInspection })
}

func ReturnClose(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return returnByID(svc, logg, func(svc returns.Service) returnAction { return svc.Close })
}

// ReturnReject declines the return with a reason shown to the buyer.
func ReturnReject(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
			return
		}

		returnID, err := validators.ParsePathUUID(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returns.RejectInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())
		body.ReturnID = returnID

		ret, err := svc.Reject(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ret)
	}
}

// ReturnCompleteInspection closes the inspection with its outcome. A
// refunded outcome is what makes the money move.
func ReturnCompleteInspection(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
			return
		}

		returnID, err := validators.ParsePathUUID(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body returns.InspectionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())
		body.ReturnID = returnID

		ret, err := svc.CompleteInspection(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ret)
	}
}

type returnAction func(ctx context.Context, actor authz.Principal, id uuid.UUID) (*returns.ReturnDTO, error)

// returnByID covers the bodyless transitions that only need the actor and
// the return id.
func returnByID(svc returns.Service, logg *logger.Logger, pick func(returns.Service) returnAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return service unavailable"))
			return
		}

		returnID, err := validators.ParsePathUUID(chi.URLParam(r, "returnId"), "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := pick(svc)(r.Context(), middleware.Principal(r.Context()), returnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ret)
	}
}
