package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/api/responses"
	"github.com/revibe-app/revibe-backend/api/validators"
	"github.com/revibe-app/revibe-backend/internal/refunds"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
)

// RefundRequestCreate asks for money back on a paid order, optionally tied
// to a completed return.
func RefundRequestCreate(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		var body refunds.RequestInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())

		refund, err := svc.Request(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, refund)
	}
}

func RefundRequestsList(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
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

		page, err := svc.List(r.Context(), middleware.Principal(r.Context()), refunds.ListInput{
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

func RefundRequestDetail(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := validators.ParsePathUUID(chi.URLParam(r, "refundId"), "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refund, err := svc.Get(r.Context(), middleware.Principal(r.Context()), refundID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refund)
	}
}

func AdminRefundApprove(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return adminRefundDecision(svc, logg, refundApprove)
}

func AdminRefundReject(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return adminRefundDecision(svc, logg, refundReject)
}

// AdminRefundProcess pays out an approved request and refunds the order.
func AdminRefundProcess(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return adminRefundDecision(svc, logg, refundProcess)
}

type refundDecision int

const (
	refundApprove refundDecision = iota
	refundReject
	refundProcess
)

func adminRefundDecision(svc refunds.Service, logg *logger.Logger, kind refundDecision) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "refund service unavailable"))
			return
		}

		refundID, err := validators.ParsePathUUID(chi.URLParam(r, "refundId"), "refundId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body refunds.DecisionInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())
		body.RefundID = refundID

		var refund *refunds.RefundRequestDTO
		switch kind {
		case refundApprove:
			refund, err = svc.Approve(r.Context(), body)
		case refundReject:
			refund, err = svc.Reject(r.Context(), body)
		default:
			refund, err = svc.Process(r.Context(), body)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, refund)
	}
}
