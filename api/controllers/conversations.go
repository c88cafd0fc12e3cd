package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/revibe-app/revibe-backend/api/middleware"
	"github.com/revibe-app/revibe-backend/api/responses"
	"github.com/revibe-app/revibe-backend/api/validators"
	"github.com/revibe-app/revibe-backend/internal/conversations"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/logger"
)

// ConversationStart opens a thread about a listing or an order with the
// first message inline. Reusing an existing thread is the service's call.
func ConversationStart(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}

		var body conversations.StartInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())

		thread, err := svc.Start(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, thread)
	}
}

func ConversationsList(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), middleware.Principal(r.Context()), conversations.ListInput{Pagination: params})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func ConversationDetail(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}

		conversationID, err := validators.ParsePathUUID(chi.URLParam(r, "conversationId"), "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		thread, err := svc.Get(r.Context(), middleware.Principal(r.Context()), conversationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, thread)
	}
}

func ConversationMessages(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}

		conversationID, err := validators.ParsePathUUID(chi.URLParam(r, "conversationId"), "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.Messages(r.Context(), middleware.Principal(r.Context()), conversations.MessagesInput{
			ConversationID: conversationID,
			Pagination:     params,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func ConversationSend(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}

		conversationID, err := validators.ParsePathUUID(chi.URLParam(r, "conversationId"), "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body conversations.SendInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Actor = middleware.Principal(r.Context())
		body.ConversationID = conversationID

		message, err := svc.Send(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ConversationMarkRead stamps every unread incoming message in the thread
// and reports how many it touched.
func ConversationMarkRead(svc conversations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "conversation service unavailable"))
			return
		}

		conversationID, err := validators.ParsePathUUID(chi.URLParam(r, "conversationId"), "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.MarkRead(r.Context(), middleware.Principal(r.Context()), conversationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"marked_read": count})
	}
}
