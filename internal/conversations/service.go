package conversations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/revibe-app/revibe-backend/internal/authz"
	"github.com/revibe-app/revibe-backend/internal/hooks"
	"github.com/revibe-app/revibe-backend/pkg/db"
	"github.com/revibe-app/revibe-backend/pkg/db/models"
	pkgerrors "github.com/revibe-app/revibe-backend/pkg/errors"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// Service runs the buyer/seller message threads. A thread is anchored to a
// listing (pre-sale questions) or an order (everything after), and Start
// reuses the existing thread for the same anchor and pair instead of
// splitting the history.
type Service interface {
	Start(ctx context.Context, input StartInput) (*ConversationDTO, error)
	List(ctx context.Context, actor authz.Principal, input ListInput) (*ConversationPage, error)
	Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ConversationDTO, error)
	Messages(ctx context.Context, actor authz.Principal, input MessagesInput) (*MessagePage, error)
	Send(ctx context.Context, input SendInput) (*MessageDTO, error)
	MarkRead(ctx context.Context, actor authz.Principal, conversationID uuid.UUID) (int, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type hookRunner interface {
	Run(ctx context.Context, tx *gorm.DB, phase hooks.Phase, ev *hooks.Event) error
}

type service struct {
	repo     *Repository
	tx       txRunner
	registry *authz.Registry
	hooks    hookRunner
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the conversations service.
type ServiceParams struct {
	Repo     *Repository
	TxRunner txRunner
	Registry *authz.Registry
	Hooks    hookRunner
}

// NewService constructs a conversations service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("conversations repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("authz registry required")
	}
	if params.Hooks == nil {
		return nil, fmt.Errorf("hook engine required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		registry: params.Registry,
		hooks:    params.Hooks,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// StartInput opens a thread about a listing or an order with its first
// message. Exactly one anchor must be set.
type StartInput struct {
	Actor     authz.Principal `json:"-"`
	ListingID *uuid.UUID      `json:"listing_id,omitempty"`
	OrderID   *uuid.UUID      `json:"order_id,omitempty"`
	Body      string          `json:"body" validate:"required,max=2000"`
}

// ListInput selects one page of threads.
type ListInput struct {
	Pagination pagination.Params
}

// MessagesInput selects one page of a thread's messages.
type MessagesInput struct {
	ConversationID uuid.UUID
	Pagination     pagination.Params
}

// SendInput posts a message to an existing thread.
type SendInput struct {
	Actor          authz.Principal `json:"-"`
	ConversationID uuid.UUID       `json:"-"`
	Body           string          `json:"body" validate:"required,max=2000"`
}

func (s *service) Start(ctx context.Context, input StartInput) (*ConversationDTO, error) {
	actor := input.Actor
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}
	if (input.ListingID == nil) == (input.OrderID == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of listing id or order id anchors a conversation")
	}

	var conversation *models.Conversation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var buyer, seller uuid.UUID
		var existing *models.Conversation
		var err error
		if input.ListingID != nil {
			buyer, seller, err = s.listingParties(ctx, repo, actor, *input.ListingID)
			if err != nil {
				return err
			}
			existing, err = repo.FindByListingAndBuyer(ctx, *input.ListingID, buyer)
		} else {
			buyer, seller, err = s.orderParties(ctx, repo, actor, *input.OrderID)
			if err != nil {
				return err
			}
			existing, err = repo.FindByOrder(ctx, *input.OrderID)
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe conversations")
		}

		if existing == nil {
			fresh := &models.Conversation{
				ID:              uuid.New(),
				ListingID:       input.ListingID,
				OrderID:         input.OrderID,
				BuyerProfileID:  buyer,
				SellerProfileID: seller,
			}
			if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableConversations, fresh); err != nil {
				return err
			}
			if err := repo.CreateConversation(ctx, fresh); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeConflict, "conversation already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
			}
			existing = fresh
		}
		conversation = existing
		return s.postMessage(ctx, tx, repo, actor, conversation, body)
	})
	if err != nil {
		return nil, err
	}
	dto := conversationFromModel(conversation, 0)
	return &dto, nil
}

// listingParties resolves who a listing-anchored thread is between. The
// actor becomes the buyer side, so sellers cannot open threads on their own
// listings.
func (s *service) listingParties(ctx context.Context, repo *Repository, actor authz.Principal, listingID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	listing, err := repo.FindListing(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if !s.registry.CanSelect(actor, authz.TableListings, listing) {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if !actor.HasProfile() {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if listing.SellerProfileID == actor.ProfileID {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot start a conversation on your own listing")
	}
	return actor.ProfileID, listing.SellerProfileID, nil
}

func (s *service) orderParties(ctx context.Context, repo *Repository, actor authz.Principal, orderID uuid.UUID) (uuid.UUID, uuid.UUID, error) {
	order, err := repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !s.registry.CanSelect(actor, authz.TableOrders, order) {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !actor.HasProfile() ||
		(order.BuyerProfileID != actor.ProfileID && order.SellerProfileID != actor.ProfileID) {
		return uuid.Nil, uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an order party starts its conversation")
	}
	return order.BuyerProfileID, order.SellerProfileID, nil
}

func (s *service) List(ctx context.Context, actor authz.Principal, input ListInput) (*ConversationPage, error) {
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	query := ListQuery{Pagination: input.Pagination}
	if !actor.IsAdmin() {
		if !actor.HasProfile() {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
		}
		party := actor.ProfileID
		query.PartyProfileID = &party
	}

	rows, nextCursor, err := s.repo.List(ctx, query)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	visible := authz.Filter(s.registry, actor, authz.TableConversations, rows, func(c models.Conversation) any {
		row := c
		return &row
	})

	ids := make([]uuid.UUID, 0, len(visible))
	for i := range visible {
		ids = append(ids, visible[i].ID)
	}
	unread, err := s.repo.UnreadCounts(ctx, ids, actor.ProfileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}

	out := make([]ConversationDTO, 0, len(visible))
	for i := range visible {
		out = append(out, conversationFromModel(&visible[i], unread[visible[i].ID]))
	}
	return &ConversationPage{Conversations: out, NextCursor: nextCursor}, nil
}

func (s *service) Get(ctx context.Context, actor authz.Principal, id uuid.UUID) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, s.repo, actor, id)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.UnreadCounts(ctx, []uuid.UUID{conversation.ID}, actor.ProfileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	dto := conversationFromModel(conversation, unread[conversation.ID])
	return &dto, nil
}

func (s *service) Messages(ctx context.Context, actor authz.Principal, input MessagesInput) (*MessagePage, error) {
	conversation, err := s.loadConversation(ctx, s.repo, actor, input.ConversationID)
	if err != nil {
		return nil, err
	}

	rows, nextCursor, err := s.repo.Messages(ctx, MessagesQuery{
		Pagination:     input.Pagination,
		ConversationID: conversation.ID,
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	visible := authz.Filter(s.registry, actor, authz.TableMessages, rows, func(m models.Message) any {
		row := m
		return authz.MessageRow{Message: &row, Conversation: conversation}
	})
	return &MessagePage{Messages: messagesFromModels(visible), NextCursor: nextCursor}, nil
}

func (s *service) Send(ctx context.Context, input SendInput) (*MessageDTO, error) {
	actor := input.Actor
	if !actor.Authenticated {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body is required")
	}

	var message *models.Message
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		conversation, err := s.lockConversation(ctx, repo, actor, input.ConversationID)
		if err != nil {
			return err
		}
		msg, err := s.createMessage(ctx, repo, actor, conversation, body)
		if err != nil {
			return err
		}
		message = msg
		return s.stampActivity(ctx, tx, repo, conversation, msg.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	dto := messageFromModel(message)
	return &dto, nil
}

// MarkRead stamps every unread incoming message in the thread and returns
// how many it touched.
func (s *service) MarkRead(ctx context.Context, actor authz.Principal, conversationID uuid.UUID) (int, error) {
	if !actor.Authenticated {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	marked := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		conversation, err := s.lockConversation(ctx, repo, actor, conversationID)
		if err != nil {
			return err
		}

		unread, err := repo.UnreadMessages(ctx, conversation.ID, actor.ProfileID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unread messages")
		}
		if len(unread) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(unread))
		for i := range unread {
			row := authz.MessageRow{Message: &unread[i], Conversation: conversation}
			if err := s.registry.Authorize(actor, authz.OpUpdate, authz.TableMessages, row); err != nil {
				return err
			}
			ids = append(ids, unread[i].ID)
		}
		if err := repo.MarkMessagesRead(ctx, ids, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
		}
		marked = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

// postMessage writes the message and refreshes the thread's activity stamp.
func (s *service) postMessage(ctx context.Context, tx *gorm.DB, repo *Repository, actor authz.Principal, conversation *models.Conversation, body string) error {
	msg, err := s.createMessage(ctx, repo, actor, conversation, body)
	if err != nil {
		return err
	}
	return s.stampActivity(ctx, tx, repo, conversation, msg.CreatedAt)
}

func (s *service) createMessage(ctx context.Context, repo *Repository, actor authz.Principal, conversation *models.Conversation, body string) (*models.Message, error) {
	message := &models.Message{
		ID:              uuid.New(),
		ConversationID:  conversation.ID,
		SenderProfileID: actor.ProfileID,
		Body:            body,
		CreatedAt:       s.now(),
	}
	row := authz.MessageRow{Message: message, Conversation: conversation}
	if err := s.registry.Authorize(actor, authz.OpInsert, authz.TableMessages, row); err != nil {
		return nil, err
	}
	if err := repo.CreateMessage(ctx, message); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}
	return message, nil
}

// stampActivity moves last_message_at forward. This is a consistency write
// riding the message insert, not an actor operation: no policy grants anyone
// UPDATE on conversations.
func (s *service) stampActivity(ctx context.Context, tx *gorm.DB, repo *Repository, conversation *models.Conversation, at time.Time) error {
	old := *conversation
	conversation.LastMessageAt = &at
	ev := &hooks.Event{Table: authz.TableConversations, Op: hooks.OpUpdate, Row: conversation, Old: &old}
	if err := s.hooks.Run(ctx, tx, hooks.PhaseBefore, ev); err != nil {
		return err
	}
	updates := map[string]any{
		"last_message_at": conversation.LastMessageAt,
		"updated_at":      conversation.UpdatedAt,
	}
	if err := repo.UpdateConversation(ctx, conversation.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update conversation")
	}
	return nil
}

func (s *service) loadConversation(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !s.registry.CanSelect(actor, authz.TableConversations, conversation) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	return conversation, nil
}

func (s *service) lockConversation(ctx context.Context, repo *Repository, actor authz.Principal, id uuid.UUID) (*models.Conversation, error) {
	conversation, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	if !s.registry.CanSelect(actor, authz.TableConversations, conversation) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
	}
	return conversation, nil
}
