package conversations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
	"github.com/revibe-app/revibe-backend/pkg/pagination"
)

// activity is the thread ordering key: the last message if there is one,
// thread creation otherwise.
const activity = "COALESCE(last_message_at, created_at)"

// Repository exposes conversation and message persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a conversations repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListQuery is one thread page request. PartyProfileID matches either side;
// leaving it nil (admin) drops the ownership clause.
type ListQuery struct {
	Pagination     pagination.Params
	PartyProfileID *uuid.UUID
}

// List returns one page of threads ordered by most recent activity plus the
// cursor for the next page, empty when this is the last one.
func (r *Repository) List(ctx context.Context, query ListQuery) ([]models.Conversation, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Conversation{})
	if query.PartyProfileID != nil {
		qb = qb.Where("(buyer_profile_id = ? OR seller_profile_id = ?)",
			*query.PartyProfileID, *query.PartyProfileID)
	}
	if cursor != nil {
		qb = qb.Where("("+activity+" < ?) OR ("+activity+" = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Conversation
	err = qb.Order(activity + " DESC").Order("id DESC").
		Limit(pagination.FetchSize(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.Cursor{CreatedAt: activityOf(&last), ID: last.ID}.Encode()
	}
	return rows, nextCursor, nil
}

func activityOf(c *models.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

// FindByID loads one conversation.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindByIDForUpdate loads one conversation with a row lock. Sending and
// marking read both stamp the thread, so writers serialize here.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&conversation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindByListingAndBuyer probes for an existing thread between a buyer and a
// listing's seller.
func (r *Repository) FindByListingAndBuyer(ctx context.Context, listingID, buyerProfileID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		First(&conversation, "listing_id = ? AND buyer_profile_id = ?", listingID, buyerProfileID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindByOrder probes for the thread anchored to an order. Orders bind both
// parties, so there is at most one.
func (r *Repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).First(&conversation, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CreateConversation inserts a new thread.
func (r *Repository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

// UpdateConversation applies a column map to one thread.
func (r *Repository) UpdateConversation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MessagesQuery is one message page request within a thread.
type MessagesQuery struct {
	Pagination     pagination.Params
	ConversationID uuid.UUID
}

// Messages returns one page of a thread's messages, newest first.
func (r *Repository) Messages(ctx context.Context, query MessagesQuery) ([]models.Message, string, error) {
	pageSize := pagination.NormalizeLimit(query.Pagination.Limit)
	cursor, err := pagination.Parse(query.Pagination.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ?", query.ConversationID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Message
	err = qb.Order("created_at DESC").Order("id DESC").
		Limit(pagination.FetchSize(query.Pagination.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return rows, nextCursor, nil
}

// CreateMessage inserts one message.
func (r *Repository) CreateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// UnreadMessages loads a thread's unread messages not sent by the viewer.
func (r *Repository) UnreadMessages(ctx context.Context, conversationID, viewerProfileID uuid.UUID) ([]models.Message, error) {
	var rows []models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND sender_profile_id <> ? AND read_at IS NULL",
			conversationID, viewerProfileID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkMessagesRead stamps read_at on the given messages.
func (r *Repository) MarkMessagesRead(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id IN ?", ids).
		Update("read_at", at).Error
}

// UnreadCounts returns, per conversation, how many messages the viewer has
// not read yet.
func (r *Repository) UnreadCounts(ctx context.Context, conversationIDs []uuid.UUID, viewerProfileID uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ConversationID uuid.UUID
		Total          int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("conversation_id", "COUNT(*) AS total").
		Where("conversation_id IN ? AND sender_profile_id <> ? AND read_at IS NULL",
			conversationIDs, viewerProfileID).
		Group("conversation_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.Total
	}
	return counts, nil
}

// FindListing loads the listing a new thread is anchored to.
func (r *Repository) FindListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindOrder loads the order a new thread is anchored to.
func (r *Repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
