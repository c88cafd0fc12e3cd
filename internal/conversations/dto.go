package conversations

import (
	"time"

	"github.com/google/uuid"

	"github.com/revibe-app/revibe-backend/pkg/db/models"
)

// ConversationDTO is the API shape of a message thread. UnreadCount is
// viewer-relative: incoming messages not yet marked read.
type ConversationDTO struct {
	ID              uuid.UUID  `json:"id"`
	ListingID       *uuid.UUID `json:"listing_id,omitempty"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	BuyerProfileID  uuid.UUID  `json:"buyer_profile_id"`
	SellerProfileID uuid.UUID  `json:"seller_profile_id"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	UnreadCount     int        `json:"unread_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MessageDTO is the API shape of a single message.
type MessageDTO struct {
	ID              uuid.UUID  `json:"id"`
	ConversationID  uuid.UUID  `json:"conversation_id"`
	SenderProfileID uuid.UUID  `json:"sender_profile_id"`
	Body            string     `json:"body"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ConversationPage is one keyset page of threads, most recently active first.
type ConversationPage struct {
	Conversations []ConversationDTO `json:"conversations"`
	NextCursor    string            `json:"next_cursor,omitempty"`
}

// MessagePage is one keyset page of messages, newest first.
type MessagePage struct {
	Messages   []MessageDTO `json:"messages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func conversationFromModel(c *models.Conversation, unread int) ConversationDTO {
	return ConversationDTO{
		ID:              c.ID,
		ListingID:       c.ListingID,
		OrderID:         c.OrderID,
		BuyerProfileID:  c.BuyerProfileID,
		SellerProfileID: c.SellerProfileID,
		LastMessageAt:   c.LastMessageAt,
		UnreadCount:     unread,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func messageFromModel(m *models.Message) MessageDTO {
	return MessageDTO{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		SenderProfileID: m.SenderProfileID,
		Body:            m.Body,
		ReadAt:          m.ReadAt,
		CreatedAt:       m.CreatedAt,
	}
}

func messagesFromModels(rows []models.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(rows))
	for i := range rows {
		out = append(out, messageFromModel(&rows[i]))
	}
	return out
}
