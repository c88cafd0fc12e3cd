package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a buyer/seller message thread, optionally anchored to a
// listing or an order.
type Conversation struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID       *uuid.UUID `gorm:"column:listing_id;type:uuid"`
	OrderID         *uuid.UUID `gorm:"column:order_id;type:uuid"`
	BuyerProfileID  uuid.UUID  `gorm:"column:buyer_profile_id;type:uuid;not null;index"`
	SellerProfileID uuid.UUID  `gorm:"column:seller_profile_id;type:uuid;not null;index"`
	LastMessageAt   *time.Time `gorm:"column:last_message_at"`
	Messages        []Message  `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Message is a single utterance inside a conversation.
type Message struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID  uuid.UUID  `gorm:"column:conversation_id;type:uuid;not null;index"`
	SenderProfileID uuid.UUID  `gorm:"column:sender_profile_id;type:uuid;not null"`
	Body            string     `gorm:"column:body;not null"`
	ReadAt          *time.Time `gorm:"column:read_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
