package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a chat message between two users about a listing.
type Message struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SenderID   string    `gorm:"type:varchar(36);not null;index:idx_messages_sender_time,priority:1" json:"sender_id"`
	ReceiverID string    `gorm:"type:varchar(36);not null" json:"receiver_id"`
	ListingID  string    `gorm:"type:varchar(36);not null" json:"listing_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `gorm:"not null;index:idx_messages_sender_time,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
