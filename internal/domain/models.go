// Package domain defines the persistence models of the messaging backend.
// These types are mapped with GORM and shared across the repository, service,
// realtime and HTTP layers.
package domain

import "time"

// Message is a single one-to-one message between two identities.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - Sender / Receiver: opaque identities supplied by the clients.
//   - Content: normalized, non-empty text.
//   - Status: delivery state; only ever moves forward (sent → delivered → seen).
//   - CreatedAt: set once at append time and never updated.
//   - UpdatedAt: bumped on every status transition.
//
// The two composite indexes serve the two hot queries: conversation history
// (participants + time) and bulk seen (directed pair + status).
type Message struct {
	ID        string    `json:"id"        gorm:"type:char(36);primaryKey"`
	Sender    string    `json:"sender"    gorm:"type:varchar(64);not null;index:idx_msg_pair,priority:1;index:idx_msg_unseen,priority:1"`
	Receiver  string    `json:"receiver"  gorm:"type:varchar(64);not null;index:idx_msg_pair,priority:2;index:idx_msg_unseen,priority:2"`
	Content   string    `json:"content"   gorm:"type:text;not null"`
	Status    Status    `json:"status"    gorm:"type:INTEGER;not null;default:1;index:idx_msg_unseen,priority:3"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index:idx_msg_pair,priority:3"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
