// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: appends, conditional status transitions, bulk seen updates and
// conversation reads.
//
// Error semantics:
//   - A missing message yields gorm.ErrRecordNotFound (exported as ErrNotFound).
//   - Status updates never move a row backward: the rank guard lives in the
//     WHERE clause, so concurrent writers cannot race a read-modify-write.
//   - All other DB errors are propagated unchanged.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-messaging-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience.
var ErrNotFound = gorm.ErrRecordNotFound

// conversationOrder is the deterministic history ordering. rowid breaks ties
// between messages created in the same instant by insertion order.
const conversationOrder = "created_at ASC, rowid ASC"

// CreateMessage inserts a new message with status sent, stamped at now (UTC).
// The ID is a random UUID.
func CreateMessage(ctx context.Context, db *gorm.DB, sender, receiver, content string, now time.Time) (*domain.Message, error) {
	now = now.UTC()
	m := &domain.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		Status:    domain.StatusSent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// AdvanceStatus moves message id to status only if its current status is
// strictly lower. It returns the number of rows changed (0 or 1); a zero
// result means the message is missing or already at/after status.
func AdvanceStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND status < ?", id, status).
		Updates(map[string]any{"status": status, "updated_at": now})
	return res.RowsAffected, res.Error
}

// MarkSeen advances every message from sender to receiver that is not yet
// seen, returning how many rows changed.
func MarkSeen(ctx context.Context, db *gorm.DB, sender, receiver string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("sender = ? AND receiver = ? AND status < ?", sender, receiver, domain.StatusSeen).
		Updates(map[string]any{"status": domain.StatusSeen, "updated_at": now})
	return res.RowsAffected, res.Error
}

// conversation scopes a query to messages exchanged between a and b in
// either direction.
func conversation(db *gorm.DB, a, b string) *gorm.DB {
	return db.Model(&domain.Message{}).
		Where("(sender = ? AND receiver = ?) OR (sender = ? AND receiver = ?)", a, b, b, a)
}

// ListConversation returns every message between a and b in history order.
func ListConversation(ctx context.Context, db *gorm.DB, a, b string) ([]domain.Message, error) {
	var out []domain.Message
	err := conversation(db.WithContext(ctx), a, b).Order(conversationOrder).Find(&out).Error
	return out, err
}

// CountConversation returns the number of messages between a and b.
func CountConversation(ctx context.Context, db *gorm.DB, a, b string) (int64, error) {
	var total int64
	err := conversation(db.WithContext(ctx), a, b).Count(&total).Error
	return total, err
}

// ListConversationPage returns a page of the conversation in history order.
// The caller computes offset and limit (e.g. (page-1)*pageSize).
func ListConversationPage(ctx context.Context, db *gorm.DB, a, b string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := conversation(db.WithContext(ctx), a, b).
		Order(conversationOrder).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
