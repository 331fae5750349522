// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides a small aggregate query used for
// conditional responses (ETag generation) on conversation history.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ConversationStats returns the number of messages between a and b and the
// greatest UpdatedAt among them. Status transitions bump UpdatedAt, so the
// pair changes whenever a client's cached history would be stale.
//
// When the conversation is empty, count is 0 and maxUpdatedAt is nil.
func ConversationStats(ctx context.Context, db *gorm.DB, a, b string) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = conversation(db.WithContext(ctx), a, b).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = conversation(db.WithContext(ctx), a, b).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
