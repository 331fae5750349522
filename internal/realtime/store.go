package realtime

import (
	"context"

	"github.com/tbourn/go-messaging-backend/internal/domain"
)

// Store is the persistence the core needs. *services.MessageStore
// implements it.
type Store interface {
	Append(ctx context.Context, sender, receiver, content string) (*domain.Message, error)
	Get(ctx context.Context, id string) (*domain.Message, error)
	SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Message, bool, error)
	MarkSeenBulk(ctx context.Context, sender, receiver string) (int64, error)
}
