// Package handlers exposes the REST surface of the messaging backend:
//
//   - GET  /messages/{userA}/{userB}  (conversation history, paginated, ETag)
//   - GET  /users/online              (presence snapshot)
//   - POST /ai/suggest                (reply suggestions)
//   - POST /ai/analyze                (sentiment label)
//   - POST /payments/send             (payment intent, idempotent)
//
// Handlers are transport-thin: they validate input, call the services and
// translate results and errors into HTTP responses.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// HistoryService reads conversations.
type HistoryService interface {
	// HistoryPage returns one page of the conversation between a and b, oldest
	// first, and the total message count.
	HistoryPage(ctx context.Context, a, b string, page, pageSize int) ([]domain.Message, int64, error)
	// Stats returns the message count and latest update time for ETags.
	Stats(ctx context.Context, a, b string) (int64, *time.Time, error)
}

// PresenceSource lists the currently online identities.
type PresenceSource interface {
	Snapshot() []string
}

// AssistService produces AI reply suggestions and sentiment labels.
type AssistService interface {
	Suggest(ctx context.Context, conversation string) ([]string, error)
	Analyze(ctx context.Context, message string) (services.Sentiment, error)
}

// PaymentService creates payment intents.
type PaymentService interface {
	Send(ctx context.Context, receiver string, amount float64, idemKey string) (*services.Payment, error)
}

// ReplayStore records and replays idempotent responses.
type ReplayStore interface {
	Lookup(ctx context.Context, userID, scope, key string) (*domain.Idempotency, error)
	Record(ctx context.Context, userID, scope, key string, status int, body string) error
}

//
// Handler wiring
//

// Deps carries the collaborators of Handlers. Nil collaborators are allowed;
// their endpoints answer 503.
type Deps struct {
	History  HistoryService
	Presence PresenceSource
	Assist   AssistService
	Payments PaymentService
	Replays  ReplayStore
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	history  HistoryService
	presence PresenceSource
	assist   AssistService
	payments PaymentService
	replays  ReplayStore
}

// New constructs Handlers from d.
func New(d Deps) *Handlers {
	return &Handlers{
		history:  d.History,
		presence: d.Presence,
		assist:   d.Assist,
		payments: d.Payments,
		replays:  d.Replays,
	}
}
