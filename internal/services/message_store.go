// Package services – MessageStore
//
// This file implements MessageStore, the durable record of one-to-one
// messages and their delivery lifecycle. It normalises and validates content,
// assigns identifiers and timestamps, advances status monotonically with a
// conditional update, and serves conversation history in a stable order.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// carry sender/receiver identities, message ids and pagination parameters.

package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/unicode/norm"
)

// MaxIdentityBytes bounds the length of an identity string.
const MaxIdentityBytes = 64

const defaultHistoryPageSize = 50

// MessageStore persists messages and their status.
type MessageStore struct {
	DB *gorm.DB

	// MaxContentRunes rejects longer content when > 0.
	MaxContentRunes int

	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

func (s *MessageStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NormalizeIdentity trims id and checks it is non-empty and within
// MaxIdentityBytes.
func NormalizeIdentity(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > MaxIdentityBytes {
		return "", ErrInvalidIdentity
	}
	return id, nil
}

// NormalizeContent converts CRLF to LF, composes to NFC and trims
// surrounding whitespace.
func NormalizeContent(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = norm.NFC.String(content)
	return strings.TrimSpace(content)
}

// Append records a new message from sender to receiver with status sent.
func (s *MessageStore) Append(ctx context.Context, sender, receiver, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageStore")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("message.sender", sender),
			attribute.String("message.receiver", receiver),
		),
	)
	defer span.End()

	var err error
	if sender, err = NormalizeIdentity(sender); err != nil {
		return nil, err
	}
	if receiver, err = NormalizeIdentity(receiver); err != nil {
		return nil, err
	}

	content = NormalizeContent(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrContentTooLong
	}

	m, err := repo.CreateMessage(ctx, s.DB, sender, receiver, content, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, storageErr("append", err)
	}
	span.SetAttributes(attribute.String("message.id", m.ID))
	return m, nil
}

// Get loads a message by id.
func (s *MessageStore) Get(ctx context.Context, id string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageStore")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.String("message.id", id)))
	defer span.End()

	m, err := repo.GetMessage(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return m, nil
}

// SetStatus advances message id to status. It reports changed=false with no
// error when the message already holds status, and ErrInvalidTransition when
// it is already past it.
func (s *MessageStore) SetStatus(ctx context.Context, id string, status domain.Status) (*domain.Message, bool, error) {
	tr := otel.Tracer("services/MessageStore")
	ctx, span := tr.Start(ctx, "SetStatus",
		trace.WithAttributes(
			attribute.String("message.id", id),
			attribute.String("message.status", status.String()),
		),
	)
	defer span.End()

	if !status.Valid() {
		return nil, false, ErrInvalidStatus
	}

	n, err := repo.AdvanceStatus(ctx, s.DB, id, status, s.now())
	if err != nil {
		span.RecordError(err)
		return nil, false, storageErr("set_status", err)
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if n == 1 {
		return m, true, nil
	}
	if m.Status != status && !m.Status.CanAdvanceTo(status) {
		return m, false, ErrInvalidTransition
	}
	return m, false, nil
}

// MarkSeenBulk moves every message from sender to receiver that is not yet
// seen to seen and returns how many changed.
func (s *MessageStore) MarkSeenBulk(ctx context.Context, sender, receiver string) (int64, error) {
	tr := otel.Tracer("services/MessageStore")
	ctx, span := tr.Start(ctx, "MarkSeenBulk",
		trace.WithAttributes(
			attribute.String("message.sender", sender),
			attribute.String("message.receiver", receiver),
		),
	)
	defer span.End()

	var err error
	if sender, err = NormalizeIdentity(sender); err != nil {
		return 0, err
	}
	if receiver, err = NormalizeIdentity(receiver); err != nil {
		return 0, err
	}

	n, err := repo.MarkSeen(ctx, s.DB, sender, receiver, s.now())
	if err != nil {
		span.RecordError(err)
		return 0, storageErr("mark_seen", err)
	}
	span.SetAttributes(attribute.Int64("message.updated", n))
	return n, nil
}

// History returns all messages between a and b, oldest first.
func (s *MessageStore) History(ctx context.Context, a, b string) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageStore")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("conversation.a", a),
			attribute.String("conversation.b", b),
		),
	)
	defer span.End()

	items, err := repo.ListConversation(ctx, s.DB, a, b)
	if err != nil {
		return nil, storageErr("history", err)
	}
	if items == nil {
		items = []domain.Message{}
	}
	return items, nil
}

// HistoryPage returns one page of the conversation between a and b plus the
// total number of messages.
func (s *MessageStore) HistoryPage(ctx context.Context, a, b string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageStore")
	ctx, span := tr.Start(ctx, "HistoryPage",
		trace.WithAttributes(
			attribute.String("conversation.a", a),
			attribute.String("conversation.b", b),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultHistoryPageSize
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountConversation(ctx, s.DB, a, b)
	if err != nil {
		return nil, 0, storageErr("history_count", err)
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListConversationPage(ctx, s.DB, a, b, offset, pageSize)
	if err != nil {
		return nil, 0, storageErr("history_page", err)
	}
	return items, total, nil
}

// Stats returns the message count and latest update time of a conversation,
// used for cache validators.
func (s *MessageStore) Stats(ctx context.Context, a, b string) (int64, *time.Time, error) {
	n, max, err := repo.ConversationStats(ctx, s.DB, a, b)
	if err != nil {
		return 0, nil, storageErr("stats", err)
	}
	return n, max, nil
}
