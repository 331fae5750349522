package realtime

import (
	"errors"

	"github.com/tbourn/go-messaging-backend/internal/services"
)

// Error codes carried by the error event.
const (
	CodeInvalidIdentity = "invalid_identity"
	CodeEmptyContent    = "empty_content"
	CodeContentTooLong  = "content_too_long"
	CodeNotParticipant  = "not_participant"
	CodeValidation      = "validation_failed"
	CodeBadPayload      = "bad_payload"
	CodeUnknownEvent    = "unknown_event"
)

// Failure reasons carried by message_failed.
const (
	ReasonStorage  = "storage_unavailable"
	ReasonInternal = "internal_error"
)

// validationCode maps a service validation error to its wire code.
func validationCode(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidIdentity):
		return CodeInvalidIdentity
	case errors.Is(err, services.ErrEmptyContent):
		return CodeEmptyContent
	case errors.Is(err, services.ErrContentTooLong):
		return CodeContentTooLong
	case errors.Is(err, services.ErrNotParticipant):
		return CodeNotParticipant
	default:
		return CodeValidation
	}
}
