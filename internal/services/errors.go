// Package services defines the business logic for messages and the external
// collaborators (AI assistance, payments). This file centralizes service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into HTTP status codes or WebSocket events is performed at the handler and
// router layers.
package services

import (
	"errors"
	"fmt"
)

// ErrValidation is the category of every input-shape error. Each specific
// validation sentinel below wraps it, so errors.Is(err, ErrValidation) holds.
var ErrValidation = errors.New("validation failed")

// Message validation errors.
var (
	// ErrEmptyContent is returned when message content is empty after
	// normalisation.
	ErrEmptyContent = fmt.Errorf("%w: content is empty", ErrValidation)

	// ErrContentTooLong is returned when content exceeds the configured
	// maximum number of runes.
	ErrContentTooLong = fmt.Errorf("%w: content too long", ErrValidation)

	// ErrInvalidIdentity is returned for a blank or oversized identity.
	ErrInvalidIdentity = fmt.Errorf("%w: invalid identity", ErrValidation)

	// ErrNotParticipant is returned when an identity acts on a message it is
	// not a party to, or a joined connection sends under another identity.
	ErrNotParticipant = fmt.Errorf("%w: not a participant", ErrValidation)

	// ErrInvalidStatus is returned for a status outside sent|delivered|seen.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)
)

// Lifecycle errors.
var (
	// ErrMessageNotFound indicates that the referenced message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvalidTransition is returned when a status update would move a
	// message backward (e.g. seen -> delivered).
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage failure")

// StorageError wraps a persistence fault with the operation that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

// Unwrap exposes the underlying driver error.
func (e *StorageError) Unwrap() error { return e.Err }

// Is reports true for ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// Collaborator errors.
var (
	// ErrNotConfigured is returned when an external collaborator (OpenAI,
	// Stripe) has no credentials configured.
	ErrNotConfigured = errors.New("collaborator not configured")

	// ErrUpstream wraps a failure reported by an external collaborator.
	ErrUpstream = errors.New("upstream failure")

	// ErrInvalidAmount is returned for a non-positive or non-finite amount.
	ErrInvalidAmount = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)

	// ErrEmptyConversation is returned when a suggestion request carries no
	// conversation text.
	ErrEmptyConversation = fmt.Errorf("%w: conversation is empty", ErrValidation)

	// ErrEmptyMessage is returned when a sentiment request carries no message.
	ErrEmptyMessage = fmt.Errorf("%w: message is required", ErrValidation)
)
