package realtime

import (
	"encoding/json"

	"github.com/tbourn/go-messaging-backend/internal/domain"
)

// Inbound event names.
const (
	EventJoin             = "join"
	EventSendMessage      = "send_message"
	EventTyping           = "typing"
	EventStopTyping       = "stop_typing"
	EventMessageDelivered = "message_delivered"
	EventMarkSeen         = "mark_seen"
)

// Outbound event names.
const (
	EventOnlineUsers          = "online_users"
	EventReceiveMessage       = "receive_message"
	EventUserTyping           = "user_typing"
	EventUserStopTyping       = "user_stop_typing"
	EventMessageStatusUpdated = "message_status_updated"
	EventMessagesSeen         = "messages_seen"
	EventMessageFailed        = "message_failed"
	EventError                = "error"
)

// Event is an outbound frame. It encodes as {"event": Name, "data": Data}.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Envelope is an inbound frame; Data is decoded per event name.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound payloads.
type (
	// MessagePayload carries a stored message. ClientID is only set on the
	// echo to the sending connection.
	MessagePayload struct {
		domain.Message
		ClientID string `json:"clientId,omitempty"`
	}

	TypingPayload struct {
		From string `json:"from"`
	}

	StatusPayload struct {
		MessageID string        `json:"messageId"`
		Status    domain.Status `json:"status"`
	}

	SeenPayload struct {
		SeenBy string `json:"seenBy"`
	}

	FailedPayload struct {
		ClientID string `json:"clientId,omitempty"`
		Reason   string `json:"reason"`
	}

	ErrorPayload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
)

// Inbound payloads.
type (
	SendMessageData struct {
		Sender   string `json:"sender"   validate:"omitempty,max=64"`
		Receiver string `json:"receiver" validate:"required,max=64"`
		Content  string `json:"content"  validate:"required"`
		ClientID string `json:"clientId" validate:"omitempty,max=128"`
	}

	TypingData struct {
		From string `json:"from" validate:"omitempty,max=64"`
		To   string `json:"to"   validate:"required,max=64"`
	}

	DeliveredData struct {
		MessageID string `json:"messageId" validate:"required,max=64"`
	}

	SeenData struct {
		From string `json:"from" validate:"omitempty,max=64"`
		To   string `json:"to"   validate:"required,max=64"`
	}
)

func onlineUsers(ids []string) Event { return Event{Name: EventOnlineUsers, Data: ids} }

// ErrorEvent builds an error event for the originating connection.
func ErrorEvent(code, msg string) Event {
	return Event{Name: EventError, Data: ErrorPayload{Code: code, Message: msg}}
}
