package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownEvent is returned by Dispatch for an unrecognised event name.
var ErrUnknownEvent = errors.New("unknown event")

// ErrBadPayload is returned by Dispatch when data does not decode or fails
// validation.
var ErrBadPayload = errors.New("bad payload")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Dispatch decodes one inbound envelope from c and routes it. Decode and
// validation failures are reported to c as an error event.
func (r *Router) Dispatch(ctx context.Context, c Conn, env Envelope) error {
	inboundEvents.WithLabelValues(eventLabel(env.Event)).Inc()

	switch env.Event {
	case EventJoin:
		var identity string
		if err := json.Unmarshal(env.Data, &identity); err != nil {
			// {"identity": "..."} is accepted too.
			var obj struct {
				Identity string `json:"identity"`
			}
			if err2 := json.Unmarshal(env.Data, &obj); err2 != nil || obj.Identity == "" {
				return r.badPayload(c, env.Event, err)
			}
			identity = obj.Identity
		}
		return r.HandleJoin(ctx, c, identity)

	case EventSendMessage:
		var d SendMessageData
		if err := decode(env.Data, &d); err != nil {
			return r.badPayload(c, env.Event, err)
		}
		_, err := r.HandleSend(ctx, c, SendRequest{Sender: d.Sender, Receiver: d.Receiver, Content: d.Content, ClientID: d.ClientID})
		return err

	case EventTyping, EventStopTyping:
		var d TypingData
		if err := decode(env.Data, &d); err != nil {
			return r.badPayload(c, env.Event, err)
		}
		return r.HandleTyping(ctx, c, d.From, d.To, env.Event == EventTyping)

	case EventMessageDelivered:
		var d DeliveredData
		if err := decode(env.Data, &d); err != nil {
			return r.badPayload(c, env.Event, err)
		}
		return r.HandleDelivered(ctx, c, d.MessageID)

	case EventMarkSeen:
		var d SeenData
		if err := decode(env.Data, &d); err != nil {
			return r.badPayload(c, env.Event, err)
		}
		return r.HandleSeen(ctx, c, d.From, d.To)
	}

	send(c, ErrorEvent(CodeUnknownEvent, fmt.Sprintf("unknown event %q", env.Event)))
	return ErrUnknownEvent
}

func decode(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return errors.New("missing data")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

func (r *Router) badPayload(c Conn, event string, err error) error {
	msg := "invalid payload"
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	r.log.Debug().Err(err).Uint64("conn_id", c.ID()).Str("event", event).Msg("rejected inbound payload")
	send(c, ErrorEvent(CodeBadPayload, msg))
	return fmt.Errorf("%w: %v", ErrBadPayload, err)
}

// eventLabel bounds metric cardinality to known names.
func eventLabel(name string) string {
	switch name {
	case EventJoin, EventSendMessage, EventTyping, EventStopTyping, EventMessageDelivered, EventMarkSeen:
		return name
	}
	return "unknown"
}
