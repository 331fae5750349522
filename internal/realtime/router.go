package realtime

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/services"
)

// SendRequest is a message submitted by a connection.
type SendRequest struct {
	Sender   string
	Receiver string
	Content  string
	ClientID string
}

// Router handles inbound events for every connection. All methods are safe
// for concurrent use; events from one connection are expected to arrive
// sequentially.
type Router struct {
	store    Store
	reg      *Registry
	presence *Presence
	delivery *Delivery
	typing   *Typing
	log      zerolog.Logger
}

// NewRouter wires a Registry, Presence, Delivery and Typing over store.
func NewRouter(store Store, log zerolog.Logger) *Router {
	reg := NewRegistry()
	return &Router{
		store:    store,
		reg:      reg,
		presence: NewPresence(reg, log),
		delivery: NewDelivery(store, reg, log),
		typing:   NewTyping(reg, log),
		log:      log,
	}
}

// Registry exposes the connection registry (read-only use by HTTP).
func (r *Router) Registry() *Registry { return r.reg }

// Attach records a newly opened connection.
func (r *Router) Attach(c Conn) {
	r.reg.Attach(c)
	r.log.Debug().Uint64("conn_id", c.ID()).Msg("connection attached")
}

// actor returns the identity to act as: claimed, or the joined identity when
// claimed is empty. A joined connection may not act as anyone else.
func (r *Router) actor(c Conn, claimed string) (string, error) {
	joined, ok := r.reg.IdentityOf(c)
	if claimed == "" {
		if !ok {
			return "", services.ErrInvalidIdentity
		}
		return joined, nil
	}
	id, err := services.NormalizeIdentity(claimed)
	if err != nil {
		return "", err
	}
	if ok && id != joined {
		return "", services.ErrNotParticipant
	}
	return id, nil
}

func (r *Router) reject(c Conn, err error) {
	send(c, ErrorEvent(validationCode(err), err.Error()))
}

// HandleJoin registers identity for c and broadcasts presence.
func (r *Router) HandleJoin(ctx context.Context, c Conn, identity string) error {
	_, span := otel.Tracer("realtime/Router").Start(ctx, "HandleJoin",
		trace.WithAttributes(attribute.Int64("conn.id", int64(c.ID()))),
	)
	defer span.End()

	id, err := services.NormalizeIdentity(identity)
	if err != nil {
		r.reject(c, err)
		return err
	}
	if prev := r.reg.Register(id, c); prev != nil {
		r.log.Info().Str("identity", id).
			Uint64("conn_id", c.ID()).
			Uint64("superseded_conn_id", prev.ID()).
			Msg("identity re-registered")
	}
	r.presence.Broadcast()
	return nil
}

// HandleSend persists the message, then dispatches receive_message to the
// receiver (if online and not c) and echoes it to c. A storage failure
// yields message_failed to c only.
func (r *Router) HandleSend(ctx context.Context, c Conn, req SendRequest) (*domain.Message, error) {
	ctx, span := otel.Tracer("realtime/Router").Start(ctx, "HandleSend",
		trace.WithAttributes(attribute.Int64("conn.id", int64(c.ID()))),
	)
	defer span.End()

	sender, err := r.actor(c, req.Sender)
	if err != nil {
		r.reject(c, err)
		return nil, err
	}

	m, err := r.store.Append(ctx, sender, req.Receiver, req.Content)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, services.ErrValidation):
			r.reject(c, err)
		case errors.Is(err, services.ErrStorage):
			r.log.Error().Err(err).Uint64("conn_id", c.ID()).Str("identity", sender).Msg("append failed")
			send(c, Event{Name: EventMessageFailed, Data: FailedPayload{ClientID: req.ClientID, Reason: ReasonStorage}})
		default:
			r.log.Error().Err(err).Uint64("conn_id", c.ID()).Str("identity", sender).Msg("append failed")
			send(c, Event{Name: EventMessageFailed, Data: FailedPayload{ClientID: req.ClientID, Reason: ReasonInternal}})
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("message.id", m.ID))

	if rc, ok := r.reg.Lookup(m.Receiver); ok && rc.ID() != c.ID() {
		if !send(rc, Event{Name: EventReceiveMessage, Data: MessagePayload{Message: *m}}) {
			r.log.Warn().Str("message_id", m.ID).Uint64("conn_id", rc.ID()).Msg("receiver buffer full; message left as sent")
		}
	}
	send(c, Event{Name: EventReceiveMessage, Data: MessagePayload{Message: *m, ClientID: req.ClientID}})
	return m, nil
}

// HandleTyping relays a typing start (isTyping) or stop signal.
func (r *Router) HandleTyping(ctx context.Context, c Conn, from, to string, isTyping bool) error {
	from, err := r.actor(c, from)
	if err != nil {
		r.reject(c, err)
		return err
	}
	to, err = services.NormalizeIdentity(to)
	if err != nil {
		r.reject(c, err)
		return err
	}
	r.typing.Relay(from, to, isTyping)
	return nil
}

// HandleDelivered acknowledges delivery of messageID on behalf of the
// identity c joined as. Unknown messages and storage faults are logged only.
func (r *Router) HandleDelivered(ctx context.Context, c Conn, messageID string) error {
	ctx, span := otel.Tracer("realtime/Router").Start(ctx, "HandleDelivered",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	ackBy, _ := r.reg.IdentityOf(c)
	_, err := r.delivery.AcknowledgeDelivered(ctx, ackBy, messageID)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrValidation):
		r.reject(c, err)
	case errors.Is(err, services.ErrMessageNotFound):
		r.log.Warn().Str("message_id", messageID).Uint64("conn_id", c.ID()).Msg("delivered ack for unknown message")
	default:
		r.log.Error().Err(err).Str("message_id", messageID).Msg("delivered ack failed")
	}
	return err
}

// HandleSeen marks everything counterpart sent to viewer as seen.
func (r *Router) HandleSeen(ctx context.Context, c Conn, viewer, counterpart string) error {
	ctx, span := otel.Tracer("realtime/Router").Start(ctx, "HandleSeen")
	defer span.End()

	viewer, err := r.actor(c, viewer)
	if err != nil {
		r.reject(c, err)
		return err
	}
	counterpart, err = services.NormalizeIdentity(counterpart)
	if err != nil {
		r.reject(c, err)
		return err
	}
	if _, err := r.delivery.AcknowledgeSeen(ctx, viewer, counterpart); err != nil {
		r.log.Error().Err(err).Str("identity", viewer).Str("counterpart", counterpart).Msg("mark seen failed")
		return err
	}
	return nil
}

// HandleDisconnect removes c. identity may be empty, in which case the
// identity c joined as is used. Presence is broadcast only when a
// registration was actually removed, so a stale disconnect from a superseded
// connection changes nothing. It reports whether presence changed.
func (r *Router) HandleDisconnect(ctx context.Context, c Conn, identity string) bool {
	if identity == "" {
		identity, _ = r.reg.IdentityOf(c)
	}
	removed := identity != "" && r.reg.Unregister(identity, c)
	r.reg.Detach(c)
	r.log.Debug().Uint64("conn_id", c.ID()).Str("identity", identity).Bool("removed", removed).Msg("connection detached")
	if removed {
		r.presence.Broadcast()
	}
	return removed
}
