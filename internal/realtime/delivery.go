package realtime

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/services"
)

// Delivery advances message status and tells the original sender.
type Delivery struct {
	store Store
	reg   *Registry
	log   zerolog.Logger
}

// NewDelivery returns a state machine persisting through store.
func NewDelivery(store Store, reg *Registry, log zerolog.Logger) *Delivery {
	return &Delivery{store: store, reg: reg, log: log}
}

// AcknowledgeDelivered moves messageID from sent to delivered. When ackBy is
// non-empty it must be the message receiver. The sender is notified with
// message_status_updated only if the status actually changed; an ack for a
// message already delivered or seen is a no-op. It reports whether the
// status changed.
func (d *Delivery) AcknowledgeDelivered(ctx context.Context, ackBy, messageID string) (bool, error) {
	if ackBy != "" {
		m, err := d.store.Get(ctx, messageID)
		if err != nil {
			return false, err
		}
		if m.Receiver != ackBy {
			return false, services.ErrNotParticipant
		}
	}

	m, changed, err := d.store.SetStatus(ctx, messageID, domain.StatusDelivered)
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		d.log.Debug().Str("message_id", messageID).Msg("late delivered ack ignored")
		return false, nil
	case err != nil:
		return false, err
	case !changed:
		return false, nil
	}

	statusTransitions.WithLabelValues(domain.StatusDelivered.String()).Inc()
	if c, ok := d.reg.Lookup(m.Sender); ok {
		send(c, Event{Name: EventMessageStatusUpdated, Data: StatusPayload{MessageID: m.ID, Status: m.Status}})
	}
	return true, nil
}

// AcknowledgeSeen marks every message from counterpart to viewer seen. If
// any changed, counterpart receives one messages_seen event. It is safe to
// repeat; it returns how many messages changed.
func (d *Delivery) AcknowledgeSeen(ctx context.Context, viewer, counterpart string) (int64, error) {
	n, err := d.store.MarkSeenBulk(ctx, counterpart, viewer)
	if err != nil || n == 0 {
		return 0, err
	}

	statusTransitions.WithLabelValues(domain.StatusSeen.String()).Add(float64(n))
	if c, ok := d.reg.Lookup(counterpart); ok {
		send(c, Event{Name: EventMessagesSeen, Data: SeenPayload{SeenBy: viewer}})
	}
	return n, nil
}
