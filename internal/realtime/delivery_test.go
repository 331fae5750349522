package realtime

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-messaging-backend/internal/domain"
)

func TestDelivery_StatusNeverDecreasesInAnyOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	orders := [][]domain.Status{
		{domain.StatusDelivered, domain.StatusSeen},
		{domain.StatusSeen, domain.StatusDelivered},
		{domain.StatusSeen, domain.StatusSent, domain.StatusDelivered},
		{domain.StatusDelivered, domain.StatusDelivered, domain.StatusSent},
	}
	for _, order := range orders {
		m, err := store.Append(ctx, "alice", "bob", "x")
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		max := domain.StatusSent
		for _, st := range order {
			_, _, _ = store.SetStatus(ctx, m.ID, st)
			if max.Less(st) {
				max = st
			}
		}
		got, _ := store.Get(ctx, m.ID)
		if got.Status != max {
			t.Fatalf("order %v: final %v, want %v", order, got.Status, max)
		}
	}
}

func TestDelivery_LateDeliveredAfterSeenIsSilent(t *testing.T) {
	store := newTestStore(t)
	reg := NewRegistry()
	d := NewDelivery(store, reg, zerolog.Nop())
	ctx := context.Background()

	sender := newFakeConn()
	reg.Register("alice", sender)
	m, _ := store.Append(ctx, "alice", "bob", "x")

	n, err := d.AcknowledgeSeen(ctx, "bob", "alice")
	if err != nil || n != 1 {
		t.Fatalf("AcknowledgeSeen: n=%d err=%v", n, err)
	}
	sender.reset()

	changed, err := d.AcknowledgeDelivered(ctx, "bob", m.ID)
	if err != nil || changed {
		t.Fatalf("late ack: changed=%v err=%v", changed, err)
	}
	if len(sender.all()) != 0 {
		t.Fatalf("late ack must not notify, got %+v", sender.all())
	}
}

func TestDelivery_SenderOfflineStillAdvances(t *testing.T) {
	store := newTestStore(t)
	d := NewDelivery(store, NewRegistry(), zerolog.Nop())
	ctx := context.Background()
	m, _ := store.Append(ctx, "alice", "bob", "x")

	before := testutil.ToFloat64(statusTransitions.WithLabelValues("delivered"))
	changed, err := d.AcknowledgeDelivered(ctx, "", m.ID)
	if err != nil || !changed {
		t.Fatalf("ack: changed=%v err=%v", changed, err)
	}
	if got := testutil.ToFloat64(statusTransitions.WithLabelValues("delivered")); got != before+1 {
		t.Fatalf("transition counter = %v, want %v", got, before+1)
	}
	got, _ := store.Get(ctx, m.ID)
	if got.Status != domain.StatusDelivered {
		t.Fatalf("status %v, want delivered", got.Status)
	}
}

func TestDelivery_SeenWithNothingUnseenIsSilent(t *testing.T) {
	store := newTestStore(t)
	reg := NewRegistry()
	d := NewDelivery(store, reg, zerolog.Nop())
	alice := newFakeConn()
	reg.Register("alice", alice)

	n, err := d.AcknowledgeSeen(context.Background(), "bob", "alice")
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if len(alice.all()) != 0 {
		t.Fatalf("no event expected when nothing changed")
	}
}
