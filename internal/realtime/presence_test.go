package realtime

import (
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestPresence_BroadcastsFullSnapshotToAll(t *testing.T) {
	r := NewRegistry()
	p := NewPresence(r, zerolog.Nop())
	a, b, anon := newFakeConn(), newFakeConn(), newFakeConn()
	r.Register("bob", b)
	r.Register("alice", a)
	r.Attach(anon)

	got := p.Broadcast()
	if !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("snapshot = %v", got)
	}
	for _, c := range []*fakeConn{a, b, anon} {
		evs := c.named(EventOnlineUsers)
		if len(evs) != 1 {
			t.Fatalf("conn %d got %d online_users", c.ID(), len(evs))
		}
		if !reflect.DeepEqual(evs[0].Data, []string{"alice", "bob"}) {
			t.Fatalf("payload = %v", evs[0].Data)
		}
	}
}

func TestPresence_FullBufferIsCountedAsDropped(t *testing.T) {
	r := NewRegistry()
	p := NewPresence(r, zerolog.Nop())
	slow := newFakeConn()
	slow.full = true
	r.Register("slow", slow)

	before := testutil.ToFloat64(droppedEvents)
	p.Broadcast()
	if got := testutil.ToFloat64(droppedEvents); got != before+1 {
		t.Fatalf("dropped = %v, want %v", got, before+1)
	}
}
