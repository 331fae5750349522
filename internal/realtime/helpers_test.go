package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/services"
)

// fakeConn records every event it accepts.
type fakeConn struct {
	id uint64

	mu     sync.Mutex
	events []Event
	full   bool
	closed bool
}

func newFakeConn() *fakeConn { return &fakeConn{id: NextConnID()} }

func (f *fakeConn) ID() uint64 { return f.id }

func (f *fakeConn) Send(ev Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full || f.closed {
		return false
	}
	f.events = append(f.events, ev)
	return true
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) all() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeConn) named(name string) []Event {
	var out []Event
	for _, ev := range f.all() {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.events = nil
	f.mu.Unlock()
}

func newTestStore(t *testing.T) *services.MessageStore {
	t.Helper()
	dsn := fmt.Sprintf("file:rt_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return &services.MessageStore{DB: db, MaxContentRunes: 1000}
}

func newTestRouter(t *testing.T) (*Router, *services.MessageStore) {
	t.Helper()
	store := newTestStore(t)
	return NewRouter(store, zerolog.Nop()), store
}

// failingStore fails every write with a storage error.
type failingStore struct{}

var errDisk = errors.New("disk I/O error")

func (failingStore) Append(context.Context, string, string, string) (*domain.Message, error) {
	return nil, &services.StorageError{Op: "append", Err: errDisk}
}

func (failingStore) Get(context.Context, string) (*domain.Message, error) {
	return nil, &services.StorageError{Op: "get", Err: errDisk}
}

func (failingStore) SetStatus(context.Context, string, domain.Status) (*domain.Message, bool, error) {
	return nil, false, &services.StorageError{Op: "set_status", Err: errDisk}
}

func (failingStore) MarkSeenBulk(context.Context, string, string) (int64, error) {
	return 0, &services.StorageError{Op: "mark_seen", Err: errDisk}
}

// asJSON round-trips a payload so tests can inspect the wire shape.
func asJSON(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	return out
}
