package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-messaging-backend/internal/domain"
)

// test DB helper
func newMsgRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("msg_repo_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateMessage_AssignsIDStatusAndTimestamp(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	ctx := context.Background()

	m1, err := CreateMessage(ctx, db, "alice", "bob", "hello", time.Now())
	if err != nil {
		t.Fatalf("CreateMessage error: %v", err)
	}
	m2, err := CreateMessage(ctx, db, "alice", "bob", "hello", time.Now())
	if err != nil {
		t.Fatalf("CreateMessage error: %v", err)
	}
	if m1.ID == "" || m1.ID == m2.ID {
		t.Fatalf("ids must be unique and non-empty: %q %q", m1.ID, m2.ID)
	}
	if m1.Status != domain.StatusSent {
		t.Fatalf("new message status = %v, want sent", m1.Status)
	}
	if m1.CreatedAt.IsZero() || time.Since(m1.CreatedAt) > time.Minute {
		t.Fatalf("CreatedAt not set sensibly: %v", m1.CreatedAt)
	}

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	m3, err := CreateMessage(ctx, db, "alice", "bob", "stamped", at)
	if err != nil {
		t.Fatalf("CreateMessage error: %v", err)
	}
	if !m3.CreatedAt.Equal(at) || m3.CreatedAt.Location() != time.UTC || !m3.UpdatedAt.Equal(at) {
		t.Fatalf("CreatedAt/UpdatedAt = %v/%v, want %v in UTC", m3.CreatedAt, m3.UpdatedAt, at)
	}

	got, err := GetMessage(ctx, db, m1.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Sender != "alice" || got.Receiver != "bob" || got.Content != "hello" || got.Status != domain.StatusSent {
		t.Fatalf("unexpected readback: %+v", got)
	}
}

func TestCreateMessage_NoTable(t *testing.T) {
	db := newMsgRepoDB(t)
	if _, err := CreateMessage(context.Background(), db, "a", "b", "x", time.Now()); err == nil {
		t.Fatalf("expected error without messages table")
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	if _, err := GetMessage(context.Background(), db, "nope"); err != ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestAdvanceStatus_OnlyMovesForward(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	ctx := context.Background()
	m, _ := CreateMessage(ctx, db, "alice", "bob", "x", time.Now())
	now := time.Now().UTC()

	n, err := AdvanceStatus(ctx, db, m.ID, domain.StatusDelivered, now)
	if err != nil || n != 1 {
		t.Fatalf("sent->delivered: n=%d err=%v", n, err)
	}
	// same status again is a no-op
	n, err = AdvanceStatus(ctx, db, m.ID, domain.StatusDelivered, now)
	if err != nil || n != 0 {
		t.Fatalf("delivered->delivered: n=%d err=%v", n, err)
	}
	n, err = AdvanceStatus(ctx, db, m.ID, domain.StatusSeen, now)
	if err != nil || n != 1 {
		t.Fatalf("delivered->seen: n=%d err=%v", n, err)
	}
	// backward never applies
	n, err = AdvanceStatus(ctx, db, m.ID, domain.StatusDelivered, now)
	if err != nil || n != 0 {
		t.Fatalf("seen->delivered: n=%d err=%v", n, err)
	}

	got, _ := GetMessage(ctx, db, m.ID)
	if got.Status != domain.StatusSeen {
		t.Fatalf("final status %v, want seen", got.Status)
	}

	if n, err := AdvanceStatus(ctx, db, "missing", domain.StatusSeen, now); err != nil || n != 0 {
		t.Fatalf("missing id: n=%d err=%v", n, err)
	}
}

func TestAdvanceStatus_ConcurrentWritersChangeOnce(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	ctx := context.Background()
	m, _ := CreateMessage(ctx, db, "alice", "bob", "x", time.Now())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := AdvanceStatus(ctx, db, m.ID, domain.StatusDelivered, time.Now().UTC())
			if err != nil {
				return
			}
			mu.Lock()
			changed += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	if changed != 1 {
		t.Fatalf("expected exactly one effective transition, got %d", changed)
	}
}

func TestMarkSeen_OnlyOneDirection(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	ctx := context.Background()
	a1, _ := CreateMessage(ctx, db, "alice", "bob", "1", time.Now())
	a2, _ := CreateMessage(ctx, db, "alice", "bob", "2", time.Now())
	b1, _ := CreateMessage(ctx, db, "bob", "alice", "3", time.Now())
	_, _ = AdvanceStatus(ctx, db, a2.ID, domain.StatusSeen, time.Now().UTC())

	n, err := MarkSeen(ctx, db, "alice", "bob", time.Now().UTC())
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row changed (a2 already seen), got %d", n)
	}
	for id, want := range map[string]domain.Status{a1.ID: domain.StatusSeen, a2.ID: domain.StatusSeen, b1.ID: domain.StatusSent} {
		got, _ := GetMessage(ctx, db, id)
		if got.Status != want {
			t.Fatalf("message %s status %v, want %v", id, got.Status, want)
		}
	}

	n, err = MarkSeen(ctx, db, "alice", "bob", time.Now().UTC())
	if err != nil || n != 0 {
		t.Fatalf("second MarkSeen: n=%d err=%v", n, err)
	}
}

func TestListConversation_BothDirectionsOrdered(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	ctx := context.Background()

	// Same CreatedAt for all: rowid keeps insertion order.
	same := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.Message{
		{ID: "m1", Sender: "alice", Receiver: "bob", Content: "1", Status: domain.StatusSent, CreatedAt: same, UpdatedAt: same},
		{ID: "m0", Sender: "bob", Receiver: "alice", Content: "2", Status: domain.StatusSent, CreatedAt: same, UpdatedAt: same},
		{ID: "m9", Sender: "alice", Receiver: "carol", Content: "x", Status: domain.StatusSent, CreatedAt: same, UpdatedAt: same},
		{ID: "m5", Sender: "alice", Receiver: "bob", Content: "3", Status: domain.StatusSent, CreatedAt: same.Add(time.Second), UpdatedAt: same},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := ListConversation(ctx, db, "bob", "alice")
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	for i, want := range []string{"1", "2", "3"} {
		if got[i].Content != want {
			t.Fatalf("order[%d]=%q want %q", i, got[i].Content, want)
		}
	}

	empty, err := ListConversation(ctx, db, "dave", "erin")
	if err != nil || len(empty) != 0 {
		t.Fatalf("unknown pair: len=%d err=%v", len(empty), err)
	}
}

func TestListConversationPage_AndCount(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := CreateMessage(ctx, db, "alice", "bob", fmt.Sprintf("m%d", i), time.Now()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	total, err := CountConversation(ctx, db, "alice", "bob")
	if err != nil || total != 5 {
		t.Fatalf("CountConversation: total=%d err=%v", total, err)
	}

	page, err := ListConversationPage(ctx, db, "bob", "alice", 2, 2)
	if err != nil {
		t.Fatalf("ListConversationPage: %v", err)
	}
	if len(page) != 2 || page[0].Content != "m2" || page[1].Content != "m3" {
		t.Fatalf("unexpected page: %+v", page)
	}

	tail, err := ListConversationPage(ctx, db, "alice", "bob", 4, 10)
	if err != nil || len(tail) != 1 || tail[0].Content != "m4" {
		t.Fatalf("unexpected tail: %+v err=%v", tail, err)
	}
}
