// Package services – ReplayStore
//
// ReplayStore records the responses of completed unsafe HTTP requests keyed by
// (identity, scope, Idempotency-Key) so a retried request gets the original
// response instead of a second side effect.

package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-messaging-backend/internal/domain"
	"github.com/tbourn/go-messaging-backend/internal/repo"
)

const defaultReplayTTL = 24 * time.Hour

// ErrNoReplay is returned by Lookup when nothing is recorded for the key.
var ErrNoReplay = errors.New("no recorded response")

// ReplayStore persists idempotent responses in the idempotency table.
type ReplayStore struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time
}

func (s *ReplayStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ReplayStore) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return defaultReplayTTL
}

// Lookup returns the recorded response or ErrNoReplay.
func (s *ReplayStore) Lookup(ctx context.Context, userID, scope, key string) (*domain.Idempotency, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoReplay
	}
	if err != nil {
		return nil, storageErr("replay_lookup", err)
	}
	return rec, nil
}

// Exists has the shape of middleware.IdempotencyLookup.
func (s *ReplayStore) Exists(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrNotFound):
		return false, nil
	default:
		return false, storageErr("replay_exists", err)
	}
}

// Record stores a response. A concurrent duplicate is not an error: the first
// writer wins and later retries replay its body.
func (s *ReplayStore) Record(ctx context.Context, userID, scope, key string, status int, body string) error {
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, status, body, s.ttl())
	if err == nil || errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return storageErr("replay_record", err)
}

// Purge deletes expired records.
func (s *ReplayStore) Purge(ctx context.Context) (int64, error) {
	n, err := repo.PurgeExpiredIdempotency(ctx, s.DB, s.now())
	if err != nil {
		return 0, storageErr("replay_purge", err)
	}
	return n, nil
}
