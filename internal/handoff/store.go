// Package handoff is the Handoff Store (HS): an eventually-consistent
// key→value map used to carry a Session across a graceful SR restart
// without waiting on the Durable Summary Store (spec.md §4.6).
package handoff

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/durable"
	"github.com/hexgame/gamecore/internal/session"
)

// Store is the HS contract: put/get/delete over an eventually
// consistent replicated map. Redis itself supplies the replication;
// this type only owns the session-shaped encode/decode and the key
// convention.
type Store interface {
	Put(ctx context.Context, sessionID string, s session.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (session.Session, bool, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisStore is the production HS, backed by a single Redis key per
// session under the "session_<id>" convention from spec.md §4.6.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(sessionID string) string {
	return "session_" + sessionID
}

// Put stashes s under its session key with a bounded TTL, so an entry
// that nothing ever picks up eventually expires instead of leaking.
func (r *RedisStore) Put(ctx context.Context, sessionID string, s session.Session, ttl time.Duration) error {
	b, err := durable.Encode(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key(sessionID), b, ttl).Err(); err != nil {
		return apperr.Wrap(apperr.Unavailable, "handoff put", err)
	}
	return nil
}

// Get returns the stashed Session for sessionID, if any. It does not
// delete the entry — callers that successfully pick up a value must
// call Delete themselves, matching the "get then delete on hit"
// sequence spec.md §4.6 describes for SR startup.
func (r *RedisStore) Get(ctx context.Context, sessionID string) (session.Session, bool, error) {
	b, err := r.client.Get(ctx, key(sessionID)).Bytes()
	if err == redis.Nil {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, apperr.Wrap(apperr.Unavailable, "handoff get", err)
	}
	s, err := durable.Decode(b)
	if err != nil {
		return session.Session{}, false, err
	}
	return s, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return apperr.Wrap(apperr.Unavailable, "handoff delete", err)
	}
	return nil
}

// Pickup implements the SR startup retry window from spec.md §4.6: poll
// Get with short backoff until retryTotal elapses, then give up so the
// caller can fall back to the DSS. On a hit the entry is deleted.
func Pickup(ctx context.Context, store Store, sessionID string, retryEvery, retryTotal time.Duration) (session.Session, bool, error) {
	deadline := time.Now().Add(retryTotal)
	ticker := time.NewTicker(retryEvery)
	defer ticker.Stop()

	for {
		s, ok, err := store.Get(ctx, sessionID)
		if err != nil {
			return session.Session{}, false, err
		}
		if ok {
			if err := store.Delete(ctx, sessionID); err != nil {
				return session.Session{}, false, err
			}
			return s, true, nil
		}
		if time.Now().After(deadline) {
			return session.Session{}, false, nil
		}
		select {
		case <-ctx.Done():
			return session.Session{}, false, ctx.Err()
		case <-ticker.C:
		}
	}
}
