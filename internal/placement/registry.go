package placement

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/handoff"
	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/session"
)

// ExitReason classifies why a Handle stopped running, driving the
// restart policy from spec.md §4.5: any exit that isn't Normal,
// Shutdown, or ShutdownConcluded gets restarted on some node.
type ExitReason int

const (
	ExitNormal ExitReason = iota
	ExitShutdown
	ExitShutdownConcluded
	ExitCrash
)

func (r ExitReason) restarts() bool {
	return r == ExitCrash
}

// Handle is a running Session Runtime actor as PRS sees it. internal/runtime
// implements this; placement only depends on the interface to avoid an
// import cycle.
type Handle interface {
	SessionID() string
	JoinCode() string
	// RequestShutdown asks the actor to stop after its current command,
	// scheduling termination after the reply so a caller awaiting the
	// reply never deadlocks against the actor's own exit.
	RequestShutdown(reason ExitReason)
}

// Starter starts a new Handle for an initial or resumed Session. It is
// supplied by internal/runtime at wiring time.
type Starter func(ctx context.Context, joinCode string, initial session.Session, exited func(ExitReason)) (Handle, error)

// ownershipStore is the subset of *redis.Client the Registry calls,
// narrowed to an interface so tests can supply an in-memory fake instead
// of live Redis.
type ownershipStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Registry is the Placement Registry half of PRS: in-process maps of
// session_id/join_code → Handle on this node, backed by a Redis SETNX
// cluster-uniqueness lock so at most one node believes it owns a given
// session at a time.
type Registry struct {
	mu          sync.RWMutex
	byID        map[string]Handle
	byJoin      map[string]Handle
	redis       ownershipStore
	ring        *Ring
	nodeID      string
	start       Starter
	log         *zap.Logger
	lockTTL     time.Duration
	hs          handoff.Store
	pickupRetry time.Duration
	pickupTotal time.Duration
	onRestart   func(ctx context.Context, sessionID, joinCode string)
}

func NewRegistry(client ownershipStore, ring *Ring, nodeID string, start Starter, hs handoff.Store, pickupRetry, pickupTotal time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		byID:        make(map[string]Handle),
		byJoin:      make(map[string]Handle),
		redis:       client,
		ring:        ring,
		nodeID:      nodeID,
		start:       start,
		log:         log,
		lockTTL:     time.Minute,
		hs:          hs,
		pickupRetry: pickupRetry,
		pickupTotal: pickupTotal,
	}
}

func ownerKey(sessionID string) string {
	return "cluster:owner:" + sessionID
}

// CreateSession implements create_session (spec.md §6): composes a
// fresh Session from a join code, the joining users, and a grid, then
// places it on this node via StartSession. This is the entrypoint the
// (out-of-core-scope) HTTP layer calls to start a brand-new game.
func (r *Registry) CreateSession(ctx context.Context, joinCode string, users []session.UserJoin, grid hexworld.Grid) (Handle, error) {
	s, err := session.New(joinCode, users, grid)
	if err != nil {
		return nil, err
	}
	return r.StartSession(ctx, s)
}

// StartSession implements start_session(join_code, initial_session):
// claims cluster-wide ownership via SETNX, then starts the actor
// locally. A brand-new session has nothing in the Handoff Store, so
// unlike ContinueSession it never consults HS.
func (r *Registry) StartSession(ctx context.Context, s session.Session) (Handle, error) {
	return r.place(ctx, s.JoinCode, s)
}

// ContinueSession implements continue_session: idempotent — if this
// node already holds the placement, it returns that Handle; if another
// node holds the ownership lock, place returns an error
// (ErrDuplicateSession) instead of starting a duplicate (spec.md §4.8).
// Before falling back to the snapshot the
// caller passed in (typically the last DSS summary), it consults the
// Handoff Store: a session stashed there by a prior node reflects a
// more recent committed round than DSS might (spec.md §4.4 "HS get →
// else DSS snapshot → else initial", spec.md §8 Scenario F).
func (r *Registry) ContinueSession(ctx context.Context, s session.Session) (Handle, error) {
	if h, ok := r.LookupByID(s.ID.String()); ok {
		return h, nil
	}

	snap := s
	if r.hs != nil {
		picked, ok, err := handoff.Pickup(ctx, r.hs, s.ID.String(), r.pickupRetry, r.pickupTotal)
		if err != nil {
			r.log.Warn("handoff pickup failed, falling back to durable snapshot",
				zap.String("session_id", s.ID.String()), zap.Error(err))
		} else if ok {
			snap = picked
		}
	}
	return r.place(ctx, snap.JoinCode, snap)
}

func (r *Registry) place(ctx context.Context, joinCode string, s session.Session) (Handle, error) {
	sessionID := s.ID.String()

	owner, ok := r.ring.Owner(sessionID)
	if ok && owner != r.nodeID {
		return nil, apperr.New(apperr.Unavailable, "session belongs to another node per hash ring")
	}

	claimed, err := r.redis.SetNX(ctx, ownerKey(sessionID), r.nodeID, r.lockTTL).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "claim session ownership", err)
	}
	if !claimed {
		current, _ := r.redis.Get(ctx, ownerKey(sessionID)).Result()
		if current != r.nodeID {
			return nil, apperr.ErrDuplicateSession
		}
	}

	h, err := r.start(ctx, joinCode, s, func(reason ExitReason) { r.onExit(sessionID, joinCode, reason) })
	if err != nil {
		r.redis.Del(ctx, ownerKey(sessionID))
		return nil, err
	}

	r.mu.Lock()
	r.byID[sessionID] = h
	r.byJoin[joinCode] = h
	r.mu.Unlock()
	return h, nil
}

func (r *Registry) onExit(sessionID, joinCode string, reason ExitReason) {
	r.mu.Lock()
	delete(r.byID, sessionID)
	delete(r.byJoin, joinCode)
	r.mu.Unlock()
	r.redis.Del(context.Background(), ownerKey(sessionID))

	if !reason.restarts() {
		return
	}
	r.log.Warn("session actor exited abnormally, restarting",
		zap.String("session_id", sessionID), zap.String("join_code", joinCode))
	if r.onRestart != nil {
		go r.onRestart(context.Background(), sessionID, joinCode)
	}
}

func (r *Registry) LookupByID(sessionID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[sessionID]
	return h, ok
}

func (r *Registry) LookupByJoinCode(joinCode string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byJoin[joinCode]
	return h, ok
}

// ShutdownSession asks the local Handle (if any) to stop without
// restart, per spec.md §4.5's explicit shutdown_session request.
func (r *Registry) ShutdownSession(sessionID string) {
	r.mu.RLock()
	h, ok := r.byID[sessionID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	h.RequestShutdown(ExitShutdown)
}

// LocalSessions returns every Handle currently owned by this node, used
// by graceful-shutdown stashing.
func (r *Registry) LocalSessions() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.byID))
	for _, h := range r.byID {
		out = append(out, h)
	}
	return out
}
