// Package runtime is the Session Runtime (SR): the long-lived actor
// that owns one session's SSM, serializes every command through a
// single goroutine, drives the round-deadline timer, and coordinates
// persistence and handoff on shutdown (spec.md §4.4).
package runtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/metrics"
	"github.com/hexgame/gamecore/internal/placement"
	"github.com/hexgame/gamecore/internal/resolver"
	"github.com/hexgame/gamecore/internal/session"
)

// Broadcaster publishes round transitions to a session's subscription
// topic (spec.md §6 "Subscription topic"). internal/runtime does not
// depend on go-redis directly so it can be unit tested with a fake.
type Broadcaster interface {
	PublishRoundAdvanced(sessionID string, s session.Session)
	PublishSessionConcluded(sessionID string, s session.Session)
}

// Persister is the subset of the Durable Summary Store the actor needs.
type Persister interface {
	Upsert(ctx context.Context, s session.Session) error
}

// Stasher is the subset of the Handoff Store the actor needs.
type Stasher interface {
	Put(ctx context.Context, sessionID string, s session.Session, ttl time.Duration) error
}

type command struct {
	run   func(s session.Session) (session.Session, any, error)
	reply chan result
}

type result struct {
	value any
	err   error
}

// Actor is one Session Runtime: a single goroutine that is the
// exclusive writer of its Session, enforcing spec.md §4.4's
// single-writer invariant.
type Actor struct {
	id       string
	joinCode string

	commands chan command
	shutdown chan placement.ExitReason
	done     chan struct{}
	once     sync.Once

	rules         resolver.Rules
	roundDuration time.Duration
	dss           Persister
	hs            Stasher
	stashGrace    time.Duration
	broadcaster   Broadcaster
	log           *zap.Logger

	exited func(placement.ExitReason)
}

// New starts a new Actor goroutine for s and returns immediately. exited
// is called exactly once, after the actor's loop has fully stopped, so
// placement.Registry can update its maps and the Supervisor can decide
// whether to restart.
func New(
	s session.Session,
	rules resolver.Rules,
	roundDuration time.Duration,
	dss Persister,
	hs Stasher,
	stashGrace time.Duration,
	broadcaster Broadcaster,
	log *zap.Logger,
	exited func(placement.ExitReason),
) *Actor {
	a := &Actor{
		id:            s.ID.String(),
		joinCode:      s.JoinCode,
		commands:      make(chan command),
		shutdown:      make(chan placement.ExitReason, 1),
		done:          make(chan struct{}),
		rules:         rules,
		roundDuration: roundDuration,
		dss:           dss,
		hs:            hs,
		stashGrace:    stashGrace,
		broadcaster:   broadcaster,
		log:           log.With(zap.String("session_id", s.ID.String())),
		exited:        exited,
	}
	go a.run(s)
	return a
}

func (a *Actor) SessionID() string { return a.id }
func (a *Actor) JoinCode() string  { return a.joinCode }

// RequestShutdown asks the actor to stop after its current command.
// Scheduling the stop as a queued shutdown signal (rather than calling
// exited inline) avoids the self-terminate-then-reply deadlock spec.md
// §4.5 warns about.
func (a *Actor) RequestShutdown(reason placement.ExitReason) {
	select {
	case a.shutdown <- reason:
	default:
	}
}

// Done is closed once the actor's loop has exited.
func (a *Actor) Done() <-chan struct{} { return a.done }

func (a *Actor) submit(ctx context.Context, run func(s session.Session) (session.Session, any, error)) (any, error) {
	cmd := command{run: run, reply: make(chan result, 1)}
	select {
	case a.commands <- cmd:
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Timeout, "submit command", ctx.Err())
	case <-a.done:
		return nil, apperr.New(apperr.Unavailable, "session actor no longer running")
	}
	select {
	case r := <-cmd.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Timeout, "await command reply", ctx.Err())
	}
}

func (a *Actor) GetSession(ctx context.Context) (session.Session, error) {
	v, err := a.submit(ctx, func(s session.Session) (session.Session, any, error) { return s, s, nil })
	if err != nil {
		return session.Session{}, err
	}
	return v.(session.Session), nil
}

func (a *Actor) GetPlayerStatus(ctx context.Context, userID hexworld.UserId) (hexworld.PlayerStatus, error) {
	v, err := a.submit(ctx, func(s session.Session) (session.Session, any, error) {
		return s, s.PlayerStatus(userID), nil
	})
	if err != nil {
		return hexworld.PlayerUnknown, err
	}
	return v.(hexworld.PlayerStatus), nil
}

func (a *Actor) RegisterMove(ctx context.Context, userID hexworld.UserId, v hexworld.Vector) (session.Session, error) {
	out, err := a.submit(ctx, func(s session.Session) (session.Session, any, error) {
		next, err := resolver.RegisterMove(s, a.rules, userID, v, time.Now())
		if err != nil {
			return s, session.Session{}, err
		}
		return next, next, nil
	})
	if err != nil {
		return session.Session{}, err
	}
	return out.(session.Session), nil
}

func (a *Actor) RegisterAttack(ctx context.Context, userID hexworld.UserId, targetID hexworld.PlayerId) (session.Session, error) {
	out, err := a.submit(ctx, func(s session.Session) (session.Session, any, error) {
		next, err := resolver.RegisterAttack(s, a.rules, userID, targetID, time.Now())
		if err != nil {
			return s, session.Session{}, err
		}
		return next, next, nil
	})
	if err != nil {
		return session.Session{}, err
	}
	return out.(session.Session), nil
}

// EndRound resolves the current round immediately, bypassing the
// deadline timer — the manual end_round API. When the timer fires, run
// resolves the round itself without going through EndRound. nowOverride
// lets tests pin the resolved round_end_time.
func (a *Actor) EndRound(ctx context.Context, nowOverride *time.Time) (session.Session, error) {
	out, err := a.submit(ctx, func(s session.Session) (session.Session, any, error) {
		now := time.Now()
		if nowOverride != nil {
			now = *nowOverride
		}
		next := resolver.Resolve(s, a.rules, now.Add(a.roundDuration))
		return next, next, nil
	})
	if err != nil {
		return session.Session{}, err
	}
	return out.(session.Session), nil
}

// run is the actor's single goroutine: the sole mutator of s for its
// entire lifetime, matching the goroutine-per-connection isolation the
// teacher's network session uses for its read/write loops.
func (a *Actor) run(s session.Session) {
	defer close(a.done)

	timer := time.NewTimer(a.roundDuration)
	defer timer.Stop()
	timerRound := s.Round

	persist := func(ctx context.Context, next session.Session) {
		if err := a.dss.Upsert(ctx, next); err != nil {
			metrics.DSSWriteFailures.Inc()
			a.log.Warn("dss upsert failed, will retry at next boundary", zap.Error(err))
		}
	}

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	for {
		select {
		case cmd := <-a.commands:
			start := time.Now()
			next, value, err := cmd.run(s)
			metrics.CommandDuration.Observe(time.Since(start).Seconds())
			wasRoundEndCommand := err == nil && next.Round != s.Round
			s = next

			if wasRoundEndCommand {
				// Commit to the DSS before replying: the caller must never
				// observe a round ending that a crash could then unwind
				// (spec.md §5 at-most-one-round-loss guarantee).
				metrics.RoundsResolved.Inc()
				persist(context.Background(), s)
				if s.Status == session.Concluded {
					metrics.SessionsConcluded.Inc()
					a.broadcaster.PublishSessionConcluded(a.id, s)
					cmd.reply <- result{value: value, err: err}
					a.exitConcluded()
					return
				}
				a.broadcaster.PublishRoundAdvanced(a.id, s)
				cmd.reply <- result{value: value, err: err}
				timerRound = s.Round
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(a.roundDuration)
			} else {
				cmd.reply <- result{value: value, err: err}
			}

		case <-timer.C:
			if timerRound != s.Round {
				// Stale timer event from a round already ended manually;
				// discard per spec.md §5 cancellation rule.
				timer.Reset(a.roundDuration)
				continue
			}
			next := resolver.Resolve(s, a.rules, time.Now().Add(a.roundDuration))
			s = next
			metrics.RoundsResolved.Inc()
			persist(context.Background(), s)
			if s.Status == session.Concluded {
				metrics.SessionsConcluded.Inc()
				a.broadcaster.PublishSessionConcluded(a.id, s)
				a.exitConcluded()
				return
			}
			a.broadcaster.PublishRoundAdvanced(a.id, s)
			timerRound = s.Round
			timer.Reset(a.roundDuration)

		case reason := <-a.shutdown:
			if reason == placement.ExitShutdown && s.Status == session.Active {
				a.stash(s)
			}
			a.once.Do(func() {
				if a.exited != nil {
					a.exited(reason)
				}
			})
			return
		}
	}
}

func (a *Actor) exitConcluded() {
	a.once.Do(func() {
		if a.exited != nil {
			a.exited(placement.ExitShutdownConcluded)
		}
	})
}

func (a *Actor) stash(s session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), a.stashGrace)
	defer cancel()
	if err := a.hs.Put(ctx, a.id, s, a.stashGrace*10); err != nil {
		a.log.Warn("graceful shutdown: failed to stash to handoff store", zap.Error(err))
	}
}
