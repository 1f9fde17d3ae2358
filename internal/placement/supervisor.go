package placement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hexgame/gamecore/internal/session"
)

// SnapshotFetcher is the subset of the Durable Summary Store the
// Supervisor needs to reload a crashed session's most recent round
// boundary (internal/durable.Repo.ByID satisfies this, adapted to take
// a plain string session id).
type SnapshotFetcher interface {
	FetchByID(ctx context.Context, sessionID string) (session.Session, error)
}

// Supervisor enforces the PRS restart policy (spec.md §4.5): any actor
// exit that isn't Normal/Shutdown/ShutdownConcluded is restarted,
// reloading the most recent DSS snapshot the way the Recovery Service
// would for a cold start — at most one round of loss, same as an
// unexpected crash during normal operation. Registry.ContinueSession
// consults the Handoff Store ahead of this snapshot, so a node that
// stashed before dying still hands the restart its last committed
// round rather than DSS's possibly older one.
type Supervisor struct {
	registry *Registry
	dss      SnapshotFetcher
	log      *zap.Logger
	backoff  time.Duration
}

func NewSupervisor(registry *Registry, dss SnapshotFetcher, log *zap.Logger) *Supervisor {
	s := &Supervisor{registry: registry, dss: dss, log: log, backoff: 200 * time.Millisecond}
	registry.onRestart = s.restart
	return s
}

func (s *Supervisor) restart(ctx context.Context, sessionID, joinCode string) {
	time.Sleep(s.backoff)
	snap, err := s.dss.FetchByID(ctx, sessionID)
	if err != nil {
		s.log.Error("supervisor: failed to reload snapshot for crashed session",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if _, err := s.registry.ContinueSession(ctx, snap); err != nil {
		s.log.Error("supervisor: failed to restart crashed session",
			zap.String("session_id", sessionID), zap.String("join_code", joinCode), zap.Error(err))
	}
}
