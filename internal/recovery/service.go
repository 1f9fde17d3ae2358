// Package recovery is the Recovery Service (RS): on node start, after
// PRS is ready, it enumerates every Active summary in the Durable
// Summary Store and asks PRS to continue each one (spec.md §4.8).
package recovery

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hexgame/gamecore/internal/placement"
	"github.com/hexgame/gamecore/internal/session"
)

// maxConcurrentResumes bounds how many continue_session calls run at
// once, so a large backlog of active sessions doesn't open thousands of
// simultaneous DB/Redis operations during a cold-cluster recovery.
const maxConcurrentResumes = 16

// SummarySource is the subset of the Durable Summary Store RS needs.
type SummarySource interface {
	AllActive(ctx context.Context) ([]session.Session, error)
}

// Continuer is the subset of PRS RS needs: continue_session is
// idempotent, so a summary whose session already has a live placement
// is simply a no-op (spec.md §4.8).
type Continuer interface {
	ContinueSession(ctx context.Context, s session.Session) (placement.Handle, error)
}

type Service struct {
	dss   SummarySource
	prs   Continuer
	log   *zap.Logger
}

func New(dss SummarySource, prs Continuer, log *zap.Logger) *Service {
	return &Service{dss: dss, prs: prs, log: log}
}

// ResumeAllActiveSessions implements resume_all_active_sessions: the
// idempotent startup hook that fans out continue_session calls with
// bounded concurrency.
func (s *Service) ResumeAllActiveSessions(ctx context.Context) error {
	active, err := s.dss.AllActive(ctx)
	if err != nil {
		return err
	}
	s.log.Info("resuming active sessions", zap.Int("count", len(active)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentResumes)

	for _, snap := range active {
		snap := snap
		g.Go(func() error {
			if _, err := s.prs.ContinueSession(gctx, snap); err != nil {
				s.log.Error("failed to resume session",
					zap.String("session_id", snap.ID.String()),
					zap.String("join_code", snap.JoinCode),
					zap.Error(err))
				// A single session's placement failure should not abort
				// the recovery of every other session.
				return nil
			}
			return nil
		})
	}
	return g.Wait()
}
