package recovery

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/placement"
	"github.com/hexgame/gamecore/internal/session"
)

type fakeSource struct{ sessions []session.Session }

func (f fakeSource) AllActive(context.Context) ([]session.Session, error) { return f.sessions, nil }

type fakeHandle struct{ id, join string }

func (h fakeHandle) SessionID() string                            { return h.id }
func (h fakeHandle) JoinCode() string                             { return h.join }
func (h fakeHandle) RequestShutdown(placement.ExitReason) {}

type fakeContinuer struct {
	mu       sync.Mutex
	continued []string
	fail      map[string]bool
}

func (f *fakeContinuer) ContinueSession(_ context.Context, s session.Session) (placement.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[s.JoinCode] {
		return nil, assert.AnError
	}
	f.continued = append(f.continued, s.JoinCode)
	return fakeHandle{id: s.ID.String(), join: s.JoinCode}, nil
}

func newSession(t *testing.T, joinCode string) session.Session {
	t.Helper()
	grid := hexworld.HexDisc(1)
	s, err := session.New(joinCode, []session.UserJoin{{UserID: 1, DisplayName: "Ada"}}, grid)
	require.NoError(t, err)
	return s
}

func TestResumeAllActiveSessionsContinuesEveryOne(t *testing.T) {
	sessions := []session.Session{newSession(t, "A1"), newSession(t, "B2"), newSession(t, "C3")}
	src := fakeSource{sessions: sessions}
	cont := &fakeContinuer{fail: map[string]bool{}}

	svc := New(src, cont, zap.NewNop())
	require.NoError(t, svc.ResumeAllActiveSessions(context.Background()))

	cont.mu.Lock()
	defer cont.mu.Unlock()
	assert.Len(t, cont.continued, 3)
}

func TestResumeAllActiveSessionsToleratesIndividualFailures(t *testing.T) {
	sessions := []session.Session{newSession(t, "A1"), newSession(t, "B2")}
	src := fakeSource{sessions: sessions}
	cont := &fakeContinuer{fail: map[string]bool{"B2": true}}

	svc := New(src, cont, zap.NewNop())
	require.NoError(t, svc.ResumeAllActiveSessions(context.Background()))

	cont.mu.Lock()
	defer cont.mu.Unlock()
	assert.Equal(t, []string{"A1"}, cont.continued)
}
