package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/hexgame/gamecore/internal/session"
)

type fakeDSS struct {
	mu     sync.Mutex
	writes []session.Session
}

func (f *fakeDSS) Upsert(_ context.Context, s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, s)
	return nil
}

func (f *fakeDSS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

type fakeHS struct {
	mu   sync.Mutex
	puts map[string]session.Session
}

func newFakeHS() *fakeHS { return &fakeHS{puts: make(map[string]session.Session)} }

func (f *fakeHS) Put(_ context.Context, sessionID string, s session.Session, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[sessionID] = s
	return nil
}

type fakeBroadcaster struct {
	mu        sync.Mutex
	advanced  int
	concluded int
}

func (f *fakeBroadcaster) PublishRoundAdvanced(string, session.Session) {
	f.mu.Lock()
	f.advanced++
	f.mu.Unlock()
}

func (f *fakeBroadcaster) PublishSessionConcluded(string, session.Session) {
	f.mu.Lock()
	f.concluded++
	f.mu.Unlock()
}
