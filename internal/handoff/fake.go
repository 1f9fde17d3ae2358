package handoff

import (
	"context"
	"sync"
	"time"

	"github.com/hexgame/gamecore/internal/session"
)

// FakeStore is an in-memory Store used by tests that exercise Pickup's
// retry loop without a live Redis instance.
type FakeStore struct {
	mu    sync.Mutex
	data  map[string]session.Session
	delay int // number of Get calls before a Put becomes visible, simulating replication lag
	calls map[string]int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{data: make(map[string]session.Session), calls: make(map[string]int)}
}

// WithDelay makes entries invisible for the first n Get calls after a
// Put, simulating HS's eventual-consistency window.
func (f *FakeStore) WithDelay(n int) *FakeStore {
	f.delay = n
	return f
}

func (f *FakeStore) Put(_ context.Context, sessionID string, s session.Session, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[sessionID] = s
	f.calls[sessionID] = 0
	return nil
}

func (f *FakeStore) Get(_ context.Context, sessionID string) (session.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[sessionID]
	if !ok {
		return session.Session{}, false, nil
	}
	f.calls[sessionID]++
	if f.calls[sessionID] <= f.delay {
		return session.Session{}, false, nil
	}
	return s, true, nil
}

func (f *FakeStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, sessionID)
	return nil
}
