package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/session"
)

func sampleSession(t *testing.T) session.Session {
	t.Helper()
	grid := hexworld.HexDisc(1)
	s, err := session.New("ABC123", []session.UserJoin{{UserID: 1, DisplayName: "Ada"}}, grid)
	require.NoError(t, err)
	return s
}

func TestPickupReturnsImmediateHit(t *testing.T) {
	store := NewFakeStore()
	s := sampleSession(t)
	require.NoError(t, store.Put(context.Background(), s.ID.String(), s, time.Minute))

	got, ok, err := Pickup(context.Background(), store, s.ID.String(), 10*time.Millisecond, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	_, ok, err = store.Get(context.Background(), s.ID.String())
	require.NoError(t, err)
	assert.False(t, ok, "picked-up entry must be deleted")
}

func TestPickupRetriesThroughReplicationLag(t *testing.T) {
	store := NewFakeStore().WithDelay(2)
	s := sampleSession(t)
	require.NoError(t, store.Put(context.Background(), s.ID.String(), s, time.Minute))

	got, ok, err := Pickup(context.Background(), store, s.ID.String(), 5*time.Millisecond, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)
}

func TestPickupGivesUpAfterRetryWindow(t *testing.T) {
	store := NewFakeStore()

	_, ok, err := Pickup(context.Background(), store, uuid.NewString(), 5*time.Millisecond, 30*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
