package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/hexworld"
)

func TestNewPlacesPlayersOnGridOuterRing(t *testing.T) {
	grid := hexworld.HexDisc(2)
	s, err := New("ABCD1234", []UserJoin{
		{UserID: 1, DisplayName: "Ada"},
		{UserID: 2, DisplayName: "Bo"},
		{UserID: 3, DisplayName: "Cy"},
	}, grid)
	require.NoError(t, err)

	for pid, pc := range s.World.PlayerCharacters {
		require.True(t, grid.Contains(pc.Position), "player %d placed outside grid", pid)
		assert.Equal(t, 2, hexDistance(pc.Position), "player %d not placed on outer ring", pid)
	}
}

func TestNewWrapsRingWhenMorePlayersThanRingCells(t *testing.T) {
	grid := hexworld.HexDisc(0) // single cell: the origin, a ring of size 1
	s, err := New("ABCD1234", []UserJoin{
		{UserID: 1, DisplayName: "Ada"},
		{UserID: 2, DisplayName: "Bo"},
	}, grid)
	require.NoError(t, err)

	for _, pc := range s.World.PlayerCharacters {
		assert.Equal(t, hexworld.Coord{}, pc.Position)
	}
}

func TestNewRejectsEmptyGrid(t *testing.T) {
	_, err := New("ABCD1234", []UserJoin{{UserID: 1, DisplayName: "Ada"}}, hexworld.NewGrid(nil))
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidInput, apperr.KindOf(err))
}
