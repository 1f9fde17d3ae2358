package hexworld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVector(t *testing.T) {
	got := ApplyVector(Coord{Q: -1, R: 0}, Vector{Q: 1, R: 0})
	assert.Equal(t, Coord{Q: 0, R: 0}, got)
}

func TestCoordStringRoundTrip(t *testing.T) {
	c := Coord{Q: -3, R: 7}
	parsed, err := ParseCoord(c.String())
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestPCsAtOrdersByPlayerID(t *testing.T) {
	grid := HexDisc(2)
	origin := Coord{}
	w := NewWorld(grid, []PC{
		{PlayerID: 3, Position: origin, Health: 10},
		{PlayerID: 1, Position: origin, Health: 10},
		{PlayerID: 2, Position: Coord{Q: 1}, Health: 10},
	})

	at := PCsAt(w, origin)
	require.Len(t, at, 2)
	assert.Equal(t, PlayerId(1), at[0].PlayerID)
	assert.Equal(t, PlayerId(3), at[1].PlayerID)
}

func TestMovePCDoesNotMutateOriginal(t *testing.T) {
	grid := HexDisc(2)
	w := NewWorld(grid, []PC{{PlayerID: 1, Position: Coord{}, Health: 10}})

	w2 := MovePC(w, 1, Coord{Q: 1})

	assert.Equal(t, Coord{}, w.PlayerCharacters[1].Position)
	assert.Equal(t, Coord{Q: 1}, w2.PlayerCharacters[1].Position)
}

func TestMovePCOfUnknownPlayerPanics(t *testing.T) {
	w := NewWorld(HexDisc(1), nil)
	assert.Panics(t, func() { MovePC(w, 99, Coord{}) })
}

func TestValidateRejectsPositionOutsideGrid(t *testing.T) {
	grid := HexDisc(0)
	w := NewWorld(grid, []PC{{PlayerID: 1, Position: Coord{Q: 5, R: 5}, Health: 10}})
	assert.Error(t, w.Validate())
}
