package resolver

import (
	"testing"
	"time"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/eventlog"
	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fourPlayerSession builds the spec.md §8 scenario layout:
// P1, P2, P3 at C0=(-1,0); P4 at C1=(0,0).
func fourPlayerSession(t *testing.T) (session.Session, hexworld.Coord, hexworld.Coord) {
	t.Helper()
	c0 := hexworld.Coord{Q: -1, R: 0}
	c1 := hexworld.Coord{Q: 0, R: 0}
	grid := hexworld.HexDisc(3)

	players := map[hexworld.PlayerId]hexworld.Player{
		1: {ID: 1, UserID: 1}, 2: {ID: 2, UserID: 2},
		3: {ID: 3, UserID: 3}, 4: {ID: 4, UserID: 4},
	}
	world := hexworld.NewWorld(grid, []hexworld.PC{
		{PlayerID: 1, Position: c0, Health: 10, ActionPoints: 5},
		{PlayerID: 2, Position: c0, Health: 10, ActionPoints: 5},
		{PlayerID: 3, Position: c0, Health: 10, ActionPoints: 5},
		{PlayerID: 4, Position: c1, Health: 10, ActionPoints: 5},
	})
	s := session.Session{
		Status:            session.Active,
		Round:             1,
		Players:           players,
		World:             world,
		RegisteredActions: make(map[hexworld.PlayerId][]hexworld.RegisteredAction),
		EventsLog:         eventlog.New([]hexworld.PlayerId{1, 2, 3, 4}),
		Version:           session.CurrentSchemaVersion,
	}
	return s, c0, c1
}

func TestScenarioA_MoveIntoOccupiedHex(t *testing.T) {
	s, c0, c1 := fourPlayerSession(t)
	s.RegisteredActions[1] = []hexworld.RegisteredAction{hexworld.MoveAction(1, hexworld.Vector{Q: 1})}

	next := Resolve(s, DefaultRules(), time.Unix(0, 0))

	require.Len(t, next.EventsLog.Events, 2)
	left := next.EventsLog.Events[0]
	entered := next.EventsLog.Events[1]

	assert.Equal(t, eventlog.KindPCLeftHex, left.Kind)
	assert.Equal(t, hexworld.PlayerId(1), left.PlayerID)
	assert.Equal(t, c0, left.From)
	assert.Equal(t, c1, left.To)
	assert.ElementsMatch(t, []int{0}, next.EventsLog.VisibleBy[2])
	assert.ElementsMatch(t, []int{0}, next.EventsLog.VisibleBy[3])
	assert.NotContains(t, next.EventsLog.VisibleBy[1], 0)
	assert.NotContains(t, next.EventsLog.VisibleBy[4], 0)

	assert.Equal(t, eventlog.KindPCEnteredHex, entered.Kind)
	assert.ElementsMatch(t, []int{1}, next.EventsLog.VisibleBy[1])
	assert.ElementsMatch(t, []int{1}, next.EventsLog.VisibleBy[4])
}

func TestScenarioB_MoveFromUnoccupiedHexHasNoLeftEvent(t *testing.T) {
	grid := hexworld.HexDisc(3)
	c0 := hexworld.Coord{Q: -1, R: 0}
	c1 := hexworld.Coord{Q: 0, R: 1}
	to := hexworld.ApplyVector(c1, hexworld.Vector{Q: 0, R: -1})

	world := hexworld.NewWorld(grid, []hexworld.PC{
		{PlayerID: 1, Position: c0, Health: 10, ActionPoints: 5},
		{PlayerID: 2, Position: c0, Health: 10, ActionPoints: 5},
		{PlayerID: 3, Position: c0, Health: 10, ActionPoints: 5},
		{PlayerID: 4, Position: c1, Health: 10, ActionPoints: 5},
	})
	s := session.Session{
		Status:  session.Active,
		Round:   1,
		Players: map[hexworld.PlayerId]hexworld.Player{1: {ID: 1}, 2: {ID: 2}, 3: {ID: 3}, 4: {ID: 4}},
		World:   world,
		RegisteredActions: map[hexworld.PlayerId][]hexworld.RegisteredAction{
			4: {hexworld.MoveAction(4, hexworld.Vector{Q: 0, R: -1})},
		},
		EventsLog: eventlog.New([]hexworld.PlayerId{1, 2, 3, 4}),
	}

	next := Resolve(s, DefaultRules(), time.Unix(0, 0))

	require.Len(t, next.EventsLog.Events, 1)
	assert.Equal(t, eventlog.KindPCEnteredHex, next.EventsLog.Events[0].Kind)
	assert.Equal(t, to, next.EventsLog.Events[0].To)
	assert.Equal(t, []int{0}, next.EventsLog.VisibleBy[4])
}

func TestScenarioC_SimultaneousMovesToSameDestination(t *testing.T) {
	s, c0, c1 := fourPlayerSession(t)
	s.RegisteredActions[1] = []hexworld.RegisteredAction{hexworld.MoveAction(1, hexworld.Vector{Q: 1})}
	s.RegisteredActions[3] = []hexworld.RegisteredAction{hexworld.MoveAction(3, hexworld.Vector{Q: 1})}

	next := Resolve(s, DefaultRules(), time.Unix(0, 0))

	require.Len(t, next.EventsLog.Events, 4)
	evs := next.EventsLog.Events
	assert.Equal(t, eventlog.KindPCLeftHex, evs[0].Kind)
	assert.Equal(t, hexworld.PlayerId(1), evs[0].PlayerID)
	assert.Equal(t, eventlog.KindPCLeftHex, evs[1].Kind)
	assert.Equal(t, hexworld.PlayerId(3), evs[1].PlayerID)
	assert.Equal(t, eventlog.KindPCEnteredHex, evs[2].Kind)
	assert.Equal(t, hexworld.PlayerId(1), evs[2].PlayerID)
	assert.Equal(t, eventlog.KindPCEnteredHex, evs[3].Kind)
	assert.Equal(t, hexworld.PlayerId(3), evs[3].PlayerID)

	assert.ElementsMatch(t, []int{0, 1}, next.EventsLog.VisibleBy[2])
	assert.ElementsMatch(t, []int{2, 3}, next.EventsLog.VisibleBy[1])
	assert.ElementsMatch(t, []int{2, 3}, next.EventsLog.VisibleBy[3])
	_ = c0
	_ = c1
}

func TestScenarioD_AttackVisibility(t *testing.T) {
	s, _, _ := fourPlayerSession(t)
	s.RegisteredActions[1] = []hexworld.RegisteredAction{hexworld.AttackAction(1, 2)}
	s.RegisteredActions[2] = []hexworld.RegisteredAction{hexworld.AttackAction(2, 3)}

	next := Resolve(s, DefaultRules(), time.Unix(0, 0))

	require.Len(t, next.EventsLog.Events, 2)
	assert.Equal(t, eventlog.KindPCAttackedPC, next.EventsLog.Events[0].Kind)
	assert.Equal(t, hexworld.PlayerId(1), next.EventsLog.Events[0].PlayerID)
	assert.Equal(t, hexworld.PlayerId(2), next.EventsLog.Events[0].TargetID)
	assert.Equal(t, hexworld.PlayerId(2), next.EventsLog.Events[1].PlayerID)

	for _, pid := range []hexworld.PlayerId{1, 2, 3} {
		assert.ElementsMatch(t, []int{1, 0}, next.EventsLog.VisibleBy[pid])
	}
	assert.Empty(t, next.EventsLog.VisibleBy[4])

	assert.Equal(t, 9, next.World.PlayerCharacters[2].Health)
	assert.Equal(t, 9, next.World.PlayerCharacters[3].Health)
}

func TestScenarioE_SessionConcludesAndHalts(t *testing.T) {
	grid := hexworld.HexDisc(1)
	world := hexworld.NewWorld(grid, []hexworld.PC{
		{PlayerID: 1, Position: hexworld.Coord{}, Health: 1, ActionPoints: 5},
		{PlayerID: 2, Position: hexworld.Coord{}, Health: 1, ActionPoints: 5},
	})
	s := session.Session{
		Status:            session.Active,
		Round:             1,
		Players:           map[hexworld.PlayerId]hexworld.Player{1: {ID: 1}, 2: {ID: 2}},
		World:             world,
		RegisteredActions: map[hexworld.PlayerId][]hexworld.RegisteredAction{1: {hexworld.AttackAction(1, 2)}},
		EventsLog:         eventlog.New([]hexworld.PlayerId{1, 2}),
	}

	next := Resolve(s, DefaultRules(), time.Unix(0, 0))

	assert.Equal(t, session.Concluded, next.Status)
	_, alive := next.World.PlayerCharacters[2]
	assert.False(t, alive)
	_, dead := next.World.DeadCharacters[2]
	assert.True(t, dead)
}

func TestRegisterMoveRejectsDoubleRegistration(t *testing.T) {
	s, _, _ := fourPlayerSession(t)
	s.Players = map[hexworld.PlayerId]hexworld.Player{1: {ID: 1, UserID: 100}}

	s, err := RegisterMove(s, DefaultRules(), 100, hexworld.Vector{Q: 1}, time.Now())
	require.NoError(t, err)

	_, err = RegisterMove(s, DefaultRules(), 100, hexworld.Vector{Q: -1}, time.Now())
	assert.ErrorIs(t, err, apperr.ErrAlreadyRegistered)
}

func TestRegisterAttackRejectsDifferentHex(t *testing.T) {
	s, _, _ := fourPlayerSession(t)
	s.Players[1] = hexworld.Player{ID: 1, UserID: 1}

	_, err := RegisterAttack(s, DefaultRules(), 1, 4, time.Now())
	require.Error(t, err)
}

func TestRegisterMoveRejectsAfterRoundDeadline(t *testing.T) {
	s, _, _ := fourPlayerSession(t)
	s.Players = map[hexworld.PlayerId]hexworld.Player{1: {ID: 1, UserID: 100}}
	deadline := time.Unix(1000, 0)
	s.RoundEndTime = &deadline

	_, err := RegisterMove(s, DefaultRules(), 100, hexworld.Vector{Q: 1}, deadline.Add(time.Second))
	assert.ErrorIs(t, err, apperr.ErrRoundEnded)
}
