// Package session holds the Session State Machine (SSM): the in-memory
// authoritative representation of one game (spec.md §3, §4.3's "Session
// (SSM state)"). It exposes no round-advancing logic itself — that lives
// in internal/resolver, which is the only writer of a Session's fields.
package session

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/eventlog"
	"github.com/hexgame/gamecore/internal/hexworld"
)

// CurrentSchemaVersion is the on-disk schema version new sessions are
// created at. internal/migrate upgrades anything older to this.
const CurrentSchemaVersion = 4

// Status is the session lifecycle state.
type Status string

const (
	Active    Status = "active"
	Concluded Status = "concluded"
)

// Session is the full SSM state: world, players, round bookkeeping,
// pending actions, and the event log.
type Session struct {
	ID                uuid.UUID                                         `json:"id"`
	JoinCode          string                                            `json:"join_code"`
	Status            Status                                            `json:"status"`
	Round             int                                               `json:"round"`
	RoundEndTime      *time.Time                                        `json:"round_end_time"`
	Players           map[hexworld.PlayerId]hexworld.Player             `json:"players"`
	World             hexworld.World                                    `json:"world"`
	RegisteredActions map[hexworld.PlayerId][]hexworld.RegisteredAction `json:"registered_actions"`
	EventsLog         eventlog.Log                                      `json:"events_log"`
	Version           int                                               `json:"version"`

	// Extra holds top-level wire fields this binary's schema doesn't
	// recognize, so internal/durable can round-trip a snapshot written
	// by a newer binary without discarding data (spec.md §6 forward
	// compatibility). Populated only by internal/durable.Decode.
	Extra map[string]json.RawMessage `json:"-"`
}

// UserJoin is the admission-time identity of one player (spec.md §6
// create_session's "users: sequence of {user_id, display_name}").
type UserJoin struct {
	UserID      hexworld.UserId
	DisplayName string
}

// New constructs the initial Active session for create_session. PCs are
// placed around the grid's outer ring in PlayerId order (wrapping if
// there are more players than ring cells); exact starting placement is a
// world-generation concern out of core scope (spec.md §1), this is
// simply a deterministic default. Returns an error if grid has no cells
// at all, since spec.md §3 requires every PC position to lie in the grid
// and there would be nowhere left to place anyone.
func New(joinCode string, users []UserJoin, grid hexworld.Grid) (Session, error) {
	starts, err := startingCoords(grid, len(users))
	if err != nil {
		return Session{}, err
	}

	players := make(map[hexworld.PlayerId]hexworld.Player, len(users))
	var pcs []hexworld.PC
	var playerIDs []hexworld.PlayerId

	for i, u := range users {
		pid := hexworld.PlayerId(i + 1)
		players[pid] = hexworld.Player{ID: pid, UserID: u.UserID, DisplayName: u.DisplayName}
		pcs = append(pcs, hexworld.PC{PlayerID: pid, Position: starts[i], Health: 10, ActionPoints: 1})
		playerIDs = append(playerIDs, pid)
	}

	return Session{
		ID:                uuid.New(),
		JoinCode:          joinCode,
		Status:            Active,
		Round:             1,
		Players:           players,
		World:             hexworld.NewWorld(grid, pcs),
		RegisteredActions: make(map[hexworld.PlayerId][]hexworld.RegisteredAction),
		EventsLog:         eventlog.New(playerIDs),
		Version:           CurrentSchemaVersion,
	}, nil
}

// startingCoords picks n coordinates around grid's outermost ring
// (maximum hex-distance-from-origin cells present), cycling through the
// ring if there are more players than ring cells.
func startingCoords(grid hexworld.Grid, n int) ([]hexworld.Coord, error) {
	ring := outerRing(grid)
	if len(ring) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "grid has no cells to place players on")
	}
	out := make([]hexworld.Coord, n)
	for i := 0; i < n; i++ {
		out[i] = ring[i%len(ring)]
	}
	return out, nil
}

// outerRing returns every cell of grid at the maximum hex distance from
// the origin present in the grid, sorted deterministically by (Q, R).
func outerRing(grid hexworld.Grid) []hexworld.Coord {
	cells := grid.Cells()
	if len(cells) == 0 {
		return nil
	}
	maxDist := -1
	for _, h := range cells {
		if d := hexDistance(h.Coord); d > maxDist {
			maxDist = d
		}
	}
	var ring []hexworld.Coord
	for _, h := range cells {
		if hexDistance(h.Coord) == maxDist {
			ring = append(ring, h.Coord)
		}
	}
	sort.Slice(ring, func(i, j int) bool {
		if ring[i].Q != ring[j].Q {
			return ring[i].Q < ring[j].Q
		}
		return ring[i].R < ring[j].R
	})
	return ring
}

// hexDistance is the axial hex distance from Coord{} to c.
func hexDistance(c hexworld.Coord) int {
	s := -c.Q - c.R
	return (abs(c.Q) + abs(c.R) + abs(s)) / 2
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// PlayerByUserID looks up the PlayerId bound to a UserId.
func (s Session) PlayerByUserID(userID hexworld.UserId) (hexworld.PlayerId, bool) {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p.ID, true
		}
	}
	return 0, false
}

// PlayerStatus reports alive/dead/unknown for a user (spec.md §6
// get_player_status).
func (s Session) PlayerStatus(userID hexworld.UserId) hexworld.PlayerStatus {
	pid, ok := s.PlayerByUserID(userID)
	if !ok {
		return hexworld.PlayerUnknown
	}
	if _, alive := s.World.PlayerCharacters[pid]; alive {
		return hexworld.PlayerAlive
	}
	if _, dead := s.World.DeadCharacters[pid]; dead {
		return hexworld.PlayerDead
	}
	return hexworld.PlayerUnknown
}

// HasAction reports whether player already has a registered action of
// the given kind this round (spec.md §3 RegisteredAction invariant).
func (s Session) HasAction(p hexworld.PlayerId, kind hexworld.ActionKind) bool {
	for _, a := range s.RegisteredActions[p] {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Clone deep-copies everything a resolver step mutates, so the pure
// resolver can build a new Session without aliasing the caller's maps.
func (s Session) Clone() Session {
	players := make(map[hexworld.PlayerId]hexworld.Player, len(s.Players))
	for k, v := range s.Players {
		players[k] = v
	}
	actions := make(map[hexworld.PlayerId][]hexworld.RegisteredAction, len(s.RegisteredActions))
	for k, v := range s.RegisteredActions {
		cp := make([]hexworld.RegisteredAction, len(v))
		copy(cp, v)
		actions[k] = cp
	}
	var deadline *time.Time
	if s.RoundEndTime != nil {
		t := *s.RoundEndTime
		deadline = &t
	}
	return Session{
		ID:                s.ID,
		JoinCode:          s.JoinCode,
		Status:            s.Status,
		Round:             s.Round,
		RoundEndTime:      deadline,
		Players:           players,
		World:             s.World.Clone(),
		RegisteredActions: actions,
		EventsLog:         s.EventsLog,
		Version:           s.Version,
		Extra:             s.Extra,
	}
}
