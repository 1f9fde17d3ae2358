package eventlog

import "github.com/hexgame/gamecore/internal/hexworld"

// Log is the append-only event store with a per-player visibility index.
type Log struct {
	Events    map[int]Event                  `json:"events"`
	VisibleBy map[hexworld.PlayerId][]int    `json:"events_visible_by_player"` // newest-first
}

// New initializes an empty Log with a (possibly empty) visibility list
// already present for every given player.
func New(players []hexworld.PlayerId) Log {
	l := Log{
		Events:    make(map[int]Event),
		VisibleBy: make(map[hexworld.PlayerId][]int, len(players)),
	}
	for _, p := range players {
		l.VisibleBy[p] = nil
	}
	return l
}

// Append assigns the event an id equal to the current event count, stores
// it, and prepends that id to every visible player's list. If visibleTo
// is empty, the event is not recorded at all (design rule: invisible
// events don't exist) and Append returns (l, -1).
func Append(l Log, evt Event, visibleTo map[hexworld.PlayerId]struct{}) (Log, int) {
	if len(visibleTo) == 0 {
		return l, -1
	}

	id := len(l.Events)
	evt.ID = id

	events := make(map[int]Event, len(l.Events)+1)
	for k, v := range l.Events {
		events[k] = v
	}
	events[id] = evt

	visible := make(map[hexworld.PlayerId][]int, len(l.VisibleBy))
	for p, ids := range l.VisibleBy {
		visible[p] = ids
	}
	for p := range visibleTo {
		existing := visible[p]
		next := make([]int, 0, len(existing)+1)
		next = append(next, id)
		next = append(next, existing...)
		visible[p] = next
	}

	return Log{Events: events, VisibleBy: visible}, id
}

// EnsurePlayer guarantees player p has a (possibly empty) visibility list,
// used when a player joins a session whose log already exists.
func (l Log) EnsurePlayer(p hexworld.PlayerId) Log {
	if _, ok := l.VisibleBy[p]; ok {
		return l
	}
	visible := make(map[hexworld.PlayerId][]int, len(l.VisibleBy)+1)
	for k, v := range l.VisibleBy {
		visible[k] = v
	}
	visible[p] = nil
	return Log{Events: l.Events, VisibleBy: visible}
}
