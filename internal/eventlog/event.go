// Package eventlog is the append-only, per-player-visibility-indexed
// event store described in spec.md §4.2. Like hexworld, it is pure data
// plus pure functions — no I/O.
package eventlog

import "github.com/hexgame/gamecore/internal/hexworld"

// Kind discriminates the Event tagged union.
type Kind string

const (
	KindPCLeftHex    Kind = "pc_left_hex"
	KindPCEnteredHex Kind = "pc_entered_hex"
	KindPCAttackedPC Kind = "pc_attacked_pc"
)

// Event is a single, immutable occurrence. The kind-specific fields are
// only meaningful for their own Kind; the rest are left at zero value.
type Event struct {
	ID    int  `json:"id"`
	Round int  `json:"round"`
	Kind  Kind `json:"kind"`

	// KindPCLeftHex / KindPCEnteredHex: PlayerID moved from From to To.
	// KindPCAttackedPC: PlayerID attacked TargetID (From/To unused).
	PlayerID hexworld.PlayerId `json:"player_id"`
	From     hexworld.Coord    `json:"from,omitempty"`
	To       hexworld.Coord    `json:"to,omitempty"`
	TargetID hexworld.PlayerId `json:"target_id,omitempty"`
}
