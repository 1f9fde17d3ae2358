// Package migrate is the Version Migrator (VM): a pure function mapping
// any prior on-disk session schema to the current one (spec.md §4.9). It
// operates on the raw decoded-JSON representation rather than the typed
// session.Session struct, because older versions may be missing fields
// the current struct requires — that is exactly what each step backfills.
package migrate

import (
	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/session"
)

// CurrentVersion is an alias of session.CurrentSchemaVersion, so the
// schema version has a single source of truth.
const CurrentVersion = session.CurrentSchemaVersion

// Step upgrades a raw session document from its version to version+1.
// Steps MUST be pure and total — no I/O, no fallible branches beyond the
// shape they're documented to handle.
type Step func(raw map[string]any) map[string]any

// steps[v] upgrades a document at version v to v+1.
var steps = map[int]Step{
	1: addEmptyEventsLog,
	2: populateVisibleByPlayer,
	3: backfillRoundOnMoveEvents,
}

// Upgrade repeatedly applies registered steps until raw is at
// CurrentVersion. Unknown or non-positive versions return InvalidVersion;
// the caller (internal/durable.Decode) then returns that error instead of
// a Session, so there is nothing to start.
func Upgrade(raw map[string]any) (map[string]any, error) {
	version, err := versionOf(raw)
	if err != nil {
		return nil, err
	}

	for version < CurrentVersion {
		step, ok := steps[version]
		if !ok {
			return nil, apperr.New(apperr.InvalidVersion, "no migration step registered for this version")
		}
		raw = step(raw)
		version++
		raw["version"] = float64(version)
	}
	if version > CurrentVersion {
		return nil, apperr.New(apperr.InvalidVersion, "on-disk version is newer than this binary's schema")
	}
	return raw, nil
}

func versionOf(raw map[string]any) (int, error) {
	v, ok := raw["version"]
	if !ok {
		return 0, apperr.New(apperr.InvalidVersion, "document has no version field")
	}
	f, ok := v.(float64)
	if !ok || f < 1 {
		return 0, apperr.New(apperr.InvalidVersion, "document version is not a positive integer")
	}
	return int(f), nil
}

// addEmptyEventsLog (v1 -> v2): sessions created before the event log
// existed get an empty one.
func addEmptyEventsLog(raw map[string]any) map[string]any {
	if _, ok := raw["events_log"]; !ok {
		raw["events_log"] = map[string]any{
			"events":                   map[string]any{},
			"events_visible_by_player": map[string]any{},
		}
	}
	return raw
}

// populateVisibleByPlayer (v2 -> v3): every current player gets an empty
// visibility list if the field predates per-player visibility.
func populateVisibleByPlayer(raw map[string]any) map[string]any {
	log, _ := raw["events_log"].(map[string]any)
	if log == nil {
		log = map[string]any{}
		raw["events_log"] = log
	}
	visible, _ := log["events_visible_by_player"].(map[string]any)
	if visible == nil {
		visible = map[string]any{}
	}
	if players, ok := raw["players"].(map[string]any); ok {
		for pid := range players {
			if _, ok := visible[pid]; !ok {
				visible[pid] = []any{}
			}
		}
	}
	log["events_visible_by_player"] = visible
	return raw
}

// backfillRoundOnMoveEvents (v3 -> v4): historical move events recorded
// before events carried their own round number are stamped with
// round-1, matching the round that was in progress when they were
// appended (the round counter had already been incremented by the time
// these older snapshots were taken).
func backfillRoundOnMoveEvents(raw map[string]any) map[string]any {
	log, _ := raw["events_log"].(map[string]any)
	if log == nil {
		return raw
	}
	events, _ := log["events"].(map[string]any)
	currentRound, _ := raw["round"].(float64)

	for _, v := range events {
		evt, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if _, hasRound := evt["round"]; hasRound {
			continue
		}
		kind, _ := evt["kind"].(string)
		if kind == "pc_left_hex" || kind == "pc_entered_hex" {
			evt["round"] = currentRound - 1
		}
	}
	return raw
}
