// Package durable is the Durable Summary Store (DSS): the authoritative
// on-disk store of session snapshots and indexes (spec.md §4.7), backed
// by Postgres via pgx/pgxpool with goose-managed migrations — the same
// pattern the teacher repo uses for its character/item/clan repos.
package durable

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/eventlog"
	"github.com/hexgame/gamecore/internal/hexworld"
	"github.com/hexgame/gamecore/internal/migrate"
	"github.com/hexgame/gamecore/internal/session"
)

var knownTopLevelKeys = map[string]bool{
	"id": true, "join_code": true, "status": true, "round": true,
	"round_end_time": true, "players": true, "world": true,
	"registered_actions": true, "events_log": true, "version": true,
}

// Encode produces the opaque, schema-versioned snapshot bytes stored in
// session_summary.snapshot. round_end_time is truncated to second
// precision per spec.md §6.
func Encode(s session.Session) ([]byte, error) {
	if s.RoundEndTime != nil {
		t := s.RoundEndTime.UTC().Truncate(time.Second)
		s.RoundEndTime = &t
	}

	b, err := json.Marshal(s)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode session", err)
	}
	if len(s.Extra) == 0 {
		return b, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &merged); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode session: remarshal", err)
	}
	for k, v := range s.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode session: merge extra", err)
	}
	return out, nil
}

// Decode reverses Encode, running the Version Migrator first so the
// returned Session is always at session.CurrentSchemaVersion. Unknown
// top-level fields are preserved in Session.Extra; unknown event/action
// kinds are rejected as BadSchema.
func Decode(data []byte) (session.Session, error) {
	var plain map[string]any
	if err := json.Unmarshal(data, &plain); err != nil {
		return session.Session{}, apperr.Wrap(apperr.BadSchema, "decode session: invalid JSON", err)
	}

	upgraded, err := migrate.Upgrade(plain)
	if err != nil {
		return session.Session{}, err
	}

	normalized, err := json.Marshal(upgraded)
	if err != nil {
		return session.Session{}, apperr.Wrap(apperr.Internal, "decode session: remarshal upgraded doc", err)
	}

	var s session.Session
	if err := json.Unmarshal(normalized, &s); err != nil {
		return session.Session{}, apperr.Wrap(apperr.BadSchema, "decode session: shape mismatch", err)
	}

	var rawKeys map[string]json.RawMessage
	if err := json.Unmarshal(normalized, &rawKeys); err != nil {
		return session.Session{}, apperr.Wrap(apperr.Internal, "decode session: extract raw keys", err)
	}
	extra := map[string]json.RawMessage{}
	for k, v := range rawKeys {
		if !knownTopLevelKeys[k] {
			extra[k] = v
		}
	}
	if len(extra) > 0 {
		s.Extra = extra
	}

	if err := validateKinds(s); err != nil {
		return session.Session{}, err
	}
	return s, nil
}

func validateKinds(s session.Session) error {
	for _, actions := range s.RegisteredActions {
		for _, a := range actions {
			if a.Kind != hexworld.ActionMove && a.Kind != hexworld.ActionAttack {
				return apperr.New(apperr.BadSchema, fmt.Sprintf("unknown action kind %q", a.Kind))
			}
		}
	}
	for _, e := range s.EventsLog.Events {
		switch e.Kind {
		case eventlog.KindPCLeftHex, eventlog.KindPCEnteredHex, eventlog.KindPCAttackedPC:
		default:
			return apperr.New(apperr.BadSchema, fmt.Sprintf("unknown event kind %q", e.Kind))
		}
	}
	return nil
}
