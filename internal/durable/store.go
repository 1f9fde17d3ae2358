package durable

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hexgame/gamecore/internal/apperr"
	"github.com/hexgame/gamecore/internal/session"
)

// ActiveSummary is one row of active_sessions_for_user (spec.md §6).
type ActiveSummary struct {
	SessionID   uuid.UUID
	JoinCode    string
	LatestRound int
}

// Repo is the Durable Summary Store (spec.md §4.7): the authoritative
// on-disk snapshot of every session, keyed by session_id with a unique
// join_code index and a user_session child table for per-user lookups.
type Repo struct {
	db *DB
}

func NewRepo(db *DB) *Repo {
	return &Repo{db: db}
}

// Upsert writes s's snapshot and replaces its user_session rows in a
// single transaction. internal/runtime calls it at every round boundary;
// creating or placing a session does not call it, so a session has no
// row until its first round ends.
func (r *Repo) Upsert(ctx context.Context, s session.Session) error {
	snapshot, err := Encode(s)
	if err != nil {
		return err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Unavailable, "begin upsert tx", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO session_summary (session_id, join_code, status, latest_round, snapshot, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id) DO UPDATE SET
		   join_code = EXCLUDED.join_code,
		   status = EXCLUDED.status,
		   latest_round = EXCLUDED.latest_round,
		   snapshot = EXCLUDED.snapshot,
		   updated_at = EXCLUDED.updated_at`,
		s.ID, s.JoinCode, string(s.Status), s.Round, snapshot, time.Now().UTC())
	if err != nil {
		return mapWriteErr(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM user_session WHERE session_id = $1`, s.ID); err != nil {
		return apperr.Wrap(apperr.Internal, "clear user_session rows", err)
	}

	for _, p := range s.Players {
		status := s.PlayerStatus(p.UserID)
		_, err := tx.Exec(ctx,
			`INSERT INTO user_session (session_id, user_id, player_status) VALUES ($1, $2, $3)`,
			s.ID, int64(p.UserID), status.String())
		if err != nil {
			return apperr.Wrap(apperr.Internal, "insert user_session row", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Wrap(apperr.Unavailable, "commit upsert tx", err)
	}
	return nil
}

// FetchByID adapts ByID for internal/placement.SnapshotFetcher, which
// takes a plain string id to avoid importing internal/durable's uuid
// dependency into internal/placement.
func (r *Repo) FetchByID(ctx context.Context, sessionID string) (session.Session, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return session.Session{}, apperr.Wrap(apperr.InvalidInput, "malformed session id", err)
	}
	return r.ByID(ctx, id)
}

// ByID fetches a session by its session_id.
func (r *Repo) ByID(ctx context.Context, id uuid.UUID) (session.Session, error) {
	var snapshot []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT snapshot FROM session_summary WHERE session_id = $1`, id,
	).Scan(&snapshot)
	if err != nil {
		return session.Session{}, mapReadErr(err)
	}
	return Decode(snapshot)
}

// ByJoinCode fetches a session by its unique join code.
func (r *Repo) ByJoinCode(ctx context.Context, joinCode string) (session.Session, error) {
	var snapshot []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT snapshot FROM session_summary WHERE join_code = $1`, joinCode,
	).Scan(&snapshot)
	if err != nil {
		return session.Session{}, mapReadErr(err)
	}
	return Decode(snapshot)
}

// ActiveForUser backs active_sessions_for_user (spec.md §6).
func (r *Repo) ActiveForUser(ctx context.Context, userID int64) ([]ActiveSummary, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT s.session_id, s.join_code, s.latest_round
		 FROM session_summary s
		 JOIN user_session u ON u.session_id = s.session_id
		 WHERE u.user_id = $1 AND s.status = $2
		 ORDER BY s.updated_at DESC`,
		userID, string(session.Active))
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "query active_for_user", err)
	}
	defer rows.Close()

	var out []ActiveSummary
	for rows.Next() {
		var a ActiveSummary
		if err := rows.Scan(&a.SessionID, &a.JoinCode, &a.LatestRound); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan active_for_user row", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AllActive backs the Recovery Service's startup scan (spec.md §4.8):
// every summary with status = Active, fully decoded.
func (r *Repo) AllActive(ctx context.Context) ([]session.Session, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT snapshot FROM session_summary WHERE status = $1`, string(session.Active))
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "query all_active", err)
	}
	defer rows.Close()

	var out []session.Session
	for rows.Next() {
		var snapshot []byte
		if err := rows.Scan(&snapshot); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "scan all_active row", err)
		}
		s, err := Decode(snapshot)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
