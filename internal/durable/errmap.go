package durable

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hexgame/gamecore/internal/apperr"
)

// pgUniqueViolation is the Postgres error code for a unique constraint
// violation, used to turn a duplicate join_code insert into a Conflict
// rather than an opaque Internal error.
const pgUniqueViolation = "23505"

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return apperr.Wrap(apperr.Conflict, "join code already in use", err)
	}
	return apperr.Wrap(apperr.Internal, "upsert session_summary", err)
}

func mapReadErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrSessionNotAlive
	}
	return apperr.Wrap(apperr.Unavailable, "query session_summary", err)
}
