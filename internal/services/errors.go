package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind identifies a service error for the HTTP layer to map to a status.
type Kind string

const (
	KindInvalidLength       Kind = "INVALID_LENGTH"
	KindBadUsername         Kind = "BAD_USERNAME"
	KindUserExists          Kind = "USER_EXISTS"
	KindInvalidCredentials  Kind = "INVALID_CREDENTIALS"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindUserNotFound        Kind = "USER_NOT_FOUND"
	KindCurrentUser         Kind = "CURRENT_USER"
	KindBadID               Kind = "BAD_ID"
	KindNotMember           Kind = "NOT_MEMBER"
	KindAlreadyMember       Kind = "ALREADY_MEMBER"
	KindAlreadyExists       Kind = "ALREADY_EXISTS"
	KindLeaderboardExists   Kind = "LEADERBOARD_EXISTS"
	KindLeaderboardNotFound Kind = "LEADERBOARD_NOT_FOUND"
	KindTooManyRegisters    Kind = "TOO_MANY_REGISTERS"
	KindBadCode             Kind = "BAD_CODE"
	KindInternal            Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// storageError wraps an unexpected database/connection failure.
func storageError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "storage error", Err: err}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
