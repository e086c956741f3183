package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("user with this email already exists")
	// ErrAttemptClosed is returned by a completion when the attempt was
	// already submitted by a concurrent call.
	ErrAttemptClosed = errors.New("attempt already submitted")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
