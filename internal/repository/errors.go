package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateToken is returned when a share token collides with an existing row.
	ErrDuplicateToken = errors.New("share token already exists")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateReport is returned when a user reports the same share twice.
	ErrDuplicateReport = errors.New("share already reported by user")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}
