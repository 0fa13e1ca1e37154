package repository

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicate signals a unique constraint violation.
var ErrDuplicate = errors.New("duplicate record")

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
