package custom_error

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Postgres error codes worth telling apart at the API surface.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type UniqueViolationError struct {
	message string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, codeUniqueViolation)
}

type ForeignKeyViolationError struct {
	message string
}

func (e *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, codeForeignKeyViolation)
}

// WrapDBError translates a raw Postgres constraint failure into a typed error
// callers can match on. Anything that is not a recognized constraint class is
// returned unchanged.
func WrapDBError(err error, message string) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case codeUniqueViolation:
		return &UniqueViolationError{message: message}
	case codeForeignKeyViolation:
		return &ForeignKeyViolationError{message: "value is referenced by other resources: " + message}
	default:
		return err
	}
}

func IsUniqueViolation(err error) bool {
	var unique *UniqueViolationError
	return errors.As(err, &unique)
}
