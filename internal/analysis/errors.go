package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned for caller mistakes such as a non-positive n.
var ErrInvalidArgument = errors.New("invalid argument")

// EmptyJoinError reports a join that produced no rows. The accompanying
// table is valid and empty; callers treat this as a warning.
type EmptyJoinError struct {
	Key     string
	Columns []string
}

func (e *EmptyJoinError) Error() string {
	return fmt.Sprintf("join on %s produced no rows (columns: %s)", e.Key, strings.Join(e.Columns, ", "))
}

// EmptyResultWarning reports a filter or aggregation that matched nothing.
type EmptyResultWarning struct {
	What string
}

func (e *EmptyResultWarning) Error() string {
	return fmt.Sprintf("no rows for %s", e.What)
}

// IsWarning reports whether err only signals an empty result.
func IsWarning(err error) bool {
	var je *EmptyJoinError
	var rw *EmptyResultWarning
	return errors.As(err, &je) || errors.As(err, &rw)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
