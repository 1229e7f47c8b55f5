package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUsage is returned when a required option is missing or unusable.
	// It is never worth retrying.
	ErrUsage = errors.New("invalid usage")

	// ErrState is returned when the filesystem is not in the shape an
	// operation needs, e.g. a sync destination that does not exist
	ErrState = errors.New("invalid state")

	// ErrNotDirectory is returned when a mirror source is a plain file
	ErrNotDirectory = errors.New("not a directory")
)

// IOError wraps a filesystem failure with the operation and path involved
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

func ioError(op, path string, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}
