package orders

import (
	"errors"
	"fmt"
)

// ErrInvalidOrder is returned by Append for orders that cannot be stored.
var ErrInvalidOrder = errors.New("orders: invalid order")

// PersistenceError reports that the backing medium could not be read or written.
// The in-memory snapshot is left untouched when it is returned from a write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("orders: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Code is picked up by the router summary logs as err_code.
func (e *PersistenceError) Code() string { return "persistence" }

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
