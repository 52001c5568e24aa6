package checkout

import (
	"errors"
	"fmt"

	"github.com/m3rciful/callmylawyer/internal/catalog"
)

var (
	// ErrUnknownService is returned when a selection names no catalog entry.
	ErrUnknownService = catalog.ErrUnknownService
	// ErrUnexpectedAction is returned for events the current state does not accept.
	ErrUnexpectedAction = errors.New("checkout: unexpected action")
	// ErrIncompleteDraft is returned by Confirm when required draft data is missing.
	ErrIncompleteDraft = errors.New("checkout: incomplete draft")
)

// ValidationError reports rejected user input. The state is unchanged and
// the user should be prompted again.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: invalid %s", e.Field)
}

// Code is picked up by the router summary logs as err_code.
func (e *ValidationError) Code() string { return "validation" }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
