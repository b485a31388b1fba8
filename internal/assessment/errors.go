package assessment

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the submission service and the API
// layer. Storage failures are returned as-is (wrapped driver errors) and map
// to retryable 5xx responses; everything below is terminal for the caller.
var (
	ErrNotFound = errors.New("not found")
	// ErrConflict maps to 409 in the API layer. No current flow produces
	// it: repeat submissions stack as separate attempts rather than
	// conflicting, so it only guards conflicting writes added later.
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

func notFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
