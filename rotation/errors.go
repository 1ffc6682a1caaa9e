/*
errors.go - Invalid-argument errors for the generator

PURPOSE:
  The generator fails fast on malformed input instead of producing a
  partially meaningful sequence. All such failures unwrap to
  ErrInvalidArgument so callers can map them to a 400-class response
  with a single errors.Is check.

SEE ALSO:
  - generator.go: Where these are returned
*/
package rotation

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the sentinel for all generator input validation
// failures. Caller's fault, never retried.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError names the specific field that failed validation.
type InvalidArgumentError struct {
	Field  string
	Value  int
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %d (%s)", e.Field, e.Value, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
