/*
errors.go - Centralized error types for the scheduling domain

PURPOSE:
  All scheduling errors in one place. The taxonomy mirrors what callers
  must handle differently:
  - NoCalendar: resolution produced nothing; a state error, 500-class
  - PartialRotationApply: the delete landed but the insert did not; the
    caller must retry GENERATION, not just the request
  - StorageTimeout: the request-level deadline expired mid-I/O
  - Not-found conditions: 404-class

SEE ALSO:
  - orchestrator.go: Where these are returned
  - api/handlers.go: HTTP status mapping
*/
package schedule

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoCalendar is returned when calendar resolution yields nothing.
	// Configuration/state error, surfaced as a server error.
	ErrNoCalendar = errors.New("no calendar resolved for user")

	// ErrPartialRotationApply is returned when the old shifts were deleted
	// but the new ones could not be inserted. The calendar is left empty;
	// retrying the whole generation is required, not just the request.
	ErrPartialRotationApply = errors.New("rotation partially applied: shifts cleared but not rewritten")

	// ErrStorageTimeout is returned when a store call exceeded the
	// request-level deadline.
	ErrStorageTimeout = errors.New("storage timeout")

	// ErrShiftNotFound is returned when an extra references a shift that
	// does not exist.
	ErrShiftNotFound = errors.New("shift not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PartialApplyError reports which calendar was left cleared.
type PartialApplyError struct {
	CalendarID CalendarID
	Cause      error
}

func (e *PartialApplyError) Error() string {
	return fmt.Sprintf("rotation apply left calendar %s cleared: %v", e.CalendarID, e.Cause)
}

func (e *PartialApplyError) Unwrap() error {
	return ErrPartialRotationApply
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// wrapStorage classifies a storage fault, surfacing deadline expiry as
// ErrStorageTimeout so callers can tell a slow store from a broken one.
func wrapStorage(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrStorageTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
