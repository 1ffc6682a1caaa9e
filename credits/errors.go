/*
errors.go - Centralized error types for the credit ledger

PURPOSE:
  All credit-ledger errors in one place. The important distinction is
  between InsufficientCredits (a recoverable, user-facing condition, the
  402 of this system) and storage failures (fatal, 500-class). Callers
  must be able to tell them apart with errors.Is.

SEE ALSO:
  - ledger.go: Where these are returned
  - api/handlers.go: HTTP status mapping
*/
package credits

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientCredits is returned when a deduction would drive the
	// balance negative. Recoverable: the caller should prompt an upgrade,
	// never retry automatically.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrUnknownAction is returned when an action has no entry in the cost
	// table. Caller's fault.
	ErrUnknownAction = errors.New("unknown action type")

	// ErrInvalidAmount is returned for non-positive deduction amounts.
	ErrInvalidAmount = errors.New("deduction amount must be positive")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientCreditsError reports how short the balance fell.
type InsufficientCreditsError struct {
	UserID    string
	Available int
	Required  int
	Action    ActionType
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for %s: available %d, required %d",
		e.Action, e.Available, e.Required)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}

// UnknownActionError names the unpriced action.
type UnknownActionError struct {
	Action ActionType
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("no cost configured for action %q", e.Action)
}

func (e *UnknownActionError) Unwrap() error {
	return ErrUnknownAction
}
