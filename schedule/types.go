/*
Package schedule orchestrates rotations, calendars, shifts and presets.

PURPOSE:
  This package owns the write path of the scheduling domain: resolving a
  user to their personal calendar, replacing a calendar's shift set with
  a freshly generated rotation, and the priced creations (templates,
  single shifts, extras) that must pass through the credit ledger first.

KEY CONCEPTS IN THIS FILE (types.go):
  - Calendar: Owned by exactly one user or one team
  - ShiftRecord: A dated entry owned exclusively by one calendar
  - ShiftTemplate / RotationTemplate: User-owned reusable presets
  - Extra: A named monetary adjustment attached to a shift

DESIGN PRINCIPLES:
  1. Full replace: regenerating a rotation deletes every prior shift in
     the calendar, manual edits included - callers are told so
  2. Deduct before write: a priced creation that cannot pay never touches
     storage
  3. Money is decimal: extras carry decimal.Decimal amounts, credits stay
     plain integers

SEE ALSO:
  - orchestrator.go: ApplyRotation and the priced creations
  - resolution.go: Get-or-create calendar resolution
  - store.go: Persistence interfaces
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/supershift/rotation-engine/rotation"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CalendarID string
type ShiftID string

// =============================================================================
// CALENDAR - At most one personal calendar per user
// =============================================================================

// Calendar groups shifts. Exactly one of OwnerUserID or TeamID is set.
type Calendar struct {
	ID          CalendarID
	OwnerUserID string
	TeamID      string
	Name        string
	Timezone    string
	Color       string
	CreatedAt   time.Time
}

// =============================================================================
// SHIFT RECORD - One dated entry, owned by one calendar
// =============================================================================

// ShiftRecord is a materialized calendar entry. Start/End times are optional
// wall-clock strings ("08:00"); the date itself is calendar-day granular
// with no time zone conversion.
type ShiftRecord struct {
	ID         ShiftID
	CalendarID CalendarID
	Type       rotation.ShiftType
	Date       rotation.Date
	StartTime  string
	EndTime    string
	Note       string
	CreatedAt  time.Time
}

// =============================================================================
// TEMPLATES - User-owned reusable presets (priced creations)
// =============================================================================

// ShiftTemplate is a reusable single-shift preset.
type ShiftTemplate struct {
	ID          string
	OwnerUserID string
	Title       string
	Icon        string
	StartTime   string
	EndTime     string
	Color       string
	CreatedAt   time.Time
}

// RotationTemplate is a reusable rotation preset: DayCount days with a
// shift type assigned to each.
type RotationTemplate struct {
	ID          string
	OwnerUserID string
	Title       string
	Icon        string
	DayCount    int
	Assignments []rotation.ShiftType
	CreatedAt   time.Time
}

// =============================================================================
// EXTRA - Named monetary adjustment on a shift
// =============================================================================

// Extra is a monetary line item attached to a shift, e.g. a night-shift
// premium. Amounts use decimal to avoid floating-point money.
type Extra struct {
	ID        string
	ShiftID   ShiftID
	Name      string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// =============================================================================
// USER PROFILE - External identity collaborator's view of a user
// =============================================================================

// UserProfile is what calendar resolution needs to know about a user:
// a display name for the default calendar name and a timezone.
type UserProfile struct {
	ID       string
	Name     string
	Email    string
	Timezone string
}

// =============================================================================
// APPLY RESULT
// =============================================================================

// ApplyResult is the outcome of ApplyRotation. FullyReplaced reports whether
// the delete+insert ran inside one storage transaction; stores without that
// capability leave a window where the delete can succeed and the insert fail.
type ApplyResult struct {
	CalendarID    CalendarID
	Shifts        []ShiftRecord
	FullyReplaced bool
}
