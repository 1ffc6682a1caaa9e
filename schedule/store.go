/*
store.go - Persistence interfaces for calendars, shifts, presets, extras

PURPOSE:
  Defines the interface between the orchestrator and the database.
  Small, capability-based interfaces: the orchestrator asks only for
  what it needs, and optional capabilities (atomic shift replacement,
  conflict-aware calendar insertion) are discovered with type
  assertions.

FULL-REPLACE CONTRACT:
  Rotation regeneration is "clear scope, then bulk-write". Stores that
  implement ShiftReplacer do both phases in one transaction; otherwise
  the orchestrator falls back to DeleteByCalendar + BulkInsert and
  reports FullyReplaced=false, with a failed insert surfaced as
  PartialRotationApply.

CALENDAR UNIQUENESS:
  CalendarStore implementations are expected to enforce a uniqueness
  constraint on owner_user_id and return ErrCalendarExists on conflict,
  so concurrent first-time resolutions converge on one calendar instead
  of racing two into existence.

IMPLEMENTATIONS:
  - store/sqlite: Production path
  - store/memory: In-memory for tests

SEE ALSO:
  - orchestrator.go, resolution.go: Consumers
*/
package schedule

import (
	"context"
	"errors"
)

// ErrCalendarExists is returned by InsertCalendar when the owner already has
// a calendar. Resolution treats it as "someone else just created it" and
// re-fetches.
var ErrCalendarExists = errors.New("calendar already exists for owner")

// CalendarStore persists calendars.
type CalendarStore interface {
	// FindCalendarByOwner returns the user's calendar, or nil if none.
	FindCalendarByOwner(ctx context.Context, userID string) (*Calendar, error)

	// InsertCalendar persists a new calendar. Returns ErrCalendarExists if
	// the owner already has one.
	InsertCalendar(ctx context.Context, cal Calendar) error
}

// ShiftStore persists shift records.
type ShiftStore interface {
	// ListShifts returns a calendar's shifts ordered by date ascending.
	ListShifts(ctx context.Context, calendarID CalendarID) ([]ShiftRecord, error)

	// GetShift returns a shift by id, or nil if none.
	GetShift(ctx context.Context, id ShiftID) (*ShiftRecord, error)

	// InsertShift persists a single shift.
	InsertShift(ctx context.Context, shift ShiftRecord) error

	// BulkInsertShifts persists shifts in one batch.
	BulkInsertShifts(ctx context.Context, shifts []ShiftRecord) error

	// DeleteShiftsByCalendar removes every shift owned by the calendar.
	DeleteShiftsByCalendar(ctx context.Context, calendarID CalendarID) error
}

// ShiftReplacer is an optional capability: delete-all plus bulk-insert as
// one atomic operation. Stores with multi-statement transactions should
// implement it; the orchestrator checks for it with a type assertion.
type ShiftReplacer interface {
	ReplaceShifts(ctx context.Context, calendarID CalendarID, shifts []ShiftRecord) error
}

// TemplateStore persists the two preset collections.
type TemplateStore interface {
	InsertShiftTemplate(ctx context.Context, tpl ShiftTemplate) error
	ListShiftTemplates(ctx context.Context, ownerUserID string) ([]ShiftTemplate, error)

	InsertRotationTemplate(ctx context.Context, tpl RotationTemplate) error
	ListRotationTemplates(ctx context.Context, ownerUserID string) ([]RotationTemplate, error)
}

// ExtraStore persists monetary extras.
type ExtraStore interface {
	InsertExtra(ctx context.Context, extra Extra) error
	ListExtrasByShift(ctx context.Context, shiftID ShiftID) ([]Extra, error)
}

// UserDirectory is the external identity collaborator: given a user id it
// returns display name and timezone, used to name a lazily created calendar.
type UserDirectory interface {
	// GetProfile returns the user's profile, or nil if the user is unknown.
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
}
