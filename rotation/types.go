/*
Package rotation provides the rotation generation engine.

PURPOSE:
  This package turns a compact cycle description (work N days, rest M days)
  into a bounded sequence of dated shift entries. It is the one piece of the
  system with real algorithmic shape, so it is kept pure: no I/O, no clock,
  no retained state between calls.

KEY CONCEPTS IN THIS FILE (types.go):
  - Date: A calendar day with no time-of-day component
  - Cycle: A (work days, rest days) pair defining the repeating pattern
  - Entry: One generated day, with its 1-based index and shift type
  - ShiftType: WORK, REST, NIGHT, VACATION, CUSTOM

DESIGN PRINCIPLES:
  1. Determinism: same input, same output, always
  2. Calendar-day granularity: day arithmetic via AddDate, never hour math,
     so DST transitions cannot drift the sequence
  3. Fail fast: malformed cycles are rejected before any work happens

USAGE:
  entries, err := rotation.Generate(
      rotation.NewDate(2024, time.January, 1),
      rotation.Cycle{WorkDays: 4, RestDays: 2},
      30,
  )

SEE ALSO:
  - generator.go: The Generate function
  - errors.go: InvalidArgument error types
*/
package rotation

import (
	"time"
)

// =============================================================================
// DATE - Calendar day, no time zone conversion
// =============================================================================

// Date is a calendar day. The underlying time is always midnight UTC; callers
// never see hours or minutes, and formatting is ISO yyyy-MM-dd.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO yyyy-MM-dd date string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Before reports whether d falls on an earlier calendar day than other.
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }

// AddDays advances by whole calendar days. AddDate is used instead of
// Add(24h) so the result stays pinned to midnight across DST boundaries.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.normalize().AddDate(0, 0, n)}
}

// DaysBetween returns the number of calendar days from d to other.
func (d Date) DaysBetween(other Date) int {
	return int(other.normalize().Sub(d.normalize()).Hours() / 24)
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.normalize().Format("2006-01-02")
}

// MarshalJSON renders the date as a plain ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// SHIFT TYPE
// =============================================================================

type ShiftType string

const (
	ShiftWork     ShiftType = "WORK"
	ShiftRest     ShiftType = "REST"
	ShiftNight    ShiftType = "NIGHT"
	ShiftVacation ShiftType = "VACATION"
	ShiftCustom   ShiftType = "CUSTOM"
)

// Valid reports whether t is one of the known shift types.
func (t ShiftType) Valid() bool {
	switch t {
	case ShiftWork, ShiftRest, ShiftNight, ShiftVacation, ShiftCustom:
		return true
	}
	return false
}

// =============================================================================
// CYCLE - Repeating work/rest pattern
// =============================================================================

// Cycle defines a repeating rotation pattern: WorkDays consecutive WORK days
// followed by RestDays consecutive REST days. Both must be positive.
type Cycle struct {
	WorkDays int
	RestDays int
}

// Length returns the total number of days in one full cycle.
func (c Cycle) Length() int { return c.WorkDays + c.RestDays }

// =============================================================================
// ENTRY - One generated day
// =============================================================================

// Entry is a single day of a generated rotation. DayIndex is 1-based within
// the output sequence, not within the cycle.
type Entry struct {
	DayIndex int
	Date     Date
	Type     ShiftType
}
