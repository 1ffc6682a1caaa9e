/*
resolution.go - Get-or-create calendar resolution

PURPOSE:
  Maps a user identity to exactly one owned calendar, creating it lazily
  on first need. The lookup path is idempotent and side-effect free;
  only a missing calendar triggers a write.

RACE HANDLING:
  Lookup-then-insert is inherently racy. Instead of reproducing that
  race, the store enforces a uniqueness constraint on the owner and
  reports ErrCalendarExists on conflict, which resolution treats as
  "someone else just created it" and re-fetches. Concurrent first-time
  calls therefore converge on a single calendar.

SEE ALSO:
  - store.go: CalendarStore, ErrCalendarExists
  - orchestrator.go: The main caller
*/
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultCalendarColor = "#2563eb"

// CalendarResolver implements the get-or-create mapping from user to
// personal calendar.
type CalendarResolver struct {
	Calendars CalendarStore
	Users     UserDirectory
}

func NewCalendarResolver(calendars CalendarStore, users UserDirectory) *CalendarResolver {
	return &CalendarResolver{Calendars: calendars, Users: users}
}

// ResolveOrCreate returns the id of the user's calendar, creating one if
// absent. Returns ErrNoCalendar when neither lookup nor creation yields a
// calendar.
func (r *CalendarResolver) ResolveOrCreate(ctx context.Context, userID string) (CalendarID, error) {
	existing, err := r.Calendars.FindCalendarByOwner(ctx, userID)
	if err != nil {
		return "", wrapStorage("calendar lookup", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	profile, err := r.Users.GetProfile(ctx, userID)
	if err != nil {
		return "", wrapStorage("user profile lookup", err)
	}
	if profile == nil {
		return "", fmt.Errorf("%w: user %s unknown", ErrNoCalendar, userID)
	}

	cal := Calendar{
		ID:          CalendarID(uuid.NewString()),
		OwnerUserID: userID,
		Name:        defaultCalendarName(profile),
		Timezone:    profile.Timezone,
		Color:       defaultCalendarColor,
		CreatedAt:   time.Now().UTC(),
	}

	err = r.Calendars.InsertCalendar(ctx, cal)
	if errors.Is(err, ErrCalendarExists) {
		// Lost the creation race; the winner's calendar is the calendar.
		winner, findErr := r.Calendars.FindCalendarByOwner(ctx, userID)
		if findErr != nil {
			return "", wrapStorage("calendar re-fetch after conflict", findErr)
		}
		if winner == nil {
			return "", ErrNoCalendar
		}
		return winner.ID, nil
	}
	if err != nil {
		return "", wrapStorage("calendar insert", err)
	}

	return cal.ID, nil
}

func defaultCalendarName(profile *UserProfile) string {
	if profile.Name == "" {
		return "My shifts"
	}
	return fmt.Sprintf("%s's shifts", profile.Name)
}
