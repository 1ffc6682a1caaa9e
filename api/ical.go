/*
ical.go - iCalendar export of a user's shifts

PURPOSE:
  Renders a calendar's shift set as an iCalendar feed so users can
  subscribe from their phone's calendar app. Shifts are all-day events;
  the shift type is the summary and any note becomes the description.

SEE ALSO:
  - handlers.go: The rest of the HTTP surface
*/
package api

import (
	"net/http"

	ics "github.com/arran4/golang-ical"
	"github.com/go-chi/chi/v5"
)

// ExportCalendar renders the user's shifts as an iCalendar feed.
// GET /api/users/{id}/calendar.ics
func (h *Handler) ExportCalendar(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ctx := r.Context()

	cal, err := h.Calendars.FindCalendarByOwner(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve calendar", err)
		return
	}
	if cal == nil {
		writeError(w, http.StatusNotFound, "No calendar for user", nil)
		return
	}

	shifts, err := h.Shifts.ListShifts(ctx, cal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}

	feed := ics.NewCalendar()
	feed.SetMethod(ics.MethodPublish)
	feed.SetProductId("-//supershift//rotation-engine//EN")
	feed.SetName(cal.Name)

	for _, shift := range shifts {
		event := feed.AddEvent(string(shift.ID))
		event.SetCreatedTime(shift.CreatedAt)
		event.SetDtStampTime(shift.CreatedAt)
		event.SetAllDayStartAt(shift.Date.Time)
		event.SetAllDayEndAt(shift.Date.AddDays(1).Time)
		event.SetSummary(string(shift.Type))
		if shift.Note != "" {
			event.SetDescription(shift.Note)
		}
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="shifts.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(feed.Serialize()))
}
