/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Wire-format structs, separated from domain types so the JSON surface
  can evolve without touching the core. Dates cross the wire as ISO
  yyyy-MM-dd strings; monetary amounts as decimal strings, never floats.

SEE ALSO:
  - handlers.go: Serialization happens there
*/
package api

// =============================================================================
// REQUESTS
// =============================================================================

// RotationRequest drives both the pure preview and the persisted apply.
type RotationRequest struct {
	StartDate   string `json:"start_date"`
	WorkDays    int    `json:"work_days"`
	RestDays    int    `json:"rest_days"`
	HorizonDays int    `json:"horizon_days"`
}

type CreateUserRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Timezone string `json:"timezone"`
}

type ChargeRequest struct {
	ActionType  string `json:"action_type"`
	ReferenceID string `json:"reference_id,omitempty"`
}

type CreateShiftRequest struct {
	Type      string `json:"type"`
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Note      string `json:"note,omitempty"`
}

type CreateShiftTemplateRequest struct {
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Color     string `json:"color,omitempty"`
}

type CreateRotationTemplateRequest struct {
	Title       string   `json:"title"`
	Icon        string   `json:"icon,omitempty"`
	DayCount    int      `json:"day_count"`
	Assignments []string `json:"assignments"`
}

type AddExtraRequest struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type UserDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Timezone string `json:"timezone"`
}

type EntryDTO struct {
	DayIndex int    `json:"day_index"`
	Date     string `json:"date"`
	Type     string `json:"type"`
}

type ShiftDTO struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendar_id"`
	Type       string `json:"type"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	Note       string `json:"note,omitempty"`
}

// ApplyRotationResponse reports the persisted shift set. FullyReplaced is
// false when the store could not run the clear+rewrite atomically, meaning
// a failure window existed during the call.
type ApplyRotationResponse struct {
	CalendarID    string     `json:"calendar_id"`
	FullyReplaced bool       `json:"fully_replaced"`
	Shifts        []ShiftDTO `json:"shifts"`
}

type BalanceDTO struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

type TransactionDTO struct {
	ID          string `json:"id"`
	Amount      int    `json:"amount"`
	ActionType  string `json:"action_type"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type ShiftTemplateDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Icon      string `json:"icon,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RotationTemplateDTO struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Icon        string   `json:"icon,omitempty"`
	DayCount    int      `json:"day_count"`
	Assignments []string `json:"assignments"`
	CreatedAt   string   `json:"created_at"`
}

type ExtraDTO struct {
	ID      string `json:"id"`
	ShiftID string `json:"shift_id"`
	Name    string `json:"name"`
	Amount  string `json:"amount"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
