/*
handlers.go - HTTP API handlers for the shift rotation engine

PURPOSE:
  Exposes the core over REST. Handles HTTP request/response, JSON
  serialization, and delegates everything else to the domain packages.

ENDPOINTS:
  Rotation:
    POST   /api/rotation/preview        Pure generation, no auth, no credits
    POST   /api/users/{id}/rotation     Apply rotation (full replace)

  Users & credits:
    POST   /api/users                   Create/update user
    GET    /api/users/{id}              Get user
    GET    /api/users/{id}/credits      Credit balance
    POST   /api/users/{id}/charge       Charge for an action
    GET    /api/users/{id}/transactions Credit history

  Shifts:
    GET    /api/users/{id}/shifts       List calendar shifts
    POST   /api/users/{id}/shifts       Create single shift (priced)
    GET    /api/users/{id}/calendar.ics iCalendar export
    POST   /api/shifts/{id}/extras      Add monetary extra (priced)
    GET    /api/shifts/{id}/extras      List extras

  Templates (priced creations):
    GET/POST /api/users/{id}/shift-templates
    GET/POST /api/users/{id}/rotation-templates

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (generator validation included)
  - 402: Insufficient credits
  - 404: Resource not found
  - 500: NoCalendar, storage failures, partial rotation apply
  - 504: Storage timeout

SECURITY NOTE:
  No authentication middleware. Session issuance is an external
  collaborator; {id} is trusted as the authenticated principal.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/supershift/rotation-engine/credits"
	"github.com/supershift/rotation-engine/rotation"
	"github.com/supershift/rotation-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// UserStore persists user profiles and doubles as the identity
// collaborator for calendar resolution.
type UserStore interface {
	schedule.UserDirectory
	SaveUser(ctx context.Context, profile schedule.UserProfile) error
}

// TransactionReader exposes the append-only credit audit log.
type TransactionReader interface {
	ListCreditTransactions(ctx context.Context, userID string) ([]credits.CreditTransaction, error)
}

// FullStore is the complete persistence surface one store implementation
// provides. Both store/sqlite and store/memory satisfy it.
type FullStore interface {
	schedule.CalendarStore
	schedule.ShiftStore
	schedule.TemplateStore
	schedule.ExtraStore
	UserStore
	TransactionReader
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Orchestrator *schedule.Orchestrator
	Resolver     *schedule.CalendarResolver
	Ledger       credits.Ledger

	Users        UserStore
	Shifts       schedule.ShiftStore
	Templates    schedule.TemplateStore
	Extras       schedule.ExtraStore
	Calendars    schedule.CalendarStore
	Transactions TransactionReader

	Logger *zap.Logger
}

// NewHandler creates a handler wired to one store implementation.
func NewHandler(store FullStore, ledger credits.Ledger, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := schedule.NewCalendarResolver(store, store)
	return &Handler{
		Orchestrator: schedule.NewOrchestrator(resolver, store, store, store, ledger, logger),
		Resolver:     resolver,
		Ledger:       ledger,
		Users:        store,
		Shifts:       store,
		Templates:    store,
		Extras:       store,
		Calendars:    store,
		Transactions: store,
		Logger:       logger,
	}
}

// =============================================================================
// ROTATION HANDLERS
// =============================================================================

// PreviewRotation runs the pure generator. No auth, no credits, no writes.
// POST /api/rotation/preview
func (h *Handler) PreviewRotation(w http.ResponseWriter, r *http.Request) {
	var req RotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := rotation.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}

	entries, err := rotation.Generate(start,
		rotation.Cycle{WorkDays: req.WorkDays, RestDays: req.RestDays},
		req.HorizonDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = EntryDTO{DayIndex: e.DayIndex, Date: e.Date.String(), Type: string(e.Type)}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApplyRotation replaces the user's calendar with a generated rotation.
// Destructive full replace: documented to callers via fully_replaced.
// POST /api/users/{id}/rotation
func (h *Handler) ApplyRotation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req RotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := rotation.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Orchestrator.ApplyRotation(r.Context(), userID, start,
		rotation.Cycle{WorkDays: req.WorkDays, RestDays: req.RestDays},
		req.HorizonDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ApplyRotationResponse{
		CalendarID:    string(result.CalendarID),
		FullyReplaced: result.FullyReplaced,
		Shifts:        toShiftDTOs(result.Shifts),
	})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// CreateUser creates or updates a user profile.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}

	profile := schedule.UserProfile{
		ID:       req.ID,
		Name:     req.Name,
		Email:    req.Email,
		Timezone: req.Timezone,
	}
	if err := h.Users.SaveUser(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save user", err)
		return
	}

	writeJSON(w, http.StatusCreated, UserDTO(profile))
}

// GetUser returns a user profile.
// GET /api/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	profile, err := h.Users.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, UserDTO(*profile))
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// GetCredits returns the user's credit balance (free-tier default applies).
// GET /api/users/{id}/credits
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	balance, err := h.Ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{UserID: userID, Balance: balance})
}

// Charge deducts the cost of an action from the user's balance.
// POST /api/users/{id}/charge
func (h *Handler) Charge(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Ledger.ChargeForAction(r.Context(), userID,
		credits.ActionType(req.ActionType), req.ReferenceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := h.Ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{UserID: userID, Balance: balance})
}

// GetTransactions returns the user's credit history.
// GET /api/users/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	txs, err := h.Transactions.ListCreditTransactions(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = TransactionDTO{
			ID:          tx.ID,
			Amount:      tx.Amount,
			ActionType:  string(tx.ActionType),
			ReferenceID: tx.ReferenceID,
			CreatedAt:   tx.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns the user's calendar shifts, date ascending.
// GET /api/users/{id}/shifts
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	ctx := r.Context()

	cal, err := h.Calendars.FindCalendarByOwner(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to resolve calendar", err)
		return
	}
	if cal == nil {
		writeJSON(w, http.StatusOK, []ShiftDTO{})
		return
	}

	shifts, err := h.Shifts.ListShifts(ctx, cal.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTOs(shifts))
}

// CreateShift inserts one shift into the user's calendar. Priced action.
// POST /api/users/{id}/shifts
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shiftType := rotation.ShiftType(req.Type)
	if !shiftType.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid shift type", nil)
		return
	}
	date, err := rotation.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	shift, err := h.Orchestrator.CreateShift(r.Context(), userID, schedule.ShiftRecord{
		Type:      shiftType,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Note:      req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(*shift))
}

// AddExtra attaches a monetary extra to a shift. Priced action.
// POST /api/shifts/{id}/extras
func (h *Handler) AddExtra(w http.ResponseWriter, r *http.Request) {
	shiftID := schedule.ShiftID(chi.URLParam(r, "id"))
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter is required", nil)
		return
	}

	var req AddExtraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}

	extra, err := h.Orchestrator.AddExtra(r.Context(), userID, shiftID, req.Name, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ExtraDTO{
		ID:      extra.ID,
		ShiftID: string(extra.ShiftID),
		Name:    extra.Name,
		Amount:  extra.Amount.String(),
	})
}

// ListExtras returns a shift's extras.
// GET /api/shifts/{id}/extras
func (h *Handler) ListExtras(w http.ResponseWriter, r *http.Request) {
	shiftID := schedule.ShiftID(chi.URLParam(r, "id"))

	extras, err := h.Extras.ListExtrasByShift(r.Context(), shiftID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list extras", err)
		return
	}

	dtos := make([]ExtraDTO, len(extras))
	for i, e := range extras {
		dtos[i] = ExtraDTO{ID: e.ID, ShiftID: string(e.ShiftID), Name: e.Name, Amount: e.Amount.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEMPLATE HANDLERS (priced creations)
// =============================================================================

// CreateShiftTemplate creates a reusable shift preset. Priced action.
// POST /api/users/{id}/shift-templates
func (h *Handler) CreateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req CreateShiftTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required", nil)
		return
	}

	tpl, err := h.Orchestrator.CreateShiftTemplate(r.Context(), userID, schedule.ShiftTemplate{
		Title:     req.Title,
		Icon:      req.Icon,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Color:     req.Color,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftTemplateDTO(*tpl))
}

// ListShiftTemplates returns the user's shift presets.
// GET /api/users/{id}/shift-templates
func (h *Handler) ListShiftTemplates(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	templates, err := h.Templates.ListShiftTemplates(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shift templates", err)
		return
	}

	dtos := make([]ShiftTemplateDTO, len(templates))
	for i, tpl := range templates {
		dtos[i] = toShiftTemplateDTO(tpl)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRotationTemplate creates a reusable rotation preset. Priced action.
// POST /api/users/{id}/rotation-templates
func (h *Handler) CreateRotationTemplate(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req CreateRotationTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" || req.DayCount <= 0 {
		writeError(w, http.StatusBadRequest, "title and a positive day_count are required", nil)
		return
	}
	if len(req.Assignments) != req.DayCount {
		writeError(w, http.StatusBadRequest, "assignments must cover exactly day_count days", nil)
		return
	}

	assignments := make([]rotation.ShiftType, len(req.Assignments))
	for i, a := range req.Assignments {
		shiftType := rotation.ShiftType(a)
		if !shiftType.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid shift type in assignments: "+a, nil)
			return
		}
		assignments[i] = shiftType
	}

	tpl, err := h.Orchestrator.CreateRotationTemplate(r.Context(), userID, schedule.RotationTemplate{
		Title:       req.Title,
		Icon:        req.Icon,
		DayCount:    req.DayCount,
		Assignments: assignments,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRotationTemplateDTO(*tpl))
}

// ListRotationTemplates returns the user's rotation presets.
// GET /api/users/{id}/rotation-templates
func (h *Handler) ListRotationTemplates(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	templates, err := h.Templates.ListRotationTemplates(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rotation templates", err)
		return
	}

	dtos := make([]RotationTemplateDTO, len(templates))
	for i, tpl := range templates {
		dtos[i] = toRotationTemplateDTO(tpl)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SERIALIZATION HELPERS
// =============================================================================

func toShiftDTO(s schedule.ShiftRecord) ShiftDTO {
	return ShiftDTO{
		ID:         string(s.ID),
		CalendarID: string(s.CalendarID),
		Type:       string(s.Type),
		Date:       s.Date.String(),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Note:       s.Note,
	}
}

func toShiftDTOs(shifts []schedule.ShiftRecord) []ShiftDTO {
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	return dtos
}

func toShiftTemplateDTO(tpl schedule.ShiftTemplate) ShiftTemplateDTO {
	return ShiftTemplateDTO{
		ID:        tpl.ID,
		Title:     tpl.Title,
		Icon:      tpl.Icon,
		StartTime: tpl.StartTime,
		EndTime:   tpl.EndTime,
		Color:     tpl.Color,
		CreatedAt: tpl.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toRotationTemplateDTO(tpl schedule.RotationTemplate) RotationTemplateDTO {
	assignments := make([]string, len(tpl.Assignments))
	for i, a := range tpl.Assignments {
		assignments[i] = string(a)
	}
	return RotationTemplateDTO{
		ID:          tpl.ID,
		Title:       tpl.Title,
		Icon:        tpl.Icon,
		DayCount:    tpl.DayCount,
		Assignments: assignments,
		CreatedAt:   tpl.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rotation.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Invalid rotation parameters", err)
	case errors.Is(err, credits.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, "Insufficient credits", err)
	case errors.Is(err, credits.ErrUnknownAction), errors.Is(err, credits.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Invalid charge request", err)
	case errors.Is(err, schedule.ErrShiftNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, schedule.ErrStorageTimeout), errors.Is(err, context.DeadlineExceeded):
		// The schedule package classifies deadline expiry itself; ledger
		// errors arrive with the raw cause still wrapped, so both are
		// matched here.
		writeError(w, http.StatusGatewayTimeout, "Storage timeout", err)
	case errors.Is(err, schedule.ErrPartialRotationApply):
		// The calendar was cleared but not rewritten: the caller must
		// retry generation, not just the request.
		writeError(w, http.StatusInternalServerError, "Rotation partially applied; regenerate to restore shifts", err)
	case errors.Is(err, schedule.ErrNoCalendar):
		writeError(w, http.StatusInternalServerError, "No calendar could be resolved", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
