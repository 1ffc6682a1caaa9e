// Package memory provides an in-memory Store implementation (tests/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/supershift/rotation-engine/credits"
	"github.com/supershift/rotation-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of every persistence interface
// =============================================================================

// Store implements credits.BalanceStore, credits.TransactionLog and the
// schedule store interfaces. A single mutex serializes all access, which
// makes TryDeduct the required atomic check-and-deduct region.
type Store struct {
	mu sync.RWMutex

	users     map[string]schedule.UserProfile
	balances  map[string]int // absent key = free-tier default
	creditLog []credits.CreditTransaction

	calendars map[schedule.CalendarID]schedule.Calendar
	byOwner   map[string]schedule.CalendarID
	shifts    map[schedule.CalendarID][]schedule.ShiftRecord
	shiftIdx  map[schedule.ShiftID]schedule.CalendarID

	shiftTemplates    map[string][]schedule.ShiftTemplate
	rotationTemplates map[string][]schedule.RotationTemplate
	extras            map[schedule.ShiftID][]schedule.Extra
}

func New() *Store {
	return &Store{
		users:             make(map[string]schedule.UserProfile),
		balances:          make(map[string]int),
		calendars:         make(map[schedule.CalendarID]schedule.Calendar),
		byOwner:           make(map[string]schedule.CalendarID),
		shifts:            make(map[schedule.CalendarID][]schedule.ShiftRecord),
		shiftIdx:          make(map[schedule.ShiftID]schedule.CalendarID),
		shiftTemplates:    make(map[string][]schedule.ShiftTemplate),
		rotationTemplates: make(map[string][]schedule.RotationTemplate),
		extras:            make(map[schedule.ShiftID][]schedule.Extra),
	}
}

// =============================================================================
// USERS (schedule.UserDirectory)
// =============================================================================

func (s *Store) SaveUser(_ context.Context, profile schedule.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[profile.ID] = profile
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (*schedule.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// =============================================================================
// BALANCES (credits.BalanceStore)
// =============================================================================

func (s *Store) Balance(_ context.Context, userID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.balances[userID]
	return balance, ok, nil
}

// SetBalance seeds a stored balance (test setup).
func (s *Store) SetBalance(userID string, balance int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = balance
}

func (s *Store) TryDeduct(_ context.Context, userID string, amount int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	effective, ok := s.balances[userID]
	if !ok {
		effective = credits.DefaultBalance
	}
	if effective < amount {
		return false, nil
	}
	s.balances[userID] = effective - amount
	return true, nil
}

func (s *Store) Grant(_ context.Context, userID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	effective, ok := s.balances[userID]
	if !ok {
		effective = credits.DefaultBalance
	}
	s.balances[userID] = effective + amount
	return nil
}

// =============================================================================
// CREDIT TRANSACTION LOG (credits.TransactionLog) - append-only
// =============================================================================

func (s *Store) AppendCreditTransaction(_ context.Context, tx credits.CreditTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creditLog = append(s.creditLog, tx)
	return nil
}

func (s *Store) ListCreditTransactions(_ context.Context, userID string) ([]credits.CreditTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []credits.CreditTransaction
	for _, tx := range s.creditLog {
		if tx.UserID == userID {
			result = append(result, tx)
		}
	}
	return result, nil
}

// =============================================================================
// CALENDARS (schedule.CalendarStore)
// =============================================================================

func (s *Store) FindCalendarByOwner(_ context.Context, userID string) (*schedule.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byOwner[userID]
	if !ok {
		return nil, nil
	}
	cal := s.calendars[id]
	return &cal, nil
}

func (s *Store) InsertCalendar(_ context.Context, cal schedule.Calendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cal.OwnerUserID != "" {
		if _, exists := s.byOwner[cal.OwnerUserID]; exists {
			return schedule.ErrCalendarExists
		}
		s.byOwner[cal.OwnerUserID] = cal.ID
	}
	s.calendars[cal.ID] = cal
	return nil
}

// =============================================================================
// SHIFTS (schedule.ShiftStore + ShiftReplacer)
// =============================================================================

func (s *Store) ListShifts(_ context.Context, calendarID schedule.CalendarID) ([]schedule.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]schedule.ShiftRecord, len(s.shifts[calendarID]))
	copy(result, s.shifts[calendarID])
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

func (s *Store) GetShift(_ context.Context, id schedule.ShiftID) (*schedule.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	calendarID, ok := s.shiftIdx[id]
	if !ok {
		return nil, nil
	}
	for _, shift := range s.shifts[calendarID] {
		if shift.ID == id {
			return &shift, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertShift(_ context.Context, shift schedule.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertShiftLocked(shift)
	return nil
}

func (s *Store) BulkInsertShifts(_ context.Context, shifts []schedule.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, shift := range shifts {
		s.insertShiftLocked(shift)
	}
	return nil
}

func (s *Store) DeleteShiftsByCalendar(_ context.Context, calendarID schedule.CalendarID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteShiftsLocked(calendarID)
	return nil
}

// ReplaceShifts performs delete-all plus bulk-insert atomically under the
// store lock.
func (s *Store) ReplaceShifts(_ context.Context, calendarID schedule.CalendarID, shifts []schedule.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteShiftsLocked(calendarID)
	for _, shift := range shifts {
		s.insertShiftLocked(shift)
	}
	return nil
}

func (s *Store) insertShiftLocked(shift schedule.ShiftRecord) {
	s.shifts[shift.CalendarID] = append(s.shifts[shift.CalendarID], shift)
	s.shiftIdx[shift.ID] = shift.CalendarID
}

func (s *Store) deleteShiftsLocked(calendarID schedule.CalendarID) {
	for _, shift := range s.shifts[calendarID] {
		delete(s.shiftIdx, shift.ID)
		delete(s.extras, shift.ID)
	}
	delete(s.shifts, calendarID)
}

// =============================================================================
// TEMPLATES (schedule.TemplateStore)
// =============================================================================

func (s *Store) InsertShiftTemplate(_ context.Context, tpl schedule.ShiftTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shiftTemplates[tpl.OwnerUserID] = append(s.shiftTemplates[tpl.OwnerUserID], tpl)
	return nil
}

func (s *Store) ListShiftTemplates(_ context.Context, ownerUserID string) ([]schedule.ShiftTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]schedule.ShiftTemplate, len(s.shiftTemplates[ownerUserID]))
	copy(result, s.shiftTemplates[ownerUserID])
	return result, nil
}

func (s *Store) InsertRotationTemplate(_ context.Context, tpl schedule.RotationTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotationTemplates[tpl.OwnerUserID] = append(s.rotationTemplates[tpl.OwnerUserID], tpl)
	return nil
}

func (s *Store) ListRotationTemplates(_ context.Context, ownerUserID string) ([]schedule.RotationTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]schedule.RotationTemplate, len(s.rotationTemplates[ownerUserID]))
	copy(result, s.rotationTemplates[ownerUserID])
	return result, nil
}

// =============================================================================
// EXTRAS (schedule.ExtraStore)
// =============================================================================

func (s *Store) InsertExtra(_ context.Context, extra schedule.Extra) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extras[extra.ShiftID] = append(s.extras[extra.ShiftID], extra)
	return nil
}

func (s *Store) ListExtrasByShift(_ context.Context, shiftID schedule.ShiftID) ([]schedule.Extra, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]schedule.Extra, len(s.extras[shiftID]))
	copy(result, s.extras[shiftID])
	return result, nil
}
