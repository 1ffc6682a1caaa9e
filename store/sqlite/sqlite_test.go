package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supershift/rotation-engine/credits"
	"github.com/supershift/rotation-engine/rotation"
	"github.com/supershift/rotation-engine/schedule"
	"github.com/supershift/rotation-engine/store/sqlite"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *sqlite.Store, id string) {
	t.Helper()
	require.NoError(t, store.SaveUser(context.Background(), schedule.UserProfile{
		ID:       id,
		Name:     "Ada",
		Email:    "ada@example.com",
		Timezone: "Europe/Berlin",
	}))
}

// =============================================================================
// BALANCE TESTS - the conditional UPDATE
// =============================================================================

func TestBalance_NoRowYet_ReadsAsAbsent(t *testing.T) {
	// GIVEN: A freshly saved user (no balance row materialized)
	store := newTestStore(t)
	seedUser(t, store, "user-1")
	ctx := context.Background()

	// WHEN: Reading the balance
	_, exists, err := store.Balance(ctx, "user-1")

	// THEN: No balance exists yet; the default is the ledger's concern
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTryDeduct_FirstDeduction_AppliesDefault(t *testing.T) {
	// GIVEN: A user with no balance row yet
	store := newTestStore(t)
	seedUser(t, store, "user-1")
	ctx := context.Background()

	// WHEN: Deducting 30
	ok, err := store.TryDeduct(ctx, "user-1", 30)

	// THEN: The free-tier default was applied first, materializing 70
	require.NoError(t, err)
	assert.True(t, ok)

	balance, exists, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, credits.DefaultBalance-30, balance)
}

func TestTryDeduct_InsufficientBalance_NoMutation(t *testing.T) {
	// GIVEN: A user with 15 credits
	store := newTestStore(t)
	seedUser(t, store, "user-1")
	ctx := context.Background()
	ok, err := store.TryDeduct(ctx, "user-1", credits.DefaultBalance-15)
	require.NoError(t, err)
	require.True(t, ok)

	// WHEN: Deducting 20
	ok, err = store.TryDeduct(ctx, "user-1", 20)

	// THEN: The guard in the WHERE clause rejects it; the balance is untouched
	require.NoError(t, err)
	assert.False(t, ok)

	balance, exists, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 15, balance)
}

func TestTryDeduct_ExactBalance(t *testing.T) {
	// GIVEN: A user with exactly the amount to deduct
	store := newTestStore(t)
	seedUser(t, store, "user-1")
	ctx := context.Background()

	// WHEN: Deducting the full default balance
	ok, err := store.TryDeduct(ctx, "user-1", credits.DefaultBalance)

	// THEN: Succeeds down to zero; the next credit fails
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryDeduct(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryDeduct_UserWithoutProfile_StartsFromDefault(t *testing.T) {
	// GIVEN: A user id the users table has never seen
	store := newTestStore(t)
	ctx := context.Background()

	// WHEN: Deducting 10
	ok, err := store.TryDeduct(ctx, "ghost", 10)

	// THEN: The free-tier default covers it, same as the memory store
	require.NoError(t, err)
	assert.True(t, ok)

	balance, exists, err := store.Balance(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, credits.DefaultBalance-10, balance)
}

func TestTryDeduct_OversizedFirstDeduction_NoMaterialization(t *testing.T) {
	// GIVEN: No balance row and an amount above the free-tier default
	store := newTestStore(t)
	ctx := context.Background()

	// WHEN: Deducting more than the default grant
	ok, err := store.TryDeduct(ctx, "ghost", credits.DefaultBalance+1)

	// THEN: Rejected, and no row was seeded
	require.NoError(t, err)
	assert.False(t, ok)

	_, exists, err := store.Balance(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLedgerOverSQLite_DefaultBalanceDeductible(t *testing.T) {
	// GIVEN: A ledger backed by the SQLite store and an unseen user
	store := newTestStore(t)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	balance, err := ledger.GetBalance(ctx, "ghost")
	require.NoError(t, err)
	require.Equal(t, credits.DefaultBalance, balance)

	// WHEN: Deducting against the advertised balance
	err = ledger.Deduct(ctx, "ghost", 10, credits.ActionSingleShift, "")

	// THEN: The balance GetBalance reported is actually spendable
	require.NoError(t, err)

	balance, err = ledger.GetBalance(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, credits.DefaultBalance-10, balance)
}

func TestTryDeduct_Concurrent_SingleWinner(t *testing.T) {
	// GIVEN: Balance 15 and two concurrent deductions of 10
	store := newTestStore(t)
	seedUser(t, store, "user-1")
	ctx := context.Background()
	ok, err := store.TryDeduct(ctx, "user-1", credits.DefaultBalance-15)
	require.NoError(t, err)
	require.True(t, ok)

	var wg sync.WaitGroup
	outcomes := make([]bool, 2)
	deductErrs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			outcomes[slot], deductErrs[slot] = store.TryDeduct(ctx, "user-1", 10)
		}(i)
	}
	wg.Wait()

	// THEN: Exactly one deduction landed; final balance is 5
	require.NoError(t, deductErrs[0])
	require.NoError(t, deductErrs[1])
	assert.NotEqual(t, outcomes[0], outcomes[1], "exactly one deduction must win")

	balance, _, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestGrant_UserWithoutRow_StartsFromDefault(t *testing.T) {
	// GIVEN: No balance row yet
	store := newTestStore(t)
	ctx := context.Background()

	// WHEN: Granting 10
	require.NoError(t, store.Grant(ctx, "ghost", 10))

	// THEN: The grant lands on top of the free-tier default
	balance, exists, err := store.Balance(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, credits.DefaultBalance+10, balance)
}

// =============================================================================
// CALENDAR TESTS - owner uniqueness
// =============================================================================

func TestInsertCalendar_SecondForSameOwner_Conflicts(t *testing.T) {
	// GIVEN: A calendar already owned by the user
	store := newTestStore(t)
	ctx := context.Background()
	first := schedule.Calendar{
		ID:          "cal-1",
		OwnerUserID: "user-1",
		Name:        "Ada's shifts",
		Timezone:    "Europe/Berlin",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.InsertCalendar(ctx, first))

	// WHEN: Inserting a second calendar for the same owner
	second := first
	second.ID = "cal-2"
	err := store.InsertCalendar(ctx, second)

	// THEN: The unique index rejects it as ErrCalendarExists
	require.Error(t, err)
	assert.True(t, errors.Is(err, schedule.ErrCalendarExists))

	// And the first calendar is still the one on record
	found, err := store.FindCalendarByOwner(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, schedule.CalendarID("cal-1"), found.ID)
}

func TestInsertCalendar_DifferentOwners_NoConflict(t *testing.T) {
	// GIVEN: Calendars for two different owners
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.InsertCalendar(ctx, schedule.Calendar{
		ID: "cal-1", OwnerUserID: "user-1", Name: "A", Timezone: "UTC", CreatedAt: now,
	}))

	// WHEN/THEN: The second owner's insert succeeds
	require.NoError(t, store.InsertCalendar(ctx, schedule.Calendar{
		ID: "cal-2", OwnerUserID: "user-2", Name: "B", Timezone: "UTC", CreatedAt: now,
	}))
}

func TestFindCalendarByOwner_None(t *testing.T) {
	store := newTestStore(t)
	found, err := store.FindCalendarByOwner(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, found)
}

// =============================================================================
// SHIFT TESTS - round trip and atomic replace
// =============================================================================

func TestShift_RoundTrip(t *testing.T) {
	// GIVEN: A shift with every optional field set
	store := newTestStore(t)
	ctx := context.Background()
	shift := schedule.ShiftRecord{
		ID:         "shift-1",
		CalendarID: "cal-1",
		Type:       rotation.ShiftNight,
		Date:       rotation.NewDate(2024, time.January, 15),
		StartTime:  "22:00",
		EndTime:    "06:00",
		Note:       "covering for Bob",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.InsertShift(ctx, shift))

	// WHEN: Reading it back
	got, err := store.GetShift(ctx, "shift-1")

	// THEN: Every field survives the trip
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rotation.ShiftNight, got.Type)
	assert.Equal(t, "2024-01-15", got.Date.String())
	assert.Equal(t, "22:00", got.StartTime)
	assert.Equal(t, "06:00", got.EndTime)
	assert.Equal(t, "covering for Bob", got.Note)
}

func TestListShifts_OrderedByDate(t *testing.T) {
	// GIVEN: Shifts inserted out of date order
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	dates := []rotation.Date{
		rotation.NewDate(2024, time.January, 20),
		rotation.NewDate(2024, time.January, 5),
		rotation.NewDate(2024, time.January, 12),
	}
	for i, d := range dates {
		require.NoError(t, store.InsertShift(ctx, schedule.ShiftRecord{
			ID:         schedule.ShiftID(string(rune('a'+i)) + "-shift"),
			CalendarID: "cal-1",
			Type:       rotation.ShiftWork,
			Date:       d,
			CreatedAt:  now,
		}))
	}

	// WHEN: Listing
	shifts, err := store.ListShifts(ctx, "cal-1")

	// THEN: Ascending by date
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	assert.Equal(t, "2024-01-05", shifts[0].Date.String())
	assert.Equal(t, "2024-01-12", shifts[1].Date.String())
	assert.Equal(t, "2024-01-20", shifts[2].Date.String())
}

func TestReplaceShifts_ClearsOldSetAndExtras(t *testing.T) {
	// GIVEN: An existing shift with an attached extra
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.InsertShift(ctx, schedule.ShiftRecord{
		ID: "old-shift", CalendarID: "cal-1", Type: rotation.ShiftWork,
		Date: rotation.NewDate(2024, time.January, 1), CreatedAt: now,
	}))
	require.NoError(t, store.InsertExtra(ctx, schedule.Extra{
		ID: "extra-1", ShiftID: "old-shift", Name: "premium",
		Amount: decimal.NewFromInt(25), CreatedAt: now,
	}))

	// WHEN: Replacing the calendar's shifts
	replacement := []schedule.ShiftRecord{
		{ID: "new-1", CalendarID: "cal-1", Type: rotation.ShiftRest,
			Date: rotation.NewDate(2024, time.February, 1), CreatedAt: now},
		{ID: "new-2", CalendarID: "cal-1", Type: rotation.ShiftWork,
			Date: rotation.NewDate(2024, time.February, 2), CreatedAt: now},
	}
	require.NoError(t, store.ReplaceShifts(ctx, "cal-1", replacement))

	// THEN: Only the new shifts remain and the orphaned extra is gone
	shifts, err := store.ListShifts(ctx, "cal-1")
	require.NoError(t, err)
	assert.Len(t, shifts, 2)

	gone, err := store.GetShift(ctx, "old-shift")
	require.NoError(t, err)
	assert.Nil(t, gone)

	extras, err := store.ListExtrasByShift(ctx, "old-shift")
	require.NoError(t, err)
	assert.Empty(t, extras)
}

// =============================================================================
// TEMPLATE TESTS
// =============================================================================

func TestRotationTemplate_AssignmentsRoundTrip(t *testing.T) {
	// GIVEN: A rotation template with per-day assignments
	store := newTestStore(t)
	ctx := context.Background()
	tpl := schedule.RotationTemplate{
		ID:          "tpl-1",
		OwnerUserID: "user-1",
		Title:       "4 on 2 off",
		DayCount:    6,
		Assignments: []rotation.ShiftType{
			rotation.ShiftWork, rotation.ShiftWork, rotation.ShiftWork,
			rotation.ShiftWork, rotation.ShiftRest, rotation.ShiftRest,
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertRotationTemplate(ctx, tpl))

	// WHEN: Listing
	templates, err := store.ListRotationTemplates(ctx, "user-1")

	// THEN: The JSON-encoded assignments come back intact
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, 6, templates[0].DayCount)
	assert.Equal(t, tpl.Assignments, templates[0].Assignments)
}

// =============================================================================
// EXTRA TESTS - decimal exactness
// =============================================================================

func TestExtra_DecimalAmountExact(t *testing.T) {
	// GIVEN: An extra with a fractional amount that floats cannot hold
	store := newTestStore(t)
	ctx := context.Background()
	amount := decimal.RequireFromString("0.10")
	require.NoError(t, store.InsertExtra(ctx, schedule.Extra{
		ID: "extra-1", ShiftID: "shift-1", Name: "tip",
		Amount: amount, CreatedAt: time.Now().UTC(),
	}))

	// WHEN: Reading it back
	extras, err := store.ListExtrasByShift(ctx, "shift-1")

	// THEN: Exact decimal equality, no float drift
	require.NoError(t, err)
	require.Len(t, extras, 1)
	assert.True(t, extras[0].Amount.Equal(amount))
}

// =============================================================================
// CREDIT TRANSACTION LOG TESTS
// =============================================================================

func TestCreditTransactions_AppendAndList(t *testing.T) {
	// GIVEN: Two appended transactions
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendCreditTransaction(ctx, credits.CreditTransaction{
		ID: "tx-1", UserID: "user-1", Amount: -20,
		ActionType: credits.ActionShiftTemplate, ReferenceID: "tpl-1", CreatedAt: base,
	}))
	require.NoError(t, store.AppendCreditTransaction(ctx, credits.CreditTransaction{
		ID: "tx-2", UserID: "user-1", Amount: -10,
		ActionType: credits.ActionSingleShift, CreatedAt: base.Add(time.Minute),
	}))

	// WHEN: Listing the user's history
	txs, err := store.ListCreditTransactions(ctx, "user-1")

	// THEN: Newest first, amounts and actions intact
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "tx-2", txs[0].ID)
	assert.Equal(t, -10, txs[0].Amount)
	assert.Equal(t, "tx-1", txs[1].ID)
	assert.Equal(t, credits.ActionShiftTemplate, txs[1].ActionType)
}

// =============================================================================
// USER DIRECTORY TESTS
// =============================================================================

func TestSaveUser_UpsertKeepsBalance(t *testing.T) {
	// GIVEN: A user who has spent credits
	store := newTestStore(t)
	seedUser(t, store, "user-1")
	ctx := context.Background()
	ok, err := store.TryDeduct(ctx, "user-1", 30)
	require.NoError(t, err)
	require.True(t, ok)

	// WHEN: The profile is saved again (rename)
	require.NoError(t, store.SaveUser(ctx, schedule.UserProfile{
		ID: "user-1", Name: "Ada L.", Timezone: "Europe/Berlin",
	}))

	// THEN: The stored balance was not clobbered by the upsert
	balance, exists, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, credits.DefaultBalance-30, balance)

	profile, err := store.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Ada L.", profile.Name)
}
