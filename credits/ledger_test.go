package credits_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supershift/rotation-engine/credits"
	"github.com/supershift/rotation-engine/store/memory"
)

// =============================================================================
// BALANCE READ TESTS
// =============================================================================

func TestGetBalance_UnknownUser_DefaultWithoutWrite(t *testing.T) {
	// GIVEN: A user with no stored balance
	store := memory.New()
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	// WHEN: Reading the balance twice
	first, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	second, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)

	// THEN: Both reads see the free-tier default and nothing was stored
	assert.Equal(t, credits.DefaultBalance, first)
	assert.Equal(t, credits.DefaultBalance, second)

	_, exists, err := store.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, exists, "a pure read must not materialize a balance row")
}

func TestGetBalance_StoredBalance(t *testing.T) {
	// GIVEN: A user with an explicit balance
	store := memory.New()
	store.SetBalance("user-1", 42)
	ledger := credits.NewLedger(store, store, nil)

	// WHEN: Reading it
	balance, err := ledger.GetBalance(context.Background(), "user-1")

	// THEN: The stored value wins over the default
	require.NoError(t, err)
	assert.Equal(t, 42, balance)
}

// =============================================================================
// DEDUCTION TESTS
// =============================================================================

func TestDeduct_SufficientBalance(t *testing.T) {
	// GIVEN: A user with 50 credits
	store := memory.New()
	store.SetBalance("user-1", 50)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	// WHEN: Deducting 20
	err := ledger.Deduct(ctx, "user-1", 20, credits.ActionShiftTemplate, "tpl-1")

	// THEN: Balance drops to 30 and a negative log entry exists
	require.NoError(t, err)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 30, balance)

	txs, err := store.ListCreditTransactions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, -20, txs[0].Amount)
	assert.Equal(t, credits.ActionShiftTemplate, txs[0].ActionType)
	assert.Equal(t, "tpl-1", txs[0].ReferenceID)
	assert.NotEmpty(t, txs[0].ID)
}

func TestDeduct_InsufficientBalance_Unchanged(t *testing.T) {
	// GIVEN: Balance 15, cost 20
	store := memory.New()
	store.SetBalance("user-1", 15)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	// WHEN: Attempting the deduction
	err := ledger.Deduct(ctx, "user-1", 20, credits.ActionShiftTemplate, "")

	// THEN: ErrInsufficientCredits with details, balance untouched, no log entry
	require.Error(t, err)
	assert.True(t, errors.Is(err, credits.ErrInsufficientCredits))

	var insufficientErr *credits.InsufficientCreditsError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, 15, insufficientErr.Available)
	assert.Equal(t, 20, insufficientErr.Required)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 15, balance)

	txs, err := store.ListCreditTransactions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeduct_ExactBalance_ReachesZero(t *testing.T) {
	// GIVEN: Balance exactly equal to the amount
	store := memory.New()
	store.SetBalance("user-1", 20)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	// WHEN: Deducting the full balance
	err := ledger.Deduct(ctx, "user-1", 20, credits.ActionRotationTemplate, "")

	// THEN: Succeeds, balance is zero, next deduction fails
	require.NoError(t, err)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	err = ledger.Deduct(ctx, "user-1", 1, credits.ActionExtra, "")
	assert.True(t, errors.Is(err, credits.ErrInsufficientCredits))
}

func TestDeduct_UnknownUser_StartsFromDefault(t *testing.T) {
	// GIVEN: A user who never had a balance row
	store := memory.New()
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	// WHEN: Deducting 10
	err := ledger.Deduct(ctx, "fresh-user", 10, credits.ActionSingleShift, "")

	// THEN: The free-tier default applied first, leaving 90
	require.NoError(t, err)
	balance, err := ledger.GetBalance(ctx, "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, credits.DefaultBalance-10, balance)
}

func TestDeduct_InvalidAmount(t *testing.T) {
	store := memory.New()
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	assert.ErrorIs(t, ledger.Deduct(ctx, "user-1", 0, credits.ActionExtra, ""), credits.ErrInvalidAmount)
	assert.ErrorIs(t, ledger.Deduct(ctx, "user-1", -5, credits.ActionExtra, ""), credits.ErrInvalidAmount)
}

// =============================================================================
// CONCURRENCY TESTS
// =============================================================================

func TestDeduct_Concurrent_NoDoubleSpend(t *testing.T) {
	// GIVEN: Balance 15 and two concurrent deductions of 10 each
	store := memory.New()
	store.SetBalance("user-1", 15)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = ledger.Deduct(ctx, "user-1", 10, credits.ActionSingleShift, "")
		}(i)
	}
	wg.Wait()

	// THEN: Exactly one succeeds, exactly one fails, final balance is 5
	var succeeded, failed int
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, credits.ErrInsufficientCredits))
			failed++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
}

func TestDeduct_Concurrent_NeverNegative(t *testing.T) {
	// GIVEN: Balance 100 and 20 workers each trying to deduct 10
	store := memory.New()
	store.SetBalance("user-1", 100)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ledger.Deduct(ctx, "user-1", 10, credits.ActionSingleShift, "")
		}()
	}
	wg.Wait()

	// THEN: Exactly 10 deductions could land; the balance stops at zero
	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

// =============================================================================
// COST TABLE TESTS
// =============================================================================

func TestChargeForAction_CostTable(t *testing.T) {
	tests := []struct {
		action credits.ActionType
		cost   int
	}{
		{credits.ActionShiftTemplate, 20},
		{credits.ActionRotationTemplate, 20},
		{credits.ActionSingleShift, 10},
		{credits.ActionExtra, 10},
	}

	for _, tc := range tests {
		t.Run(string(tc.action), func(t *testing.T) {
			// GIVEN: A fresh user on the free-tier default
			store := memory.New()
			ledger := credits.NewLedger(store, store, nil)
			ctx := context.Background()

			// WHEN: Charging for the action
			require.NoError(t, ledger.ChargeForAction(ctx, "user-1", tc.action, ""))

			// THEN: Exactly the table cost was deducted
			balance, err := ledger.GetBalance(ctx, "user-1")
			require.NoError(t, err)
			assert.Equal(t, credits.DefaultBalance-tc.cost, balance)
		})
	}
}

func TestChargeForAction_UnknownAction(t *testing.T) {
	// GIVEN: An action with no cost table entry
	store := memory.New()
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()

	// WHEN: Charging for it
	err := ledger.ChargeForAction(ctx, "user-1", credits.ActionType("teleport"), "")

	// THEN: ErrUnknownAction, and nothing was deducted
	assert.True(t, errors.Is(err, credits.ErrUnknownAction))

	balance, getErr := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, getErr)
	assert.Equal(t, credits.DefaultBalance, balance)
}

// =============================================================================
// REFUND TESTS
// =============================================================================

func TestRefund_RestoresBalance(t *testing.T) {
	// GIVEN: A user who paid for an action
	store := memory.New()
	store.SetBalance("user-1", 50)
	ledger := credits.NewLedger(store, store, nil)
	ctx := context.Background()
	require.NoError(t, ledger.Deduct(ctx, "user-1", 20, credits.ActionShiftTemplate, "tpl-1"))

	// WHEN: The charge is refunded
	require.NoError(t, ledger.Refund(ctx, "user-1", 20, credits.ActionShiftTemplate, "tpl-1"))

	// THEN: Balance is back and the log shows both movements
	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 50, balance)

	txs, err := store.ListCreditTransactions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, -20, txs[0].Amount)
	assert.Equal(t, 20, txs[1].Amount)
}

// =============================================================================
// TELEMETRY FAILURE TESTS
// =============================================================================

// failingLog always rejects appends, simulating an unreachable audit store.
type failingLog struct{}

func (failingLog) AppendCreditTransaction(context.Context, credits.CreditTransaction) error {
	return errors.New("log store down")
}

func TestDeduct_LogFailure_DoesNotPropagate(t *testing.T) {
	// GIVEN: A ledger whose transaction log always fails
	store := memory.New()
	store.SetBalance("user-1", 50)
	ledger := credits.NewLedger(store, failingLog{}, nil)
	ctx := context.Background()

	// WHEN: Deducting
	err := ledger.Deduct(ctx, "user-1", 10, credits.ActionSingleShift, "")

	// THEN: The deduction still succeeds; the log append is best-effort
	require.NoError(t, err)

	balance, err := ledger.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 40, balance)
}
