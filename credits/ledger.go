/*
ledger.go - The atomic check-and-deduct balance ledger

PURPOSE:
  The Ledger is the gatekeeper for paid actions. Every "create a
  template", "create a shift", "add an extra" request deducts credits
  here BEFORE the persistence write it pays for. If the deduction fails,
  the write never happens.

CRITICAL INVARIANTS:
  1. Balance never goes negative through Deduct
  2. Check-and-deduct is one atomic region per user (no lost updates)
  3. The transaction-log append is telemetry: its failure is logged,
     never propagated, never rolled back

SIDE EFFECT ORDERING:
  The balance mutation is the operation of record. The log append runs
  after it and is fire-and-forget: a user is never blocked because the
  audit trail hiccupped.

KNOWN GAP:
  If the write a deduction paid for fails afterwards, the credits are
  gone. That matches the source behavior and is deliberate; see the
  orchestrator's CompensateOnWriteFailure option for the opt-in refund.

EXAMPLE:
  ledger := credits.NewLedger(store, store, logger)
  if err := ledger.ChargeForAction(ctx, userID, credits.ActionShiftTemplate, ""); err != nil {
      if errors.Is(err, credits.ErrInsufficientCredits) {
          // 402: show the upgrade prompt
      }
  }

SEE ALSO:
  - store.go: TryDeduct atomicity contract
  - costs.go: The static cost table
*/
package credits

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger exposes balance reads and atomic deductions.
type Ledger interface {
	// GetBalance returns the user's balance, or DefaultBalance when the
	// user has no stored balance yet. Never writes.
	GetBalance(ctx context.Context, userID string) (int, error)

	// Deduct atomically decrements the balance by amount (> 0) and appends
	// a transaction log entry. Fails with ErrInsufficientCredits when the
	// balance does not cover amount, leaving it unchanged.
	Deduct(ctx context.Context, userID string, amount int, action ActionType, referenceID string) error

	// ChargeForAction prices action via the cost table and deducts.
	ChargeForAction(ctx context.Context, userID string, action ActionType, referenceID string) error

	// Refund grants credits back. Only the opt-in compensation path calls
	// this; it is never part of the normal deduction flow.
	Refund(ctx context.Context, userID string, amount int, action ActionType, referenceID string) error
}

// DefaultLedger implements Ledger over a BalanceStore and TransactionLog.
type DefaultLedger struct {
	balances BalanceStore
	log      TransactionLog
	logger   *zap.Logger
}

// NewLedger creates a ledger. logger may be nil (telemetry failures are
// then dropped silently, which only makes sense in tests).
func NewLedger(balances BalanceStore, log TransactionLog, logger *zap.Logger) *DefaultLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultLedger{balances: balances, log: log, logger: logger}
}

func (l *DefaultLedger) GetBalance(ctx context.Context, userID string) (int, error) {
	balance, exists, err := l.balances.Balance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	if !exists {
		return DefaultBalance, nil
	}
	return balance, nil
}

func (l *DefaultLedger) Deduct(ctx context.Context, userID string, amount int, action ActionType, referenceID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ok, err := l.balances.TryDeduct(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to deduct credits: %w", err)
	}
	if !ok {
		available, getErr := l.GetBalance(ctx, userID)
		if getErr != nil {
			available = -1 // unknown, storage failed after the deduct attempt
		}
		return &InsufficientCreditsError{
			UserID:    userID,
			Available: available,
			Required:  amount,
			Action:    action,
		}
	}

	l.appendLog(ctx, CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      -amount,
		ActionType:  action,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

func (l *DefaultLedger) ChargeForAction(ctx context.Context, userID string, action ActionType, referenceID string) error {
	cost, err := CostOf(action)
	if err != nil {
		return err
	}
	return l.Deduct(ctx, userID, cost, action, referenceID)
}

func (l *DefaultLedger) Refund(ctx context.Context, userID string, amount int, action ActionType, referenceID string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := l.balances.Grant(ctx, userID, amount); err != nil {
		return fmt.Errorf("failed to refund credits: %w", err)
	}
	l.appendLog(ctx, CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		ActionType:  action,
		ReferenceID: referenceID,
		CreatedAt:   time.Now().UTC(),
	})
	return nil
}

// appendLog writes the audit entry. Best-effort: the balance mutation has
// already committed, so a log failure is recorded and swallowed.
func (l *DefaultLedger) appendLog(ctx context.Context, tx CreditTransaction) {
	if err := l.log.AppendCreditTransaction(ctx, tx); err != nil {
		l.logger.Warn("credit transaction log append failed",
			zap.String("user_id", tx.UserID),
			zap.Int("amount", tx.Amount),
			zap.String("action", string(tx.ActionType)),
			zap.Error(err),
		)
	}
}
