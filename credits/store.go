/*
store.go - Persistence interfaces for balances and the transaction log

PURPOSE:
  Defines the interface between the ledger and the database. The single
  non-negotiable capability is TryDeduct: a conditional, atomic
  decrement. A read-then-write pair at this boundary is a correctness
  bug, not a simplification - two concurrent deductions would both read
  the same starting balance and both succeed.

ATOMICITY CONTRACT:
  TryDeduct must behave like
      UPDATE balances SET balance = balance - ?
       WHERE user_id = ? AND balance >= ?
  with the affected-row count deciding success, treating an absent
  balance as DefaultBalance. Implementations may use
  an equivalent per-user serialization point instead (the memory store
  does), but the observable outcome is the same: with balance 15 and two
  concurrent TryDeduct(10), exactly one returns ok.

APPEND-ONLY LOG:
  CreditTransaction rows are never updated or deleted. The log is
  best-effort telemetry: the balance mutation is the operation of
  record, and a failed log append must not roll it back.

IMPLEMENTATIONS:
  - store/sqlite: Production path, single conditional UPDATE
  - store/memory: In-memory for tests, mutex-serialized

SEE ALSO:
  - ledger.go: The only consumer of these interfaces
*/
package credits

import (
	"context"
	"time"
)

// CreditTransaction is an immutable append-only log entry. Amount is
// negative for deductions, positive for grants (compensation refunds).
type CreditTransaction struct {
	ID          string
	UserID      string
	Amount      int
	ActionType  ActionType
	ReferenceID string
	CreatedAt   time.Time
}

// BalanceStore persists per-user integer balances.
type BalanceStore interface {
	// Balance returns the stored balance and whether one exists.
	// Reading never creates a record.
	Balance(ctx context.Context, userID string) (balance int, exists bool, err error)

	// TryDeduct atomically decrements the balance by amount if and only if
	// the effective balance (stored, or DefaultBalance when absent) covers
	// it. Returns ok=false, without mutating anything, when it does not.
	TryDeduct(ctx context.Context, userID string, amount int) (ok bool, err error)

	// Grant atomically increments the balance by amount. Used only by the
	// opt-in compensation path.
	Grant(ctx context.Context, userID string, amount int) error
}

// TransactionLog appends credit transaction records. Append-only:
// no update, no delete.
type TransactionLog interface {
	AppendCreditTransaction(ctx context.Context, tx CreditTransaction) error
}
