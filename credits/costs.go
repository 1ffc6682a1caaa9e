/*
Package credits provides the credit-metering ledger that gates paid actions.

PURPOSE:
  Every paid operation in the system (creating templates, single shifts,
  monetary extras) passes through this package before its persistence write
  happens. The ledger enforces one invariant above all others: a balance
  can never be driven negative, even under concurrent requests, because
  double-spending corrupts billing.

KEY CONCEPTS IN THIS FILE (costs.go):
  - ActionType: The kinds of paid actions
  - Cost table: Process-wide immutable action -> cost mapping
  - DefaultBalance: The free-tier grant applied when no balance is stored

DESIGN PRINCIPLES:
  1. Static configuration: the cost table is loaded once and never mutated
  2. Integer credits: no fractional credits exist anywhere in the system
  3. Unknown actions are rejected, not priced at zero

SEE ALSO:
  - ledger.go: GetBalance / Deduct / ChargeForAction
  - store.go: Persistence interfaces
*/
package credits

// ActionType identifies a paid action kind for pricing and audit.
type ActionType string

const (
	ActionShiftTemplate    ActionType = "shift_template"
	ActionRotationTemplate ActionType = "rotation_template"
	ActionSingleShift      ActionType = "single_shift"
	ActionExtra            ActionType = "extra"
)

// DefaultBalance is the free-tier grant. A user with no stored balance reads
// as this value; the row is only materialized on first deduction.
const DefaultBalance = 100

// costs maps each paid action to its credit price. Loaded once at process
// start, never mutated.
var costs = map[ActionType]int{
	ActionShiftTemplate:    20,
	ActionRotationTemplate: 20,
	ActionSingleShift:      10,
	ActionExtra:            10,
}

// CostOf returns the credit price of an action.
// Returns ErrUnknownAction for actions not in the table.
func CostOf(action ActionType) (int, error) {
	cost, ok := costs[action]
	if !ok {
		return 0, &UnknownActionError{Action: action}
	}
	return cost, nil
}
