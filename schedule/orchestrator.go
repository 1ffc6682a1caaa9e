/*
orchestrator.go - Rotation application and priced creations

PURPOSE:
  The Orchestrator is where the generator, the credit ledger and the
  stores meet. It owns two flows:

  1. ApplyRotation: resolve calendar -> generate -> replace (clear +
     bulk insert) -> read back. Full replace, strictly sequential, with
     no parallel fan-out inside a request.

  2. Priced creations (shift template, rotation template, single shift,
     extra): deduct credits FIRST, write second. A failed deduction
     means the write never happens.

NO AUTOMATIC REFUND:
  If the write fails after a successful deduction, the credits stay
  spent. That is the source behavior, kept deliberately. Setting
  CompensateOnWriteFailure opts into a refund grant on write failure;
  it is an explicit extension, never the default.

PARTIAL APPLY WINDOW:
  Stores implementing ShiftReplacer get an atomic clear+write and
  FullyReplaced=true. Otherwise the delete and insert are separate
  calls: a failed insert leaves the calendar empty and surfaces as
  PartialRotationApply so the caller knows to retry generation.

SEE ALSO:
  - rotation/generator.go: The pure engine invoked in step 3
  - credits/ledger.go: Deduction semantics
  - resolution.go: Step 1
*/
package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/supershift/rotation-engine/credits"
	"github.com/supershift/rotation-engine/rotation"
)

// Orchestrator wires the generator and ledger to persistence.
type Orchestrator struct {
	Resolver  *CalendarResolver
	Shifts    ShiftStore
	Templates TemplateStore
	Extras    ExtraStore
	Ledger    credits.Ledger

	// CompensateOnWriteFailure refunds a successful deduction when the
	// write it paid for fails. Opt-in extension; off by default to match
	// the source behavior.
	CompensateOnWriteFailure bool

	Logger *zap.Logger
}

func NewOrchestrator(resolver *CalendarResolver, shifts ShiftStore, templates TemplateStore, extras ExtraStore, ledger credits.Ledger, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		Resolver:  resolver,
		Shifts:    shifts,
		Templates: templates,
		Extras:    extras,
		Ledger:    ledger,
		Logger:    logger,
	}
}

// =============================================================================
// ROTATION APPLICATION (full replace)
// =============================================================================

// ApplyRotation replaces the user's calendar content with a freshly
// generated rotation. Destructive: every existing shift in the calendar is
// deleted, manually edited ones included.
//
// Steps run strictly in order: resolve -> generate -> replace (clear then
// insert) -> read back. Generation runs before anything is cleared, so an
// invalid cycle or horizon fails the request with the existing shifts
// untouched. Generator errors propagate unswallowed.
func (o *Orchestrator) ApplyRotation(ctx context.Context, userID string, start rotation.Date, cycle rotation.Cycle, horizonDays int) (*ApplyResult, error) {
	calendarID, err := o.Resolver.ResolveOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, err := rotation.Generate(start, cycle, horizonDays)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	records := make([]ShiftRecord, len(entries))
	for i, e := range entries {
		records[i] = ShiftRecord{
			ID:         ShiftID(uuid.NewString()),
			CalendarID: calendarID,
			Type:       e.Type,
			Date:       e.Date,
			CreatedAt:  now,
		}
	}

	fullyReplaced := true
	if replacer, ok := o.Shifts.(ShiftReplacer); ok {
		if err := replacer.ReplaceShifts(ctx, calendarID, records); err != nil {
			return nil, wrapStorage("shift replace", err)
		}
	} else {
		fullyReplaced = false
		if err := o.Shifts.DeleteShiftsByCalendar(ctx, calendarID); err != nil {
			return nil, wrapStorage("shift delete", err)
		}
		if err := o.Shifts.BulkInsertShifts(ctx, records); err != nil {
			// The delete already landed: the calendar is empty now.
			return nil, &PartialApplyError{CalendarID: calendarID, Cause: err}
		}
	}

	persisted, err := o.Shifts.ListShifts(ctx, calendarID)
	if err != nil {
		return nil, wrapStorage("shift read-back", err)
	}

	return &ApplyResult{
		CalendarID:    calendarID,
		Shifts:        persisted,
		FullyReplaced: fullyReplaced,
	}, nil
}

// =============================================================================
// PRICED CREATIONS (deduct first, write second)
// =============================================================================

// CreateShiftTemplate charges the shift-template cost, then persists the
// preset. The write is skipped entirely when the charge fails.
func (o *Orchestrator) CreateShiftTemplate(ctx context.Context, userID string, tpl ShiftTemplate) (*ShiftTemplate, error) {
	tpl.ID = uuid.NewString()
	tpl.OwnerUserID = userID
	tpl.CreatedAt = time.Now().UTC()

	if err := o.Ledger.ChargeForAction(ctx, userID, credits.ActionShiftTemplate, tpl.ID); err != nil {
		return nil, err
	}
	if err := o.Templates.InsertShiftTemplate(ctx, tpl); err != nil {
		return nil, o.afterFailedPaidWrite(ctx, userID, credits.ActionShiftTemplate, tpl.ID, wrapStorage("shift template insert", err))
	}
	return &tpl, nil
}

// CreateRotationTemplate charges the rotation-template cost, then persists
// the preset.
func (o *Orchestrator) CreateRotationTemplate(ctx context.Context, userID string, tpl RotationTemplate) (*RotationTemplate, error) {
	tpl.ID = uuid.NewString()
	tpl.OwnerUserID = userID
	tpl.CreatedAt = time.Now().UTC()

	if err := o.Ledger.ChargeForAction(ctx, userID, credits.ActionRotationTemplate, tpl.ID); err != nil {
		return nil, err
	}
	if err := o.Templates.InsertRotationTemplate(ctx, tpl); err != nil {
		return nil, o.afterFailedPaidWrite(ctx, userID, credits.ActionRotationTemplate, tpl.ID, wrapStorage("rotation template insert", err))
	}
	return &tpl, nil
}

// CreateShift charges the single-shift cost, then inserts one shift into
// the user's calendar (resolving it first).
func (o *Orchestrator) CreateShift(ctx context.Context, userID string, shift ShiftRecord) (*ShiftRecord, error) {
	calendarID, err := o.Resolver.ResolveOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	shift.ID = ShiftID(uuid.NewString())
	shift.CalendarID = calendarID
	shift.CreatedAt = time.Now().UTC()

	if err := o.Ledger.ChargeForAction(ctx, userID, credits.ActionSingleShift, string(shift.ID)); err != nil {
		return nil, err
	}
	if err := o.Shifts.InsertShift(ctx, shift); err != nil {
		return nil, o.afterFailedPaidWrite(ctx, userID, credits.ActionSingleShift, string(shift.ID), wrapStorage("shift insert", err))
	}
	return &shift, nil
}

// AddExtra charges the extra cost, then attaches a monetary adjustment to
// an existing shift. The shift must exist before anything is charged.
func (o *Orchestrator) AddExtra(ctx context.Context, userID string, shiftID ShiftID, name string, amount decimal.Decimal) (*Extra, error) {
	shift, err := o.Shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, wrapStorage("shift lookup", err)
	}
	if shift == nil {
		return nil, ErrShiftNotFound
	}

	extra := Extra{
		ID:        uuid.NewString(),
		ShiftID:   shiftID,
		Name:      name,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := o.Ledger.ChargeForAction(ctx, userID, credits.ActionExtra, extra.ID); err != nil {
		return nil, err
	}
	if err := o.Extras.InsertExtra(ctx, extra); err != nil {
		return nil, o.afterFailedPaidWrite(ctx, userID, credits.ActionExtra, extra.ID, wrapStorage("extra insert", err))
	}
	return &extra, nil
}

// afterFailedPaidWrite handles a write failure that happened after a
// successful deduction. Default: the credits stay spent (documented gap).
// With CompensateOnWriteFailure set, a refund grant is attempted; a failed
// refund is logged and the original write error still returned.
func (o *Orchestrator) afterFailedPaidWrite(ctx context.Context, userID string, action credits.ActionType, referenceID string, writeErr error) error {
	if !o.CompensateOnWriteFailure {
		o.Logger.Warn("paid write failed after deduction, credits not refunded",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(writeErr),
		)
		return writeErr
	}

	cost, costErr := credits.CostOf(action)
	if costErr != nil {
		return writeErr
	}
	if refundErr := o.Ledger.Refund(ctx, userID, cost, action, referenceID); refundErr != nil {
		o.Logger.Error("compensation refund failed",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(refundErr),
		)
	}
	return writeErr
}
