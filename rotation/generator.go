/*
generator.go - Cycle-to-entries materialization

PURPOSE:
  Generate expands a (start date, cycle, horizon) triple into exactly
  horizonDays dated entries. This is the core algorithm behind "apply a
  rotation to my calendar": the orchestrator calls it after the credit
  check and persists whatever it returns.

CONTRACT:
  - Exactly horizonDays entries, one per consecutive calendar day
  - The first cycle.WorkDays days are WORK, the next cycle.RestDays are
    REST, then the pattern repeats
  - horizonDays == 0 is valid and yields an empty slice
  - Pure and deterministic; no state survives the call

SEE ALSO:
  - types.go: Date, Cycle, Entry
  - schedule/orchestrator.go: The only production caller
*/
package rotation

// Generate materializes horizonDays entries starting at start, alternating
// WORK and REST runs per cycle. Day indices are 1-based within the output.
//
// Returns an error unwrapping to ErrInvalidArgument when cycle values are
// not positive or horizonDays is negative.
func Generate(start Date, cycle Cycle, horizonDays int) ([]Entry, error) {
	if err := validate(cycle, horizonDays); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, horizonDays)
	cycleLen := cycle.Length()

	for i := 0; i < horizonDays; i++ {
		shiftType := ShiftRest
		if i%cycleLen < cycle.WorkDays {
			shiftType = ShiftWork
		}
		entries = append(entries, Entry{
			DayIndex: i + 1,
			Date:     start.AddDays(i),
			Type:     shiftType,
		})
	}

	return entries, nil
}

func validate(cycle Cycle, horizonDays int) error {
	if cycle.WorkDays <= 0 {
		return &InvalidArgumentError{Field: "workDays", Value: cycle.WorkDays, Reason: "must be positive"}
	}
	if cycle.RestDays <= 0 {
		return &InvalidArgumentError{Field: "restDays", Value: cycle.RestDays, Reason: "must be positive"}
	}
	if horizonDays < 0 {
		return &InvalidArgumentError{Field: "horizonDays", Value: horizonDays, Reason: "must not be negative"}
	}
	return nil
}
