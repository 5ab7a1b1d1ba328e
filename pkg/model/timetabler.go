package model

import "errors"

// ErrNoSubjects is returned, together with an empty timetable, when there is nothing to schedule.
// Callers should surface it as a warning.
var ErrNoSubjects = errors.New("no subjects provided for timetable generation")

type Timetabler interface {
	Build(
		subjects []Subject,
		overrides RuleOverrides,
	) (timetable []TimetableRow, err error)

	Verify(
		timetable []TimetableRow,
		subjects []Subject,
		overrides RuleOverrides,
	) bool
}
