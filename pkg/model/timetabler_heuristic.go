package model

import (
	"slices"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type heuristicTimetabler struct {
	base   Rules
	logger *zap.Logger
}

// NewHeuristicTimetabler returns a greedy frequency-balancing timetabler.
// Overrides given to Build are applied on top of DefaultRules.
func NewHeuristicTimetabler(logger *zap.Logger) Timetabler {
	return NewHeuristicTimetablerWithRules(DefaultRules(), logger)
}

// NewHeuristicTimetablerWithRules is like NewHeuristicTimetabler but merges overrides onto base
func NewHeuristicTimetablerWithRules(base Rules, logger *zap.Logger) Timetabler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &heuristicTimetabler{
		base:   base,
		logger: logger,
	}
}

func (timetabler *heuristicTimetabler) Build(subjects []Subject, overrides RuleOverrides) ([]TimetableRow, error) {
	if len(subjects) == 0 {
		timetabler.logger.Warn(ErrNoSubjects.Error())
		return []TimetableRow{}, ErrNoSubjects
	}

	//** Resolve rules
	rules := overrides.Apply(timetabler.base)

	//** Initialize frequency counter
	frequency := make(map[string]int, len(subjects))
	for _, subject := range subjects {
		frequency[subject.Label()] = 0
	}

	//** Sort subjects by priority (lower semester first)
	sortedSubjects := sortByPriority(subjects)

	//** Fill the grid slot by slot
	usedPerDay := make(map[string]map[string]bool, len(rules.Days))
	classesPerDay := make(map[string]int, len(rules.Days))
	for _, day := range rules.Days {
		usedPerDay[day] = make(map[string]bool)
	}

	timetable := make([]TimetableRow, 0, len(rules.TimeSlots))
	for _, slotTime := range rules.TimeSlots {
		row := TimetableRow{Time: slotTime, Slots: make([]Slot, 0, len(rules.Days))}
		hour, numeric := slotHour(slotTime)
		isMorning := numeric && hour < morningEndHour

		for _, day := range rules.Days {
			// Lunch break applies to every day of the slot
			if slotTime == rules.LunchBreak {
				row.Slots = append(row.Slots, Slot{Day: day, Label: LunchBreakLabel})
				continue
			}

			if rules.EnforceMaxClassesPerDay && classesPerDay[day] >= rules.MaxClassesPerDay {
				row.Slots = append(row.Slots, Slot{Day: day, Label: FreePeriodLabel})
				continue
			}

			candidates := lo.Filter(sortedSubjects, func(subject Subject, _ int) bool {
				label := subject.Label()
				if rules.NoRepeatSubjectSameDay && usedPerDay[day][label] {
					return false
				}
				if rules.BalanceSubjects && frequency[label] >= frequencyCap(len(rules.TimeSlots), len(rules.Days), len(subjects)) {
					return false
				}
				return true
			})

			if rules.PreferMorningForCore && isMorning {
				candidates = sortByPriority(candidates)
			}

			if len(candidates) == 0 {
				row.Slots = append(row.Slots, Slot{Day: day, Label: FreePeriodLabel})
				continue
			}

			// First minimum wins, so ties keep the priority order
			selected := lo.MinBy(candidates, func(a, b Subject) bool {
				return frequency[a.Label()] < frequency[b.Label()]
			})
			label := selected.Label()
			frequency[label]++
			usedPerDay[day][label] = true
			classesPerDay[day]++
			row.Slots = append(row.Slots, Slot{Day: day, Label: label})
		}

		timetable = append(timetable, row)
	}

	//** Advisory balance check
	timetabler.balanceCheck(timetable, subjects, rules.Days)

	return timetable, nil
}

func (timetabler *heuristicTimetabler) Verify(timetable []TimetableRow, subjects []Subject, overrides RuleOverrides) bool {
	return verify(timetable, subjects, overrides.Apply(timetabler.base))
}

func (timetabler *heuristicTimetabler) balanceCheck(timetable []TimetableRow, subjects []Subject, days []string) {
	for _, imbalance := range BalanceReport(timetable, subjects, days) {
		timetabler.logger.Warn("subject needs rebalancing",
			zap.String("subject", imbalance.Subject),
			zap.Int("occurrences", imbalance.Occurrences),
			zap.Float64("average", imbalance.Average),
		)
	}
}

func sortByPriority(subjects []Subject) []Subject {
	sorted := slices.Clone(subjects)
	slices.SortStableFunc(sorted, func(a, b Subject) int {
		return a.Priority() - b.Priority()
	})
	return sorted
}
