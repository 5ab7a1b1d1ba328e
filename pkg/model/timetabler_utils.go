package model

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Imbalance describes a subject whose occurrences deviate from the average by more than the threshold
type Imbalance struct {
	Subject     string  `json:"subject"`
	Occurrences int     `json:"occurrences"`
	Average     float64 `json:"average"`
}

// frequencyCap is the per-subject placement limit used when balancing: min(3, ceil(slots*days/subjects))
func frequencyCap(timeSlots, days, subjects int) int {
	if subjects == 0 {
		return 0
	}
	return min(maxFrequencyCap, int(math.Ceil(float64(timeSlots*days)/float64(subjects))))
}

// slotHour reads the leading integer of a slot time ("09:00" -> 9). The boolean is false
// when the time does not start with a number.
func slotHour(slotTime string) (int, bool) {
	slotTime = strings.TrimSpace(slotTime)
	end := 0
	for end < len(slotTime) && slotTime[end] >= '0' && slotTime[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	hour, err := strconv.Atoi(slotTime[:end])
	return hour, err == nil
}

// Occurrences counts how many cells of the timetable hold each subject
func Occurrences(timetable []TimetableRow, subjects []Subject, days []string) map[string]int {
	occurrences := make(map[string]int, len(subjects))
	for _, subject := range subjects {
		occurrences[subject.Label()] = 0
	}
	for _, row := range timetable {
		for _, day := range days {
			label, ok := row.Get(day)
			if !ok {
				continue
			}
			if _, known := occurrences[label]; known {
				occurrences[label]++
			}
		}
	}
	return occurrences
}

// BalanceReport lists the subjects whose occurrence count differs from the mean by more than 2.
// It never modifies the timetable.
func BalanceReport(timetable []TimetableRow, subjects []Subject, days []string) []Imbalance {
	if len(subjects) == 0 {
		return nil
	}

	occurrences := Occurrences(timetable, subjects, days)
	average := float64(lo.Sum(lo.Values(occurrences))) / float64(len(subjects))

	return lo.FilterMap(subjects, func(subject Subject, _ int) (Imbalance, bool) {
		count := occurrences[subject.Label()]
		return Imbalance{
			Subject:     subject.Label(),
			Occurrences: count,
			Average:     average,
		}, math.Abs(float64(count)-average) > balanceThreshold
	})
}

func verify(timetable []TimetableRow, subjects []Subject, rules Rules) bool {
	if len(subjects) == 0 {
		return len(timetable) == 0
	}

	//** Check shape
	if len(timetable) != len(rules.TimeSlots) {
		return false
	}

	allowed := map[string]bool{LunchBreakLabel: true, FreePeriodLabel: true}
	for _, subject := range subjects {
		allowed[subject.Label()] = true
	}
	capacity := frequencyCap(len(rules.TimeSlots), len(rules.Days), len(subjects))

	usedPerDay := make(map[string]map[string]bool, len(rules.Days))
	classesPerDay := make(map[string]int, len(rules.Days))
	for _, day := range rules.Days {
		usedPerDay[day] = make(map[string]bool)
	}
	frequency := make(map[string]int)

	for i, row := range timetable {
		// Check that:
		// - Rows follow the time slot order
		// - Every row holds exactly one cell per day
		if row.Time != rules.TimeSlots[i] || len(row.Slots) != len(rules.Days) {
			return false
		}

		for _, day := range rules.Days {
			label, ok := row.Get(day)
			// Check that:
			// - The day is present and holds a known label
			// - Lunch rows are "Lunch Break" on every day
			if !ok || !allowed[label] {
				return false
			}
			if row.Time == rules.LunchBreak {
				if label != LunchBreakLabel {
					return false
				}
				continue
			}
			if label == LunchBreakLabel || label == FreePeriodLabel {
				continue
			}

			// Check that:
			// - A subject appears at most once a day when repeats are forbidden
			// - A subject does not exceed the balance cap
			// - A day does not exceed the class limit when it is enforced
			if rules.NoRepeatSubjectSameDay && usedPerDay[day][label] {
				return false
			}
			usedPerDay[day][label] = true

			if frequency[label]++; rules.BalanceSubjects && frequency[label] > capacity {
				return false
			}

			if classesPerDay[day]++; rules.EnforceMaxClassesPerDay && classesPerDay[day] > rules.MaxClassesPerDay {
				return false
			}
		}
	}
	return true
}
