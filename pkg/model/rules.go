package model

import (
	"fmt"
	"slices"

	"github.com/mitchellh/mapstructure"
)

const (
	LunchBreakLabel = "Lunch Break"
	FreePeriodLabel = "Free Period"
	FreeLabel       = "Free" // Placeholder for rows created by manual edits

	maxFrequencyCap  = 3
	balanceThreshold = 2.0
	morningEndHour   = 12
)

var (
	DefaultTimeSlots = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00"}
	DefaultDays      = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
)

// Rules is the effective configuration of a timetable build
type Rules struct {
	MaxClassesPerDay        int      `json:"maxClassesPerDay"`
	LunchBreak              string   `json:"lunchBreak"`
	NoRepeatSubjectSameDay  bool     `json:"noRepeatSubjectSameDay"`
	BalanceSubjects         bool     `json:"balanceSubjects"`
	PreferMorningForCore    bool     `json:"preferMorningForCore"`
	EnforceMaxClassesPerDay bool     `json:"enforceMaxClassesPerDay"`
	TimeSlots               []string `json:"timeSlots"`
	Days                    []string `json:"days"`
}

// DefaultRules returns the rules applied when a caller overrides nothing:
//
//	MaxClassesPerDay:        4
//	LunchBreak:              "13:00"
//	NoRepeatSubjectSameDay:  true
//	BalanceSubjects:         true
//	PreferMorningForCore:    true
//	EnforceMaxClassesPerDay: false
//	TimeSlots:               DefaultTimeSlots
//	Days:                    DefaultDays
func DefaultRules() Rules {
	return Rules{
		MaxClassesPerDay:        4,
		LunchBreak:              "13:00",
		NoRepeatSubjectSameDay:  true,
		BalanceSubjects:         true,
		PreferMorningForCore:    true,
		EnforceMaxClassesPerDay: false,
		TimeSlots:               slices.Clone(DefaultTimeSlots),
		Days:                    slices.Clone(DefaultDays),
	}
}

// RuleOverrides holds caller supplied rules. Nil fields keep the value of the base rules.
type RuleOverrides struct {
	MaxClassesPerDay        *int     `json:"maxClassesPerDay,omitempty" mapstructure:"maxClassesPerDay"`
	LunchBreak              *string  `json:"lunchBreak,omitempty" mapstructure:"lunchBreak"`
	NoRepeatSubjectSameDay  *bool    `json:"noRepeatSubjectSameDay,omitempty" mapstructure:"noRepeatSubjectSameDay"`
	BalanceSubjects         *bool    `json:"balanceSubjects,omitempty" mapstructure:"balanceSubjects"`
	PreferMorningForCore    *bool    `json:"preferMorningForCore,omitempty" mapstructure:"preferMorningForCore"`
	EnforceMaxClassesPerDay *bool    `json:"enforceMaxClassesPerDay,omitempty" mapstructure:"enforceMaxClassesPerDay"`
	TimeSlots               []string `json:"timeSlots,omitempty" mapstructure:"timeSlots"`
	Days                    []string `json:"days,omitempty" mapstructure:"days"`
}

// Apply merges the overrides into base key by key, the override winning
func (overrides RuleOverrides) Apply(base Rules) Rules {
	rules := base
	rules.TimeSlots = slices.Clone(base.TimeSlots)
	rules.Days = slices.Clone(base.Days)

	if overrides.MaxClassesPerDay != nil {
		rules.MaxClassesPerDay = *overrides.MaxClassesPerDay
	}
	if overrides.LunchBreak != nil {
		rules.LunchBreak = *overrides.LunchBreak
	}
	if overrides.NoRepeatSubjectSameDay != nil {
		rules.NoRepeatSubjectSameDay = *overrides.NoRepeatSubjectSameDay
	}
	if overrides.BalanceSubjects != nil {
		rules.BalanceSubjects = *overrides.BalanceSubjects
	}
	if overrides.PreferMorningForCore != nil {
		rules.PreferMorningForCore = *overrides.PreferMorningForCore
	}
	if overrides.EnforceMaxClassesPerDay != nil {
		rules.EnforceMaxClassesPerDay = *overrides.EnforceMaxClassesPerDay
	}
	if len(overrides.TimeSlots) > 0 {
		rules.TimeSlots = slices.Clone(overrides.TimeSlots)
	}
	if len(overrides.Days) > 0 {
		rules.Days = slices.Clone(overrides.Days)
	}
	return rules
}

// Merge layers other on top of overrides, fields set in other taking precedence
func (overrides RuleOverrides) Merge(other RuleOverrides) RuleOverrides {
	merged := overrides
	if other.MaxClassesPerDay != nil {
		merged.MaxClassesPerDay = other.MaxClassesPerDay
	}
	if other.LunchBreak != nil {
		merged.LunchBreak = other.LunchBreak
	}
	if other.NoRepeatSubjectSameDay != nil {
		merged.NoRepeatSubjectSameDay = other.NoRepeatSubjectSameDay
	}
	if other.BalanceSubjects != nil {
		merged.BalanceSubjects = other.BalanceSubjects
	}
	if other.PreferMorningForCore != nil {
		merged.PreferMorningForCore = other.PreferMorningForCore
	}
	if other.EnforceMaxClassesPerDay != nil {
		merged.EnforceMaxClassesPerDay = other.EnforceMaxClassesPerDay
	}
	if len(other.TimeSlots) > 0 {
		merged.TimeSlots = other.TimeSlots
	}
	if len(other.Days) > 0 {
		merged.Days = other.Days
	}
	return merged
}

// RuleOverridesFromMap decodes loosely typed overrides (e.g. a parsed JSON object).
// Unknown keys are ignored.
func RuleOverridesFromMap(values map[string]any) (RuleOverrides, error) {
	var overrides RuleOverrides
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &overrides,
	})
	if err != nil {
		return RuleOverrides{}, err
	}
	if err := decoder.Decode(values); err != nil {
		return RuleOverrides{}, fmt.Errorf("invalid rules: %w", err)
	}
	return overrides, nil
}
