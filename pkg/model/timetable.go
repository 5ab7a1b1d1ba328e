package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
)

var ErrInvalidClass = errors.New("time, day and subject are required")

type Slot struct {
	Day   string
	Label string
}

// TimetableRow holds one time slot of the weekly grid, one slot per day in day order
type TimetableRow struct {
	Time  string
	Slots []Slot
}

func newTimetableRow(time string, days []string, label string) TimetableRow {
	return TimetableRow{
		Time: time,
		Slots: lo.Map(days, func(day string, _ int) Slot {
			return Slot{Day: day, Label: label}
		}),
	}
}

func (row TimetableRow) Get(day string) (string, bool) {
	slot, ok := lo.Find(row.Slots, func(slot Slot) bool { return slot.Day == day })
	return slot.Label, ok
}

func (row *TimetableRow) Set(day, label string) {
	for i := range row.Slots {
		if row.Slots[i].Day == day {
			row.Slots[i].Label = label
			return
		}
	}
	row.Slots = append(row.Slots, Slot{Day: day, Label: label})
}

// MarshalJSON writes {"time": ..., "<day>": "<label>", ...} keeping day order
func (row TimetableRow) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(`{"time":`)
	timeJson, err := json.Marshal(row.Time)
	if err != nil {
		return nil, err
	}
	buffer.Write(timeJson)

	for _, slot := range row.Slots {
		dayJson, err := json.Marshal(slot.Day)
		if err != nil {
			return nil, err
		}
		labelJson, err := json.Marshal(slot.Label)
		if err != nil {
			return nil, err
		}
		buffer.WriteByte(',')
		buffer.Write(dayJson)
		buffer.WriteByte(':')
		buffer.Write(labelJson)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

func (row *TimetableRow) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if token, err := decoder.Token(); err != nil {
		return err
	} else if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("timetable row must be an object")
	}

	*row = TimetableRow{}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return err
		}
		key := keyToken.(string)

		var value string
		if err := decoder.Decode(&value); err != nil {
			return fmt.Errorf("timetable row field %q: %w", key, err)
		}

		if key == "time" {
			row.Time = value
		} else {
			row.Slots = append(row.Slots, Slot{Day: key, Label: value})
		}
	}
	_, err := decoder.Token()
	return err
}

// Days returns the day columns of a stored timetable, or fallback when it has no rows
func Days(timetable []TimetableRow, fallback []string) []string {
	if len(timetable) == 0 || len(timetable[0].Slots) == 0 {
		return fallback
	}
	return lo.Map(timetable[0].Slots, func(slot Slot, _ int) string { return slot.Day })
}

// AddClass places subject at the given time and day, creating the row when the time is new.
// New rows start with every day set to "Free". Rows are kept ordered by clock time.
func AddClass(timetable []TimetableRow, classTime, day, subject string, days []string) ([]TimetableRow, error) {
	classTime, day, subject = strings.TrimSpace(classTime), strings.TrimSpace(day), strings.TrimSpace(subject)
	if classTime == "" || day == "" || subject == "" {
		return nil, ErrInvalidClass
	}
	if !slices.Contains(days, day) {
		return nil, fmt.Errorf("unknown day %q", day)
	}

	timetable = slices.Clone(timetable)
	index := slices.IndexFunc(timetable, func(row TimetableRow) bool { return row.Time == classTime })
	if index == -1 {
		timetable = append(timetable, newTimetableRow(classTime, days, FreeLabel))
		index = len(timetable) - 1
	} else {
		timetable[index].Slots = slices.Clone(timetable[index].Slots)
	}
	timetable[index].Set(day, subject)

	slices.SortStableFunc(timetable, func(a, b TimetableRow) int {
		return compareClock(a.Time, b.Time)
	})
	return timetable, nil
}

// compareClock orders "HH:MM" strings by time of day; unparsable values sort by text
func compareClock(a, b string) int {
	timeA, errA := time.Parse("15:04", a)
	timeB, errB := time.Parse("15:04", b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return timeA.Compare(timeB)
}
