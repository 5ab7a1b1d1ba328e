package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const UndefinedLabel = "undefined"

type RawSubject struct {
	Id          string
	Name        string
	Code        string
	Semester    any
	Description string
	CreatedAt   string
}

type Subject struct {
	Id          string    `json:"id,omitempty"`
	Name        string    `json:"name" validate:"required,max=100"`
	Code        string    `json:"code" validate:"required,alphanum,min=3,max=10"`
	Semester    int       `json:"semester" validate:"gte=0"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Priority ranks a subject for scheduling; lower values are placed first.
// A missing or zero semester counts as 1.
func (subject Subject) Priority() int {
	if subject.Semester == 0 {
		return 1
	}
	return subject.Semester
}

// Label is the text written into a timetable cell for the subject
func (subject Subject) Label() string {
	if subject.Name == "" {
		return UndefinedLabel
	}
	return subject.Name
}

func SubjectsFromJson(file string) ([]Subject, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var inputJson []any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return nil, err
	}

	var rawSubjects []RawSubject
	if err := mapstructure.WeakDecode(inputJson, &rawSubjects); err != nil {
		return nil, fmt.Errorf("cannot decode subjects: %w", err)
	}
	return ProcessRawSubjects(rawSubjects), nil
}

func ProcessRawSubjects(rawSubjects []RawSubject) []Subject {
	return lo.Map(rawSubjects, func(raw RawSubject, _ int) Subject {
		subject := Subject{
			Id:          raw.Id,
			Name:        strings.TrimSpace(raw.Name),
			Code:        strings.TrimSpace(raw.Code),
			Semester:    parseSemester(raw.Semester),
			Description: raw.Description,
		}
		if createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			subject.CreatedAt = createdAt
		}
		return subject
	})
}

// parseSemester reads the leading integer of a loosely typed semester value.
// Anything that does not start with a number yields 0.
func parseSemester(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case string:
		return leadingInt(v)
	case json.Number:
		return leadingInt(v.String())
	}
	return 0
}

func leadingInt(value string) int {
	value = strings.TrimSpace(value)
	end := 0
	if end < len(value) && (value[end] == '-' || value[end] == '+') {
		end++
	}
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	number, err := strconv.Atoi(value[:end])
	if err != nil {
		return 0
	}
	return number
}
