package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)
	digitsOnly      = regexp.MustCompile(`^[0-9]+$`)
)

// ParseSubjectLine reads one bulk-import line. Supported formats:
//
//	Name | CODE | Semester
//	Name - CODE - Semester
//	Name
//
// A missing code is derived from the first three alphanumerics of the name plus 100+index.
// A missing or non-numeric semester becomes 1. Blank lines yield false.
func ParseSubjectLine(line string, index int) (Subject, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return Subject{}, false
	}

	parts := splitFields(raw, "|")
	if len(parts) == 0 {
		return Subject{}, false
	}

	name, code, semester := parts[0], "", "1"
	if len(parts) >= 2 {
		code = strings.ToUpper(parts[1])
	}
	if len(parts) >= 3 {
		semester = parts[2]
	}

	// Fall back to dash separated fields
	if code == "" && strings.Contains(raw, "-") {
		if parts := splitFields(raw, "-"); len(parts) >= 2 {
			name, code = parts[0], strings.ToUpper(parts[1])
			if len(parts) >= 3 {
				semester = parts[2]
			}
		}
	}

	if code == "" {
		prefix := strings.ToUpper(nonAlphanumeric.ReplaceAllString(name, ""))
		if len(prefix) > 3 {
			prefix = prefix[:3]
		} else if prefix == "" {
			prefix = "SUB"
		}
		code = fmt.Sprintf("%v%d", prefix, 100+index)
	}

	if !digitsOnly.MatchString(semester) {
		semester = "1"
	}

	return Subject{
		Name:     name,
		Code:     code,
		Semester: leadingInt(semester),
	}, true
}

// ParseSubjectLines parses a bulk-import text block, numbering lines from 1 after blank lines are dropped
func ParseSubjectLines(text string) []Subject {
	lines := lo.Filter(
		lo.Map(strings.Split(text, "\n"), func(line string, _ int) string { return strings.TrimSpace(line) }),
		func(line string, _ int) bool { return line != "" },
	)

	subjects := make([]Subject, 0, len(lines))
	for i, line := range lines {
		if subject, ok := ParseSubjectLine(line, i+1); ok {
			subjects = append(subjects, subject)
		}
	}
	return subjects
}

func splitFields(raw, separator string) []string {
	return lo.Filter(
		lo.Map(strings.Split(raw, separator), func(part string, _ int) string { return strings.TrimSpace(part) }),
		func(part string, _ int) bool { return part != "" },
	)
}
