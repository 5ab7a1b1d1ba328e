package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/store"
)

const (
	dateLayout = "2006-01-02"

	// Students below this attendance percentage get a warning
	attendanceWarningThreshold = 60.0
)

var (
	ErrMissingSubject = errors.New("please select a subject")
	ErrInvalidDate    = errors.New("invalid attendance date")
	ErrFutureDate     = errors.New("cannot mark attendance for future dates")
	ErrInvalidStatus  = errors.New("invalid attendance status")
)

type AttendanceService interface {
	// SaveSheet stores the attendance of subject on date. An empty date means today.
	SaveSheet(ctx context.Context, actor domain.User, subject, date string, records map[string]domain.AttendanceStatus) (domain.AttendanceSheet, error)
	// LoadSheet returns the stored sheet, or an empty one when nothing was saved yet
	LoadSheet(ctx context.Context, subject, date string) (domain.AttendanceSheet, error)
	History(ctx context.Context) (map[string]domain.AttendanceSheet, error)
	// Analyze reports every student whose attendance across all sheets is below 60%
	Analyze(ctx context.Context) ([]domain.AttendanceWarning, error)
}

type attendanceService struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewAttendanceService(st store.Store, logger *zap.Logger, now func() time.Time) AttendanceService {
	return &attendanceService{store: st, logger: logger, now: now}
}

// sheetSnapshot is the per-sheet record kept next to the history entry
type sheetSnapshot struct {
	Students   []string                           `json:"students"`
	Attendance map[string]domain.AttendanceStatus `json:"attendance"`
}

func historyKey(subject, date string) string {
	return subject + "_" + date
}

func (s *attendanceService) SaveSheet(
	ctx context.Context,
	actor domain.User,
	subject, date string,
	records map[string]domain.AttendanceStatus,
) (domain.AttendanceSheet, error) {
	if !actor.Can(domain.RoleTeacher) {
		return domain.AttendanceSheet{}, ErrForbidden
	}

	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.AttendanceSheet{}, ErrMissingSubject
	}
	date, err := s.resolveDate(date)
	if err != nil {
		return domain.AttendanceSheet{}, err
	}

	//** Normalize records
	cleaned := make(map[string]domain.AttendanceStatus, len(records))
	for student, status := range records {
		student = strings.TrimSpace(student)
		if student == "" {
			continue
		}
		if status == "" {
			status = domain.StatusNotMarked
		}
		if !status.Valid() {
			return domain.AttendanceSheet{}, fmt.Errorf("%w: %q for %v", ErrInvalidStatus, status, student)
		}
		cleaned[student] = status
	}

	sheet := domain.AttendanceSheet{
		Subject: subject,
		Date:    date,
		Summary: summarize(cleaned),
		Records: cleaned,
	}

	//** Persist history entry and snapshot
	history, err := s.History(ctx)
	if err != nil {
		return domain.AttendanceSheet{}, err
	}
	history[historyKey(subject, date)] = sheet
	if err := store.SetJSON(ctx, s.store, store.AttendanceHistoryKey, history); err != nil {
		return domain.AttendanceSheet{}, err
	}

	students := lo.Keys(cleaned)
	slices.Sort(students)
	snapshot := sheetSnapshot{Students: students, Attendance: cleaned}
	if err := store.SetJSON(ctx, s.store, "attendance_"+historyKey(subject, date), snapshot); err != nil {
		return domain.AttendanceSheet{}, err
	}

	if sheet.Summary.NotMarked > 0 {
		s.logger.Warn("attendance saved with unmarked students",
			zap.String("subject", subject),
			zap.String("date", date),
			zap.Int("notMarked", sheet.Summary.NotMarked),
		)
	}
	s.logger.Info("attendance saved", zap.String("subject", subject), zap.String("date", date))
	return sheet, nil
}

func (s *attendanceService) LoadSheet(ctx context.Context, subject, date string) (domain.AttendanceSheet, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.AttendanceSheet{}, ErrMissingSubject
	}
	date, err := s.resolveDate(date)
	if err != nil {
		return domain.AttendanceSheet{}, err
	}

	history, err := s.History(ctx)
	if err != nil {
		return domain.AttendanceSheet{}, err
	}
	if sheet, ok := history[historyKey(subject, date)]; ok {
		return sheet, nil
	}
	return domain.AttendanceSheet{
		Subject: subject,
		Date:    date,
		Records: map[string]domain.AttendanceStatus{},
	}, nil
}

func (s *attendanceService) History(ctx context.Context) (map[string]domain.AttendanceSheet, error) {
	history := map[string]domain.AttendanceSheet{}
	if _, err := store.GetJSON(ctx, s.store, store.AttendanceHistoryKey, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *attendanceService) Analyze(ctx context.Context) ([]domain.AttendanceWarning, error) {
	history, err := s.History(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct{ present, total int }
	tallies := make(map[string]*tally)
	for _, sheet := range history {
		for student, status := range sheet.Records {
			if tallies[student] == nil {
				tallies[student] = &tally{}
			}
			tallies[student].total++
			if status == domain.StatusPresent {
				tallies[student].present++
			}
		}
	}

	students := lo.Keys(tallies)
	slices.Sort(students)

	warnings := make([]domain.AttendanceWarning, 0)
	for _, student := range students {
		percentage := float64(tallies[student].present) / float64(tallies[student].total) * 100
		if percentage >= attendanceWarningThreshold {
			continue
		}
		rounded := int(math.Round(percentage))
		warnings = append(warnings, domain.AttendanceWarning{
			Student:    student,
			Percentage: rounded,
			Message:    fmt.Sprintf("Warning: %v's attendance is %d%% (below 60%%)", student, rounded),
		})
	}
	return warnings, nil
}

// resolveDate defaults an empty date to today and rejects malformed or future dates
func (s *attendanceService) resolveDate(date string) (string, error) {
	today := s.now().Format(dateLayout)
	date = strings.TrimSpace(date)
	if date == "" {
		return today, nil
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	if parsed.Format(dateLayout) > today {
		return "", ErrFutureDate
	}
	return parsed.Format(dateLayout), nil
}

func summarize(records map[string]domain.AttendanceStatus) domain.AttendanceSummary {
	summary := domain.AttendanceSummary{Total: len(records)}
	for _, status := range records {
		switch status {
		case domain.StatusPresent:
			summary.Present++
		case domain.StatusAbsent:
			summary.Absent++
		}
	}
	summary.NotMarked = summary.Total - (summary.Present + summary.Absent)
	return summary
}
