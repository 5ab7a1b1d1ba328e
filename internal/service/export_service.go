package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/pkg/model"
)

var (
	ErrExportEmpty        = errors.New("timetable is empty")
	ErrExportGenerateFail = errors.New("cannot generate export file")
)

const (
	timetableSheet = "Timetable"
	classDuration  = time.Hour
)

// ExportService renders a stored timetable into downloadable formats
type ExportService interface {
	// XLSX returns the timetable as a spreadsheet with one row per time slot and one column per day
	XLSX(timetable []model.TimetableRow) (*bytes.Buffer, string, error)
	// ICS returns one weekly recurring event per scheduled class, starting in the week of weekStart
	ICS(timetable []model.TimetableRow, weekStart time.Time) ([]byte, string, error)
}

type exportService struct {
	days   []string
	logger *zap.Logger
}

func NewExportService(rules model.Rules, logger *zap.Logger) ExportService {
	return &exportService{days: rules.Days, logger: logger}
}

func (s *exportService) XLSX(timetable []model.TimetableRow) (*bytes.Buffer, string, error) {
	if len(timetable) == 0 {
		return nil, "", ErrExportEmpty
	}
	days := model.Days(timetable, s.days)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(timetableSheet)
	if err != nil {
		return nil, "", s.generateFail("cannot create sheet", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, "", s.generateFail("cannot remove default sheet", err)
	}

	if err := f.SetColWidth(timetableSheet, "A", "A", 10); err != nil {
		return nil, "", s.generateFail("cannot size time column", err)
	}
	if err := f.SetColWidth(timetableSheet, colName(1), colName(len(days)), 18); err != nil {
		return nil, "", s.generateFail("cannot size day columns", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDD6FE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", s.generateFail("cannot create header style", err)
	}
	breakStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Italic: true, Color: "#6B7280"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, "", s.generateFail("cannot create break style", err)
	}

	//** Header
	if err := f.SetCellValue(timetableSheet, cell("A", 1), "Time"); err != nil {
		return nil, "", s.generateFail("cannot write header", err)
	}
	for i, day := range days {
		if err := f.SetCellValue(timetableSheet, cell(colName(i+1), 1), day); err != nil {
			return nil, "", s.generateFail("cannot write header", err)
		}
	}
	if err := f.SetCellStyle(timetableSheet, "A1", cell(colName(len(days)), 1), headerStyle); err != nil {
		return nil, "", s.generateFail("cannot style header", err)
	}

	//** Rows
	for r, row := range timetable {
		line := r + 2
		if err := f.SetCellValue(timetableSheet, cell("A", line), row.Time); err != nil {
			return nil, "", s.generateFail("cannot write row", err)
		}
		for i, day := range days {
			label, _ := row.Get(day)
			target := cell(colName(i+1), line)
			if err := f.SetCellValue(timetableSheet, target, label); err != nil {
				return nil, "", s.generateFail("cannot write row", err)
			}
			if isClass(label) {
				continue
			}
			if err := f.SetCellStyle(timetableSheet, target, target, breakStyle); err != nil {
				return nil, "", s.generateFail("cannot style row", err)
			}
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateFail("cannot write spreadsheet", err)
	}
	return buf, "timetable.xlsx", nil
}

func (s *exportService) generateFail(msg string, err error) error {
	s.logger.Error(msg, zap.Error(err))
	return fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
}

func (s *exportService) ICS(timetable []model.TimetableRow, weekStart time.Time) ([]byte, string, error) {
	if len(timetable) == 0 {
		return nil, "", ErrExportEmpty
	}

	monday := startOfWeek(weekStart)
	stamp := time.Now().UTC()

	calendar := ics.NewCalendar()
	calendar.SetMethod(ics.MethodPublish)
	calendar.SetProductId("-//Smart Classroom//Timetable//EN")
	calendar.SetXWRCalName("Timetable")

	events := 0
	for _, row := range timetable {
		clock, err := time.Parse("15:04", strings.TrimSpace(row.Time))
		if err != nil {
			s.logger.Warn("skipping row with unparsable time", zap.String("time", row.Time))
			continue
		}
		for _, slot := range row.Slots {
			if !isClass(slot.Label) {
				continue
			}
			offset, ok := weekdayOffset(slot.Day)
			if !ok {
				continue
			}

			start := time.Date(monday.Year(), monday.Month(), monday.Day()+offset,
				clock.Hour(), clock.Minute(), 0, 0, monday.Location())

			event := calendar.AddEvent(fmt.Sprintf("%v-%v-%v@smartclassroom", slot.Day, strings.ReplaceAll(row.Time, ":", ""), eventToken(slot.Label)))
			event.SetDtStampTime(stamp)
			event.SetSummary(slot.Label)
			event.SetStartAt(start)
			event.SetEndAt(start.Add(classDuration))
			event.AddRrule("FREQ=WEEKLY")
			events++
		}
	}

	s.logger.Debug("calendar exported", zap.Int("events", events))
	return []byte(calendar.Serialize()), "timetable.ics", nil
}

// isClass reports whether a cell holds a subject rather than a break or an empty period
func isClass(label string) bool {
	switch label {
	case "", model.LunchBreakLabel, model.FreePeriodLabel, model.FreeLabel:
		return false
	}
	return true
}

func weekdayOffset(day string) (int, bool) {
	for offset := range 7 {
		if strings.EqualFold(time.Weekday((offset+1)%7).String(), day) {
			return offset, true
		}
	}
	return 0, false
}

func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

func eventToken(label string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' {
			return '_'
		}
		return r
	}, label)
}

func colName(index int) string {
	name, _ := excelize.ColumnNumberToName(index + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
