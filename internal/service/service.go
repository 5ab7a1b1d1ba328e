package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/store"
	"github.com/limaJavier/smartclassroom/pkg/model"
)

var (
	ErrForbidden  = errors.New("permission denied")
	ErrValidation = errors.New("invalid input")
)

// Options configures the service layer. Zero values fall back to sensible defaults.
type Options struct {
	Rules       model.Rules // Base rules of the timetable generator
	SessionTTL  time.Duration
	MaxFileSize int64
	Logger      *zap.Logger
	Now         func() time.Time
}

type Service struct {
	Subject    SubjectService
	Timetable  TimetableService
	Attendance AttendanceService
	Assignment AssignmentService
	User       UserService
	Export     ExportService
}

func NewService(st store.Store, options Options) *Service {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	if options.SessionTTL <= 0 {
		options.SessionTTL = 24 * time.Hour
	}
	if options.MaxFileSize <= 0 {
		options.MaxFileSize = MaxAttachmentSize
	}
	if len(options.Rules.TimeSlots) == 0 || len(options.Rules.Days) == 0 {
		options.Rules = model.DefaultRules()
	}

	validate := newValidator()
	timetabler := model.NewHeuristicTimetablerWithRules(options.Rules, options.Logger.Named("timetabler"))

	subjects := NewSubjectService(st, validate, options.Logger, options.Now)
	return &Service{
		Subject:    subjects,
		Timetable:  NewTimetableService(st, subjects, timetabler, options.Rules, options.Logger),
		Attendance: NewAttendanceService(st, options.Logger, options.Now),
		Assignment: NewAssignmentService(st, validate, options.MaxFileSize, options.Logger, options.Now),
		User:       NewUserService(st, validate, options.SessionTTL, options.Logger, options.Now),
		Export:     NewExportService(options.Rules, options.Logger),
	}
}

// newValidator reports field errors by their JSON names
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// validationError wraps validator failures into ErrValidation with a readable field list
func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		fields = append(fields, fmt.Sprintf("%v (%v)", fieldError.Field(), fieldError.Tag()))
	}
	return fmt.Errorf("%w: %v", ErrValidation, strings.Join(fields, ", "))
}
