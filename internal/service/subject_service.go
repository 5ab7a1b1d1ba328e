package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/store"
	"github.com/limaJavier/smartclassroom/pkg/model"
)

var (
	ErrSubjectCodeExists = errors.New("subject code already exists")
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrEmptyImport       = errors.New("paste at least one subject line")
)

type SubjectService interface {
	List(ctx context.Context) ([]model.Subject, error)
	Add(ctx context.Context, actor domain.User, subject model.Subject) (model.Subject, error)
	Delete(ctx context.Context, actor domain.User, code string) error
	// BulkImport adds every parsable line whose code is not taken yet and returns how many were added
	BulkImport(ctx context.Context, actor domain.User, text string) (int, error)
}

type subjectService struct {
	store    store.Store
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubjectService(st store.Store, validate *validator.Validate, logger *zap.Logger, now func() time.Time) SubjectService {
	return &subjectService{store: st, validate: validate, logger: logger, now: now}
}

func (s *subjectService) List(ctx context.Context) ([]model.Subject, error) {
	subjects := []model.Subject{}
	if _, err := store.GetJSON(ctx, s.store, store.SubjectsKey, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (s *subjectService) Add(ctx context.Context, actor domain.User, subject model.Subject) (model.Subject, error) {
	if !actor.Can(domain.RoleTeacher) {
		return model.Subject{}, ErrForbidden
	}

	subject.Name = strings.TrimSpace(subject.Name)
	subject.Code = strings.ToUpper(strings.TrimSpace(subject.Code))
	if err := s.validate.Struct(subject); err != nil {
		return model.Subject{}, validationError(err)
	}

	subjects, err := s.List(ctx)
	if err != nil {
		return model.Subject{}, err
	}
	if hasCode(subjects, subject.Code) {
		return model.Subject{}, ErrSubjectCodeExists
	}

	subject.Id = uuid.NewString()
	subject.CreatedAt = s.now().UTC()
	subjects = append(subjects, subject)
	if err := store.SetJSON(ctx, s.store, store.SubjectsKey, subjects); err != nil {
		return model.Subject{}, err
	}

	s.logger.Info("subject added", zap.String("code", subject.Code), zap.String("by", actor.Username))
	return subject, nil
}

func (s *subjectService) Delete(ctx context.Context, actor domain.User, code string) error {
	if !actor.Can(domain.RoleTeacher) {
		return ErrForbidden
	}

	subjects, err := s.List(ctx)
	if err != nil {
		return err
	}
	target, ok := lo.Find(subjects, func(subject model.Subject) bool { return strings.EqualFold(subject.Code, code) })
	if !ok {
		return ErrSubjectNotFound
	}
	code = target.Code
	remaining := lo.Reject(subjects, func(subject model.Subject, _ int) bool { return subject.Code == code })
	if err := store.SetJSON(ctx, s.store, store.SubjectsKey, remaining); err != nil {
		return err
	}

	// Related attendance data goes with the subject
	sheets, err := s.store.Keys(ctx, "attendance_"+code+"_")
	if err != nil {
		return fmt.Errorf("subject deleted but attendance cleanup failed: %w", err)
	}
	related := append([]string{"students_" + code, "attendance_" + code}, sheets...)
	if err := s.store.Delete(ctx, related...); err != nil {
		return fmt.Errorf("subject deleted but attendance cleanup failed: %w", err)
	}

	s.logger.Info("subject deleted", zap.String("code", code), zap.String("by", actor.Username))
	return nil
}

func (s *subjectService) BulkImport(ctx context.Context, actor domain.User, text string) (int, error) {
	if !actor.Can(domain.RoleTeacher) {
		return 0, ErrForbidden
	}

	parsed := model.ParseSubjectLines(text)
	if len(parsed) == 0 {
		return 0, ErrEmptyImport
	}

	subjects, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	createdAt := s.now().UTC()
	for _, subject := range parsed {
		if err := s.validate.Struct(subject); err != nil {
			s.logger.Warn("skipping invalid subject", zap.String("name", subject.Name), zap.Error(validationError(err)))
			continue
		}
		if hasCode(subjects, subject.Code) {
			continue
		}
		subject.Id = uuid.NewString()
		subject.CreatedAt = createdAt
		subjects = append(subjects, subject)
		added++
	}

	if err := store.SetJSON(ctx, s.store, store.SubjectsKey, subjects); err != nil {
		return 0, err
	}

	s.logger.Info("subjects imported", zap.Int("added", added), zap.Int("lines", len(parsed)))
	return added, nil
}

func hasCode(subjects []model.Subject, code string) bool {
	return lo.SomeBy(subjects, func(subject model.Subject) bool {
		return strings.EqualFold(subject.Code, code)
	})
}
