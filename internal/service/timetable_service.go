package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/store"
	"github.com/limaJavier/smartclassroom/pkg/model"
)

type TimetableService interface {
	// Generate builds a timetable from the stored subjects and persists it. With no subjects it
	// returns model.ErrNoSubjects and leaves the stored timetable untouched.
	Generate(ctx context.Context, actor domain.User, overrides model.RuleOverrides) ([]model.TimetableRow, error)
	Get(ctx context.Context) ([]model.TimetableRow, error)
	AddClass(ctx context.Context, actor domain.User, classTime, day, subject string) ([]model.TimetableRow, error)
	// ImportAndGenerate bulk-imports subjects and regenerates the timetable from the full subject list
	ImportAndGenerate(ctx context.Context, actor domain.User, text string, overrides model.RuleOverrides) (int, []model.TimetableRow, error)
	BalanceReport(ctx context.Context) ([]model.Imbalance, error)
}

type timetableService struct {
	store      store.Store
	subjects   SubjectService
	timetabler model.Timetabler
	rules      model.Rules
	logger     *zap.Logger
}

func NewTimetableService(
	st store.Store,
	subjects SubjectService,
	timetabler model.Timetabler,
	rules model.Rules,
	logger *zap.Logger,
) TimetableService {
	return &timetableService{
		store:      st,
		subjects:   subjects,
		timetabler: timetabler,
		rules:      rules,
		logger:     logger,
	}
}

func (s *timetableService) Generate(ctx context.Context, actor domain.User, overrides model.RuleOverrides) ([]model.TimetableRow, error) {
	if !actor.Can(domain.RoleTeacher) {
		return nil, ErrForbidden
	}

	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, err
	}

	timetable, err := s.timetabler.Build(subjects, overrides)
	if err != nil {
		return timetable, err
	}

	if !s.timetabler.Verify(timetable, subjects, overrides) {
		s.logger.Warn("generated timetable breaks a scheduling rule", zap.Int("subjects", len(subjects)))
	}

	if err := store.SetJSON(ctx, s.store, store.TimetableKey, timetable); err != nil {
		return nil, err
	}

	s.logger.Info("timetable generated",
		zap.Int("subjects", len(subjects)),
		zap.Int("rows", len(timetable)),
		zap.String("by", actor.Username),
	)
	return timetable, nil
}

func (s *timetableService) Get(ctx context.Context) ([]model.TimetableRow, error) {
	timetable := []model.TimetableRow{}
	if _, err := store.GetJSON(ctx, s.store, store.TimetableKey, &timetable); err != nil {
		return nil, err
	}
	return timetable, nil
}

func (s *timetableService) AddClass(ctx context.Context, actor domain.User, classTime, day, subject string) ([]model.TimetableRow, error) {
	if !actor.Can(domain.RoleTeacher) {
		return nil, ErrForbidden
	}

	timetable, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	timetable, err = model.AddClass(timetable, classTime, day, subject, model.Days(timetable, s.rules.Days))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := store.SetJSON(ctx, s.store, store.TimetableKey, timetable); err != nil {
		return nil, err
	}
	return timetable, nil
}

func (s *timetableService) ImportAndGenerate(
	ctx context.Context,
	actor domain.User,
	text string,
	overrides model.RuleOverrides,
) (int, []model.TimetableRow, error) {
	added, err := s.subjects.BulkImport(ctx, actor, text)
	if err != nil {
		return 0, nil, err
	}

	timetable, err := s.Generate(ctx, actor, overrides)
	if err != nil && !errors.Is(err, model.ErrNoSubjects) {
		return added, nil, err
	}
	return added, timetable, err
}

func (s *timetableService) BalanceReport(ctx context.Context) ([]model.Imbalance, error) {
	timetable, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, err
	}
	return model.BalanceReport(timetable, subjects, model.Days(timetable, s.rules.Days)), nil
}
