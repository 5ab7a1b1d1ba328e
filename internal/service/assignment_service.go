package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/store"
)

// MaxAttachmentSize is the per-file limit for assignment attachments
const MaxAttachmentSize int64 = 5 << 20

const (
	reasonTooLarge    = "File too large (>5MB)"
	reasonUnsupported = "Unsupported file type"
)

var allowedMimeTypes = []string{
	"image/png", "image/jpeg", "image/webp", "image/gif",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/csv",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Files whose declared type is not whitelisted are still accepted by extension
var allowedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".csv", ".ppt", ".pptx",
	".png", ".jpg", ".jpeg", ".gif", ".webp",
}

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrDeadlinePassed     = errors.New("assignment deadline has passed")
	ErrEmptySubmission    = errors.New("please enter your submission or attach files")
)

// FileInfo describes a file before it is accepted as an attachment. A zero Size is not checked.
type FileInfo struct {
	Name string
	Type string
	Size int64
}

type NewAssignment struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"required"`
	Subject     string              `json:"subject"`
	Deadline    time.Time           `json:"deadline" validate:"required"`
	Attachments []domain.Attachment `json:"attachments"`
}

type AssignmentService interface {
	Add(ctx context.Context, actor domain.User, input NewAssignment) (domain.Assignment, []domain.SkippedFile, error)
	List(ctx context.Context) ([]domain.Assignment, error)
	Get(ctx context.Context, id string) (domain.Assignment, error)
	// Submit records the actor's submission. A second submission replaces the content and appends attachments.
	Submit(ctx context.Context, actor domain.User, id, content string, attachments []domain.Attachment) (domain.Submission, []domain.SkippedFile, error)
	Submissions(ctx context.Context, actor domain.User, id string) ([]domain.Submission, error)
	ValidateAttachments(files []FileInfo) (valid []FileInfo, skipped []domain.SkippedFile)
}

type assignmentService struct {
	store       store.Store
	validate    *validator.Validate
	maxFileSize int64
	logger      *zap.Logger
	now         func() time.Time
}

func NewAssignmentService(
	st store.Store,
	validate *validator.Validate,
	maxFileSize int64,
	logger *zap.Logger,
	now func() time.Time,
) AssignmentService {
	return &assignmentService{
		store:       st,
		validate:    validate,
		maxFileSize: maxFileSize,
		logger:      logger,
		now:         now,
	}
}

func (s *assignmentService) Add(ctx context.Context, actor domain.User, input NewAssignment) (domain.Assignment, []domain.SkippedFile, error) {
	if !actor.Can(domain.RoleTeacher) {
		return domain.Assignment{}, nil, ErrForbidden
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate.Struct(input); err != nil {
		return domain.Assignment{}, nil, validationError(err)
	}

	attachments, skipped := s.filterAttachments(input.Attachments)
	assignment := domain.Assignment{
		Id:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Subject:     strings.TrimSpace(input.Subject),
		Deadline:    input.Deadline,
		Attachments: attachments,
		CreatedBy:   actor.DisplayName(),
		CreatedAt:   s.now().UTC(),
		Submissions: []domain.Submission{},
	}

	assignments, err := s.List(ctx)
	if err != nil {
		return domain.Assignment{}, nil, err
	}
	assignments = append(assignments, assignment)
	if err := store.SetJSON(ctx, s.store, store.AssignmentsKey, assignments); err != nil {
		return domain.Assignment{}, nil, err
	}

	s.logger.Info("assignment added", zap.String("id", assignment.Id), zap.String("by", actor.Username))
	return assignment, skipped, nil
}

func (s *assignmentService) List(ctx context.Context) ([]domain.Assignment, error) {
	assignments := []domain.Assignment{}
	if _, err := store.GetJSON(ctx, s.store, store.AssignmentsKey, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *assignmentService) Get(ctx context.Context, id string) (domain.Assignment, error) {
	assignments, err := s.List(ctx)
	if err != nil {
		return domain.Assignment{}, err
	}
	assignment, ok := lo.Find(assignments, func(assignment domain.Assignment) bool { return assignment.Id == id })
	if !ok {
		return domain.Assignment{}, ErrAssignmentNotFound
	}
	return assignment, nil
}

func (s *assignmentService) Submit(
	ctx context.Context,
	actor domain.User,
	id, content string,
	attachments []domain.Attachment,
) (domain.Submission, []domain.SkippedFile, error) {
	if actor.Type != domain.RoleStudent {
		return domain.Submission{}, nil, ErrForbidden
	}

	content = strings.TrimSpace(content)
	if content == "" && len(attachments) == 0 {
		return domain.Submission{}, nil, ErrEmptySubmission
	}

	assignments, err := s.List(ctx)
	if err != nil {
		return domain.Submission{}, nil, err
	}
	index := slices.IndexFunc(assignments, func(assignment domain.Assignment) bool { return assignment.Id == id })
	if index == -1 {
		return domain.Submission{}, nil, ErrAssignmentNotFound
	}
	assignment := &assignments[index]

	now := s.now().UTC()
	if assignment.Deadline.Before(now) {
		return domain.Submission{}, nil, ErrDeadlinePassed
	}

	accepted, skipped := s.filterAttachments(attachments)
	student := actor.DisplayName()

	var submission domain.Submission
	existing := slices.IndexFunc(assignment.Submissions, func(submission domain.Submission) bool {
		return submission.StudentName == student
	})
	if existing != -1 {
		previous := &assignment.Submissions[existing]
		previous.Content = content
		previous.Attachments = append(previous.Attachments, accepted...)
		previous.UpdatedAt = &now
		submission = *previous
	} else {
		submission = domain.Submission{
			StudentName: student,
			Content:     content,
			Attachments: accepted,
			SubmittedAt: now,
		}
		assignment.Submissions = append(assignment.Submissions, submission)
	}

	if err := store.SetJSON(ctx, s.store, store.AssignmentsKey, assignments); err != nil {
		return domain.Submission{}, nil, err
	}

	s.logger.Info("assignment submitted",
		zap.String("id", id),
		zap.String("student", student),
		zap.Bool("resubmission", existing != -1),
	)
	return submission, skipped, nil
}

func (s *assignmentService) Submissions(ctx context.Context, actor domain.User, id string) ([]domain.Submission, error) {
	if !actor.Can(domain.RoleTeacher) {
		return nil, ErrForbidden
	}
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return assignment.Submissions, nil
}

func (s *assignmentService) ValidateAttachments(files []FileInfo) ([]FileInfo, []domain.SkippedFile) {
	valid := make([]FileInfo, 0, len(files))
	skipped := make([]domain.SkippedFile, 0)
	for _, file := range files {
		if file.Size > s.maxFileSize {
			skipped = append(skipped, domain.SkippedFile{Name: file.Name, Reason: reasonTooLarge})
			continue
		}
		if !allowedType(file) {
			skipped = append(skipped, domain.SkippedFile{Name: file.Name, Reason: reasonUnsupported})
			continue
		}
		valid = append(valid, file)
	}
	return valid, skipped
}

// filterAttachments drops attachments whose type is not accepted. Uploaded attachments carry no size.
func (s *assignmentService) filterAttachments(attachments []domain.Attachment) ([]domain.Attachment, []domain.SkippedFile) {
	accepted := make([]domain.Attachment, 0, len(attachments))
	skipped := make([]domain.SkippedFile, 0)
	for _, attachment := range attachments {
		if !allowedType(FileInfo{Name: attachment.Name, Type: attachment.Type}) {
			skipped = append(skipped, domain.SkippedFile{Name: attachment.Name, Reason: reasonUnsupported})
			continue
		}
		accepted = append(accepted, attachment)
	}
	return accepted, skipped
}

// allowedType accepts an empty or whitelisted type, otherwise falls back to the file extension
func allowedType(file FileInfo) bool {
	if file.Type == "" || slices.Contains(allowedMimeTypes, file.Type) {
		return true
	}
	name := strings.ToLower(file.Name)
	return lo.SomeBy(allowedExtensions, func(extension string) bool {
		return strings.HasSuffix(name, extension)
	})
}
