package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/api/middleware"
	"github.com/limaJavier/smartclassroom/internal/config"
	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/model"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Subject    *SubjectHandler
	Timetable  *TimetableHandler
	Attendance *AttendanceHandler
	Assignment *AssignmentHandler
	Upload     *UploadHandler
}

func NewHandler(cfg *config.Config, svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.User, logger),
		User:       NewUserHandler(svc.User, logger),
		Subject:    NewSubjectHandler(svc.Subject, logger),
		Timetable:  NewTimetableHandler(svc.Timetable, svc.Export, logger),
		Attendance: NewAttendanceHandler(svc.Attendance, logger),
		Assignment: NewAssignmentHandler(svc.Assignment, logger),
		Upload:     NewUploadHandler(cfg.Upload, logger),
	}
}

// mustGetUser returns the authenticated user or writes a 401
func mustGetUser(c *gin.Context) (domain.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return domain.User{}, false
	}
	return user, true
}

// fail maps service errors to HTTP responses
func fail(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyImport),
		errors.Is(err, service.ErrMissingSubject),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrFutureDate),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrEmptySubmission),
		errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrPasswordTooShort):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrSubjectNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrUnknownUser):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrSubjectCodeExists):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, service.ErrDeadlinePassed):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeDeadline, err.Error())
	case errors.Is(err, model.ErrNoSubjects):
		response.Error(c, http.StatusUnprocessableEntity, response.CodeNoSubjects, "please add subjects first")
	case errors.Is(err, service.ErrExportEmpty):
		response.NotFound(c, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		response.InternalError(c)
	}
}
