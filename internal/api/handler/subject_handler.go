package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/model"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

type SubjectHandler struct {
	subjects service.SubjectService
	logger   *zap.Logger
}

func NewSubjectHandler(subjects service.SubjectService, logger *zap.Logger) *SubjectHandler {
	return &SubjectHandler{subjects: subjects, logger: logger}
}

type subjectRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Semester    any    `json:"semester"`
	Description string `json:"description"`
}

type importRequest struct {
	Text  string         `json:"text"`
	Rules map[string]any `json:"rules"`
}

// ListSubjects GET /api/v1/subjects
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjects.List(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, subjects)
}

// AddSubject POST /api/v1/subjects
func (h *SubjectHandler) AddSubject(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req subjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	// Semesters arrive as numbers or numeric strings
	subjects := model.ProcessRawSubjects([]model.RawSubject{{
		Name:        req.Name,
		Code:        req.Code,
		Semester:    req.Semester,
		Description: req.Description,
	}})

	subject, err := h.subjects.Add(c.Request.Context(), actor, subjects[0])
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.Created(c, subject)
}

// DeleteSubject DELETE /api/v1/subjects/:code
func (h *SubjectHandler) DeleteSubject(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	if err := h.subjects.Delete(c.Request.Context(), actor, c.Param("code")); err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, nil)
}

// ImportSubjects POST /api/v1/subjects/import
func (h *SubjectHandler) ImportSubjects(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	added, err := h.subjects.BulkImport(c.Request.Context(), actor, req.Text)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"added": added})
}
