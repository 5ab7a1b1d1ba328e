package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

type AssignmentHandler struct {
	assignments service.AssignmentService
	logger      *zap.Logger
}

func NewAssignmentHandler(assignments service.AssignmentService, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, logger: logger}
}

type submissionRequest struct {
	Content     string              `json:"content"`
	Attachments []domain.Attachment `json:"attachments"`
}

type assignmentResponse struct {
	Assignment domain.Assignment    `json:"assignment"`
	Skipped    []domain.SkippedFile `json:"skipped"`
}

type submissionResponse struct {
	Submission domain.Submission    `json:"submission"`
	Skipped    []domain.SkippedFile `json:"skipped"`
}

// ListAssignments GET /api/v1/assignments
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	assignments, err := h.assignments.List(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, assignments)
}

// AddAssignment POST /api/v1/assignments
func (h *AssignmentHandler) AddAssignment(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req service.NewAssignment
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	assignment, skipped, err := h.assignments.Add(c.Request.Context(), actor, req)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.Created(c, assignmentResponse{Assignment: assignment, Skipped: nonNil(skipped)})
}

// GetAssignment GET /api/v1/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	assignment, err := h.assignments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, assignment)
}

// Submit POST /api/v1/assignments/:id/submissions
func (h *AssignmentHandler) Submit(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req submissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	submission, skipped, err := h.assignments.Submit(c.Request.Context(), actor, c.Param("id"), req.Content, req.Attachments)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, submissionResponse{Submission: submission, Skipped: nonNil(skipped)})
}

// ListSubmissions GET /api/v1/assignments/:id/submissions
func (h *AssignmentHandler) ListSubmissions(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	submissions, err := h.assignments.Submissions(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, submissions)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
