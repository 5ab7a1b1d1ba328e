package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/domain"
	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

type AttendanceHandler struct {
	attendance service.AttendanceService
	logger     *zap.Logger
}

func NewAttendanceHandler(attendance service.AttendanceService, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, logger: logger}
}

type sheetRequest struct {
	Subject string                             `json:"subject"`
	Date    string                             `json:"date"`
	Records map[string]domain.AttendanceStatus `json:"records"`
}

// GetSheet GET /api/v1/attendance?subject=MA101&date=2024-03-13
func (h *AttendanceHandler) GetSheet(c *gin.Context) {
	sheet, err := h.attendance.LoadSheet(c.Request.Context(), c.Query("subject"), c.Query("date"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, sheet)
}

// SaveSheet PUT /api/v1/attendance
func (h *AttendanceHandler) SaveSheet(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req sheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	sheet, err := h.attendance.SaveSheet(c.Request.Context(), actor, req.Subject, req.Date, req.Records)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, sheet)
}

// History GET /api/v1/attendance/history
func (h *AttendanceHandler) History(c *gin.Context) {
	history, err := h.attendance.History(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, history)
}

// Warnings GET /api/v1/attendance/warnings
func (h *AttendanceHandler) Warnings(c *gin.Context) {
	warnings, err := h.attendance.Analyze(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, warnings)
}
