package handler

import (
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/limaJavier/smartclassroom/internal/service"
	"github.com/limaJavier/smartclassroom/pkg/model"
	"github.com/limaJavier/smartclassroom/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

type TimetableHandler struct {
	timetables service.TimetableService
	exports    service.ExportService
	logger     *zap.Logger
}

func NewTimetableHandler(timetables service.TimetableService, exports service.ExportService, logger *zap.Logger) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, exports: exports, logger: logger}
}

type generateRequest struct {
	Rules map[string]any `json:"rules"`
}

type classRequest struct {
	Time    string `json:"time"`
	Day     string `json:"day"`
	Subject string `json:"subject"`
}

type importAndGenerateResponse struct {
	Added     int                  `json:"added"`
	Timetable []model.TimetableRow `json:"timetable"`
}

// GetTimetable GET /api/v1/timetable
func (h *TimetableHandler) GetTimetable(c *gin.Context) {
	timetable, err := h.timetables.Get(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, timetable)
}

// Generate POST /api/v1/timetable/generate
func (h *TimetableHandler) Generate(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	overrides, err := model.RuleOverridesFromMap(req.Rules)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	timetable, err := h.timetables.Generate(c.Request.Context(), actor, overrides)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, timetable)
}

// AddClass POST /api/v1/timetable/classes
func (h *TimetableHandler) AddClass(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	timetable, err := h.timetables.AddClass(c.Request.Context(), actor, req.Time, req.Day, req.Subject)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, timetable)
}

// ImportAndGenerate POST /api/v1/timetable/import
func (h *TimetableHandler) ImportAndGenerate(c *gin.Context) {
	actor, ok := mustGetUser(c)
	if !ok {
		return
	}
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	overrides, err := model.RuleOverridesFromMap(req.Rules)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	added, timetable, err := h.timetables.ImportAndGenerate(c.Request.Context(), actor, req.Text, overrides)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, importAndGenerateResponse{Added: added, Timetable: timetable})
}

// Balance GET /api/v1/timetable/balance
func (h *TimetableHandler) Balance(c *gin.Context) {
	report, err := h.timetables.BalanceReport(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	response.OK(c, report)
}

// ExportXLSX GET /api/v1/timetable/export.xlsx
func (h *TimetableHandler) ExportXLSX(c *gin.Context) {
	timetable, err := h.timetables.Get(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	buf, filename, err := h.exports.XLSX(timetable)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	attachment(c, filename, xlsxContentType, buf.Bytes())
}

// ExportICS GET /api/v1/timetable/export.ics?week=2024-03-11
func (h *TimetableHandler) ExportICS(c *gin.Context) {
	weekStart := time.Now()
	if week := c.Query("week"); week != "" {
		parsed, err := time.Parse("2006-01-02", week)
		if err != nil {
			response.BadRequest(c, "week must be a YYYY-MM-DD date")
			return
		}
		weekStart = parsed
	}

	timetable, err := h.timetables.Get(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	data, filename, err := h.exports.ICS(timetable, weekStart)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	attachment(c, filename, icsContentType, data)
}

func attachment(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Description", "File Transfer")
	// Non-ASCII names are percent-encoded as filename*=utf-8''...
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, contentType, data)
}
