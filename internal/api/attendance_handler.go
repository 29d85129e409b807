package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/service"
)

// AttendanceHandler handles ledger endpoints
type AttendanceHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAttendanceHandler creates a new AttendanceHandler
func NewAttendanceHandler(services *service.Services, log zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		services: services,
		log:      log.With().Str("handler", "attendance").Logger(),
	}
}

// Submit handles POST /v1/attendance
//
// 201 new record, 200 confirmed overwrite, 409 duplicate awaiting
// confirmation, 403 not authorized, 422 invalid submission.
func (h *AttendanceHandler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.services.Attendance.SubmitAttendance(c.Request.Context(), sessionFrom(c), &req)
	if errors.Is(err, service.ErrNoSubmitter) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": HeaderSubmitter + " header is required"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Attendance submission failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record attendance"})
		return
	}

	c.JSON(submitStatus(result), result)
}

func submitStatus(result *models.SubmitResult) int {
	switch {
	case len(result.Errors) > 0:
		return http.StatusUnprocessableEntity
	case result.RequiresConfirmation:
		return http.StatusConflict
	case !result.Accepted:
		return http.StatusForbidden
	case result.Record != nil && result.Record.Action == models.ActionOverwrite:
		return http.StatusOK
	default:
		return http.StatusCreated
	}
}

// ListCurrent handles GET /v1/attendance?center=...&space=...&from=...&to=...&submitted_by=...
func (h *AttendanceHandler) ListCurrent(c *gin.Context) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
		return
	}

	records, err := h.services.Attendance.GetCurrentAttendance(c.Request.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read current attendance")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read attendance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(records),
		"records": records,
	})
}

// DailyTotals handles GET /v1/attendance/daily?center=...&days=...&format=...
func (h *AttendanceHandler) DailyTotals(c *gin.Context) {
	ctx := c.Request.Context()
	center := models.Center(c.Query("center"))

	days := 0
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
		days = n
	}

	if format := c.Query("format"); format != "" {
		if err := h.services.Export.StreamDailyTotals(ctx, c.Writer, center, days, format); err != nil {
			h.log.Error().Err(err).Str("format", format).Msg("Daily report export failed")
			if !c.Writer.Written() {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
		}
		return
	}

	totals, err := h.services.Attendance.DailyTotals(ctx, center, days)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build daily report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build daily report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"center": center,
		"totals": totals,
	})
}

// Export handles GET /v1/attendance/export?format=...
// Streams the current view directly to the response
func (h *AttendanceHandler) Export(c *gin.Context) {
	var filter models.AttendanceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
		return
	}

	format := c.Query("format")
	if format == "" {
		format = service.FormatCSV
	}
	if format != service.FormatCSV && format != service.FormatNDJSON && format != service.FormatJSON {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: csv, ndjson, json"})
		return
	}

	h.log.Info().
		Str("format", format).
		Str("center", string(filter.Center)).
		Msg("Starting attendance export")

	if err := h.services.Export.StreamAttendance(c.Request.Context(), c.Writer, filter, format); err != nil {
		h.log.Error().Err(err).Msg("Export failed")
		// Can't return error JSON after streaming has started
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		}
	}
}

// Repair handles POST /v1/ledger/repair?apply=true
// Without apply the repair is only reported.
func (h *AttendanceHandler) Repair(c *gin.Context) {
	apply, _ := strconv.ParseBool(c.Query("apply"))

	report, err := h.services.Attendance.RepairLedger(c.Request.Context(), sessionFrom(c), apply)
	if errors.Is(err, service.ErrNoSubmitter) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": HeaderSubmitter + " header is required to apply repairs"})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Bool("apply", apply).Msg("Ledger repair failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ledger repair failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// CheckAccess handles GET /v1/access?center=...&space=...&submitter=...
// The submitter defaults to the session's.
func (h *AttendanceHandler) CheckAccess(c *gin.Context) {
	center := c.Query("center")
	if center == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "center is required"})
		return
	}
	submitter := c.Query("submitter")
	if submitter == "" {
		submitter = sessionFrom(c).Submitter
	}

	decision := h.services.Attendance.CheckAccess(models.Center(center), c.Query("space"), submitter)
	c.JSON(http.StatusOK, gin.H{
		"center":    center,
		"space":     c.Query("space"),
		"submitter": submitter,
		"allowed":   decision.Allowed,
		"reason":    decision.Reason,
	})
}

// Policy handles GET /v1/access/policy
func (h *AttendanceHandler) Policy(c *gin.Context) {
	if h.services.Policy == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "access policy not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"centers": h.services.Policy.Entries()})
}
