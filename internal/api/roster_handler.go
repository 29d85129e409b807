package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/models"
	"github.com/attendance-ledger-api/internal/service"
	"github.com/attendance-ledger-api/internal/validation"
)

// RosterHandler handles roster and roster import endpoints
type RosterHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "roster").Logger(),
	}
}

// CreateImport handles POST /v1/roster/imports
// Accepts a multipart upload in the "file" field or the roster text as the raw body
func (h *RosterHandler) CreateImport(c *gin.Context) {
	ctx, cancel := contextWithTimeout(c, h.cfg.Server.WriteTimeout)
	defer cancel()

	sess := sessionFrom(c)
	if sess.Anonymous() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": HeaderSubmitter + " header is required"})
		return
	}

	// Get idempotency key from header
	idempotencyKey := c.GetHeader("Idempotency-Key")

	status := http.StatusCreated
	if idempotencyKey != "" {
		existing, err := h.services.Roster.GetImportByIdempotencyKey(ctx, idempotencyKey)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to check idempotency key")
		}
		if existing != nil {
			status = http.StatusOK
		}
	}

	data, err := h.readRoster(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.services.Roster.ImportRoster(ctx, sess, data, idempotencyKey)
	if err != nil {
		h.log.Error().Err(err).Msg("Roster import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to import roster"})
		return
	}

	if result.Skipped > 0 {
		result.ErrorReport = fmt.Sprintf("/v1/roster/imports/%s/errors?format=csv", result.ID)
	}

	c.JSON(status, result)
}

// readRoster returns the uploaded file, or the request body when no file
// was sent. Both are capped at the configured upload size.
func (h *RosterHandler) readRoster(c *gin.Context) ([]byte, error) {
	limit := h.cfg.Import.MaxUploadSize
	tooLarge := fmt.Errorf("roster too large, max size is %d MB", limit/(1024*1024))

	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		if header.Size > limit {
			return nil, tooLarge
		}
		data, err := io.ReadAll(io.LimitReader(file, limit))
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge
		}
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("roster file upload or text body is required")
	}
	return data, nil
}

// GetImport handles GET /v1/roster/imports/:import_id
func (h *RosterHandler) GetImport(c *gin.Context) {
	ctx := c.Request.Context()
	importID := c.Param("import_id")
	if importID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import_id is required"})
		return
	}
	if !validation.IsValidUUID(importID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import_id must be a UUID"})
		return
	}

	run, err := h.services.Roster.GetImport(ctx, importID)
	if err != nil {
		h.log.Error().Err(err).Str("import_id", importID).Msg("Failed to get import")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get import"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "import not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetImportErrors handles GET /v1/roster/imports/:import_id/errors
func (h *RosterHandler) GetImportErrors(c *gin.Context) {
	ctx := c.Request.Context()
	importID := c.Param("import_id")
	if importID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import_id is required"})
		return
	}
	if !validation.IsValidUUID(importID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "import_id must be a UUID"})
		return
	}

	errors, err := h.services.Roster.GetImportErrors(ctx, importID)
	if err != nil {
		h.log.Error().Err(err).Str("import_id", importID).Msg("Failed to get import errors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get errors"})
		return
	}

	// Determine format from query param
	format := c.Query("format")
	if format == "" {
		format = "json"
	}

	if format == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", importID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"line", "field", "message", "value"})
		for _, e := range errors {
			value := ""
			if e.Value != nil {
				value = fmt.Sprintf("%v", e.Value)
			}
			writer.Write([]string{strconv.Itoa(e.Line), e.Field, e.Message, value})
		}
		writer.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"import_id":   importID,
		"error_count": len(errors),
		"errors":      errors,
	})
}

// ListPeople handles GET /v1/roster?center=...&include_inactive=...&format=...
// Without format the roster is returned as a JSON document; with one it is
// streamed as a download.
func (h *RosterHandler) ListPeople(c *gin.Context) {
	ctx := c.Request.Context()
	center := models.Center(c.Query("center"))

	if format := c.Query("format"); format != "" {
		if err := h.services.Export.StreamRoster(ctx, c.Writer, center, format); err != nil {
			h.log.Error().Err(err).Str("format", format).Msg("Roster export failed")
			if !c.Writer.Written() {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			}
		}
		return
	}

	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))
	people, err := h.services.Roster.ListPeople(ctx, center, includeInactive)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list roster")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list roster"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(people),
		"people": people,
	})
}

// AddPerson handles POST /v1/roster
func (h *RosterHandler) AddPerson(c *gin.Context) {
	var req models.PersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	person, errs, err := h.services.Roster.AddPerson(c.Request.Context(), sessionFrom(c), &req)
	switch {
	case errors.Is(err, service.ErrNoSubmitter):
		c.JSON(http.StatusUnauthorized, gin.H{"error": HeaderSubmitter + " header is required"})
		return
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to add person")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add person"})
		return
	case len(errs) > 0:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "errors": errs})
		return
	}

	c.JSON(http.StatusCreated, person)
}

// SetPersonStatus handles PATCH /v1/roster/status
func (h *RosterHandler) SetPersonStatus(c *gin.Context) {
	var req models.PersonStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	person, err := h.services.Roster.SetPersonActive(c.Request.Context(), sessionFrom(c), &req)
	switch {
	case errors.Is(err, service.ErrNoSubmitter):
		c.JSON(http.StatusUnauthorized, gin.H{"error": HeaderSubmitter + " header is required"})
	case errors.Is(err, service.ErrPersonNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
	case err != nil:
		h.log.Error().Err(err).Msg("Failed to update person")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update person"})
	default:
		c.JSON(http.StatusOK, person)
	}
}
