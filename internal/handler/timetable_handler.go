package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	"github.com/noah-isme/timetable-engine-api/internal/models"
	"github.com/noah-isme/timetable-engine-api/internal/service"
	appErrors "github.com/noah-isme/timetable-engine-api/pkg/errors"
	"github.com/noah-isme/timetable-engine-api/pkg/response"
)

const (
	maxCoursesPerRequest  = 256
	maxSessionsPerRequest = 2048
)

type timetableRunner interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error)
	Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error)
	ValidateOnly(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error)
	ListRuns(ctx context.Context, query dto.RunQuery) ([]models.TimetableRun, *models.Pagination, error)
	GetRun(ctx context.Context, id string) (*dto.RunResponse, error)
	GetSlots(ctx context.Context, id string) ([]models.RunSlot, error)
	DeleteRun(ctx context.Context, id string) error
}

type runExporter interface {
	ExportRun(ctx context.Context, runID, format string) (*service.ExportArtifact, error)
}

// TimetableHandler exposes timetable engine endpoints.
type TimetableHandler struct {
	runs     timetableRunner
	exporter runExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(runs *service.TimetableRunService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{runs: runs, exporter: exporter}
}

// Validate godoc
// @Summary Validate a timetable against scheduling constraints
// @Description Runs the four constraint checks and returns all detected conflicts without attempting repair.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.ValidateTimetableRequest true "Timetable validation payload"
// @Success 200 {object} response.Envelope
// @Router /timetables/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	var req dto.ValidateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}
	if len(req.Sessions) > maxSessionsPerRequest {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "sessions exceeds supported limit"))
		return
	}
	result, err := h.runs.ValidateOnly(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Generate godoc
// @Summary Generate a timetable synchronously
// @Description Runs the full generate/validate/repair pipeline and persists the finished run.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Timetable generation payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.Courses) > maxCoursesPerRequest {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses exceeds supported limit"))
		return
	}
	result, err := h.runs.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// EnqueueRun godoc
// @Summary Queue a timetable run for background execution
// @Tags Runs
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Timetable generation payload"
// @Success 202 {object} response.Envelope
// @Router /timetables/runs [post]
func (h *TimetableHandler) EnqueueRun(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.Courses) > maxCoursesPerRequest {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "courses exceeds supported limit"))
		return
	}
	result, err := h.runs.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// ListRuns godoc
// @Summary List stored timetable runs
// @Tags Runs
// @Produce json
// @Param label query string false "Run label"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	var query dto.RunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid list query"))
		return
	}
	runs, pagination, err := h.runs.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// GetRun godoc
// @Summary Get a stored timetable run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	result, err := h.runs.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Slots godoc
// @Summary Get the session rows of a run
// @Tags Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id}/slots [get]
func (h *TimetableHandler) Slots(c *gin.Context) {
	slots, err := h.runs.GetSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Export godoc
// @Summary Export a run's schedule as CSV or PDF
// @Tags Runs
// @Produce octet-stream
// @Param id path string true "Run ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Router /timetables/runs/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	artifact, err := h.exporter.ExportRun(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

// DeleteRun godoc
// @Summary Delete a stored timetable run
// @Tags Runs
// @Param id path string true "Run ID"
// @Success 204
// @Router /timetables/runs/{id} [delete]
func (h *TimetableHandler) DeleteRun(c *gin.Context) {
	if err := h.runs.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
