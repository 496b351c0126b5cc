package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	"github.com/noah-isme/timetable-engine-api/internal/models"
	"github.com/noah-isme/timetable-engine-api/internal/service"
	appErrors "github.com/noah-isme/timetable-engine-api/pkg/errors"
)

type runnerMock struct {
	validateResp *dto.ValidateTimetableResponse
	generateResp *dto.RunResponse
	getErr       error
	deleted      string
	captured     dto.GenerateTimetableRequest
}

func (m *runnerMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error) {
	m.captured = req
	return m.generateResp, nil
}

func (m *runnerMock) Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error) {
	m.captured = req
	return &dto.RunResponse{RunID: "run-1", Status: models.RunStatusQueued}, nil
}

func (m *runnerMock) ValidateOnly(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error) {
	return m.validateResp, nil
}

func (m *runnerMock) ListRuns(ctx context.Context, query dto.RunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	return []models.TimetableRun{{ID: "run-1", Label: query.Label}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *runnerMock) GetRun(ctx context.Context, id string) (*dto.RunResponse, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &dto.RunResponse{RunID: id, Status: models.RunStatusFinalized}, nil
}

func (m *runnerMock) GetSlots(ctx context.Context, id string) ([]models.RunSlot, error) {
	return []models.RunSlot{{ID: "slot-1", RunID: id}}, nil
}

func (m *runnerMock) DeleteRun(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

type exporterMock struct{}

func (m *exporterMock) ExportRun(ctx context.Context, runID, format string) (*service.ExportArtifact, error) {
	return &service.ExportArtifact{
		FileName:    "timetable.csv",
		ContentType: "text/csv",
		Content:     []byte("Day,Start\n"),
	}, nil
}

func validGeneratePayload() []byte {
	return []byte(`{
		"label": "term-1",
		"courses": [{"code": "CS101", "facultyId": "F1", "hoursPerWeek": 3}],
		"faculty": [{"id": "F1", "maxHoursPerWeek": 20}]
	}`)
}

func performJSON(t *testing.T, router *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newTestRouter(mock *runnerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{runs: mock, exporter: &exporterMock{}}
	r := gin.New()
	r.POST("/timetables/validate", h.Validate)
	r.POST("/timetables/generate", h.Generate)
	r.POST("/timetables/runs", h.EnqueueRun)
	r.GET("/timetables/runs", h.ListRuns)
	r.GET("/timetables/runs/:id", h.GetRun)
	r.GET("/timetables/runs/:id/slots", h.Slots)
	r.GET("/timetables/runs/:id/export", h.Export)
	r.DELETE("/timetables/runs/:id", h.DeleteRun)
	return r
}

func TestTimetableHandlerValidate(t *testing.T) {
	mock := &runnerMock{validateResp: &dto.ValidateTimetableResponse{Valid: true}}
	router := newTestRouter(mock)

	w := performJSON(t, router, http.MethodPost, "/timetables/validate", []byte(`{"sessions":[]}`))
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ValidateTimetableResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Valid)
}

func TestTimetableHandlerValidateRejectsBrokenJSON(t *testing.T) {
	router := newTestRouter(&runnerMock{})
	w := performJSON(t, router, http.MethodPost, "/timetables/validate", []byte(`{"sessions":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerate(t *testing.T) {
	mock := &runnerMock{generateResp: &dto.RunResponse{RunID: "run-1", Status: models.RunStatusFinalized}}
	router := newTestRouter(mock)

	w := performJSON(t, router, http.MethodPost, "/timetables/generate", validGeneratePayload())
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "term-1", mock.captured.Label)
	require.Len(t, mock.captured.Courses, 1)
	assert.Equal(t, "CS101", mock.captured.Courses[0].Code)
}

func TestTimetableHandlerEnqueue(t *testing.T) {
	mock := &runnerMock{}
	router := newTestRouter(mock)

	w := performJSON(t, router, http.MethodPost, "/timetables/runs", validGeneratePayload())
	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestTimetableHandlerGetRunNotFound(t *testing.T) {
	mock := &runnerMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")}
	router := newTestRouter(mock)

	req, _ := http.NewRequest(http.MethodGet, "/timetables/runs/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerListRuns(t *testing.T) {
	router := newTestRouter(&runnerMock{})
	req, _ := http.NewRequest(http.MethodGet, "/timetables/runs?label=term-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.TimetableRun `json:"data"`
		Pagination *models.Pagination    `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "term-1", envelope.Data[0].Label)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestTimetableHandlerExport(t *testing.T) {
	router := newTestRouter(&runnerMock{})
	req, _ := http.NewRequest(http.MethodGet, "/timetables/runs/run-1/export?format=csv", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable.csv")
}

func TestTimetableHandlerDelete(t *testing.T) {
	mock := &runnerMock{}
	router := newTestRouter(mock)
	req, _ := http.NewRequest(http.MethodDelete, "/timetables/runs/run-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "run-1", mock.deleted)
}
