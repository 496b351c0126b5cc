package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine-api/internal/models"
	appErrors "github.com/noah-isme/timetable-engine-api/pkg/errors"
	"github.com/noah-isme/timetable-engine-api/pkg/export"
)

type exportRunSource interface {
	FindByID(ctx context.Context, id string) (*models.TimetableRun, error)
}

type exportSlotSource interface {
	ListByRun(ctx context.Context, runID string) ([]models.RunSlot, error)
}

// ExportArtifact is a rendered download.
type ExportArtifact struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders stored runs as CSV or PDF downloads.
type ExportService struct {
	runs   exportRunSource
	slots  exportSlotSource
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService wires export dependencies.
func NewExportService(runs exportRunSource, slots exportSlotSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		runs:   runs,
		slots:  slots,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var exportHeaders = []string{"Day", "Start", "End", "Course", "Faculty", "Room"}

// ExportRun renders the run's schedule in the requested format.
func (s *ExportService) ExportRun(ctx context.Context, runID, format string) (*ExportArtifact, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	slots, err := s.slots.ListByRun(ctx, runID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run slots")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(slots))}
	for _, slot := range slots {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":     slot.DayOfWeek,
			"Start":   slot.StartTime,
			"End":     slot.EndTime,
			"Course":  slot.CourseCode,
			"Faculty": slot.FacultyID,
			"Room":    slot.Room,
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	base := fmt.Sprintf("timetable-%s-v%d-%s", run.Label, run.Version, stamp)

	switch format {
	case "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Timetable %s v%d", run.Label, run.Version))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF export")
		}
		return &ExportArtifact{FileName: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV export")
		}
		return &ExportArtifact{FileName: base + ".csv", ContentType: "text/csv", Content: content}, nil
	}
}
