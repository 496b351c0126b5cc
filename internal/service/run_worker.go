package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	"github.com/noah-isme/timetable-engine-api/pkg/jobs"
)

// RunWorker executes queued timetable runs from the background queue.
type RunWorker struct {
	runs       *TimetableRunService
	maxRetries int
	logger     *zap.Logger
}

// NewRunWorker builds a worker bound to the run service.
func NewRunWorker(runs *TimetableRunService, maxRetries int, logger *zap.Logger) *RunWorker {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunWorker{runs: runs, maxRetries: maxRetries, logger: logger}
}

// Handle processes one queued run. The job ID is the run ID; the original
// request travels in the run's meta column.
func (w *RunWorker) Handle(ctx context.Context, job jobs.Job) error {
	run, err := w.runs.FindRun(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The run was deleted while queued; nothing to retry.
			w.logger.Sugar().Warnw("queued run no longer exists", "run_id", job.ID)
			return nil
		}
		return fmt.Errorf("load queued run %s: %w", job.ID, err)
	}

	var envelope struct {
		Request dto.GenerateTimetableRequest `json:"request"`
	}
	if err := json.Unmarshal(run.Meta, &envelope); err != nil {
		w.logger.Sugar().Errorw("queued run has malformed request payload", "run_id", job.ID, "error", err)
		_ = w.runs.MarkFailed(ctx, run)
		return nil
	}

	if err := w.runs.MarkRunning(ctx, run); err != nil {
		return fmt.Errorf("mark run %s running: %w", job.ID, err)
	}

	state := w.runs.Execute(ctx, withDefaults(envelope.Request))
	if err := w.runs.PersistResult(ctx, run, state, envelope.Request.Faculty); err != nil {
		if job.Attempt+1 > w.maxRetries {
			_ = w.runs.MarkFailed(ctx, run)
		}
		return fmt.Errorf("persist run %s result: %w", job.ID, err)
	}
	w.runs.RecordRunMetrics(state)
	return nil
}
