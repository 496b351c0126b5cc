package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	"github.com/noah-isme/timetable-engine-api/internal/models"
	appErrors "github.com/noah-isme/timetable-engine-api/pkg/errors"
	"github.com/noah-isme/timetable-engine-api/pkg/jobs"
)

// DefaultMaxRepairIterations bounds the repair loop. Each repair round trip
// to the oracle is expensive, so the cap is a cost policy, not an input-sized
// value.
const DefaultMaxRepairIterations = 3

const defaultRunLabel = "default"

// recoverBatchSize caps how many stranded queued runs a restart picks up.
const recoverBatchSize = 100

// CandidateOracle produces, repairs, and polishes timetable candidates. The
// engine treats it as a black box and never assumes its output is well-formed.
type CandidateOracle interface {
	Generate(ctx context.Context, req dto.CandidateRequest) ([]dto.SessionRecord, error)
	Resolve(ctx context.Context, req dto.RepairRequest) ([]dto.SessionRecord, error)
	Optimize(ctx context.Context, req dto.OptimizeRequest) ([]dto.SessionRecord, error)
}

type runRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	List(ctx context.Context, filter models.RunFilter) ([]models.TimetableRun, int, error)
	FindByID(ctx context.Context, id string) (*models.TimetableRun, error)
	UpdateResult(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	Delete(ctx context.Context, id string) error
}

type runSlotRepository interface {
	ReplaceForRun(ctx context.Context, exec sqlx.ExtContext, runID string, slots []models.RunSlot) error
	ListByRun(ctx context.Context, runID string) ([]models.RunSlot, error)
}

type runTxProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type runCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type runJobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// RunState is the value threaded through the repair pipeline. Every
// transition takes the current state and returns a new one; nothing mutates
// a state in place, which keeps each step independently testable.
type RunState struct {
	Status    models.RunStatus
	Iteration int
	Sessions  []models.Session
	Conflicts []models.Conflict
	Dropped   int
}

// TimetableRunConfig governs run behaviour.
type TimetableRunConfig struct {
	MaxRepairIterations int
	CacheTTL            time.Duration
}

// TimetableRunService drives the bounded generate/validate/repair loop
// against the candidate oracle and persists finished runs.
type TimetableRunService struct {
	oracle    CandidateOracle
	validator *TimetableValidator
	runs      runRepository
	slots     runSlotRepository
	tx        runTxProvider
	cache     runCache
	queue     runJobDispatcher
	metrics   *MetricsService
	validate  *validator.Validate
	logger    *zap.Logger
	cfg       TimetableRunConfig
}

// NewTimetableRunService wires run dependencies.
func NewTimetableRunService(
	oracle CandidateOracle,
	timetableValidator *TimetableValidator,
	runs runRepository,
	slots runSlotRepository,
	tx runTxProvider,
	cache runCache,
	queue runJobDispatcher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableRunConfig,
) *TimetableRunService {
	if timetableValidator == nil {
		timetableValidator = NewTimetableValidator(0)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRepairIterations <= 0 {
		cfg.MaxRepairIterations = DefaultMaxRepairIterations
	}
	return &TimetableRunService{
		oracle:    oracle,
		validator: timetableValidator,
		runs:      runs,
		slots:     slots,
		tx:        tx,
		cache:     cache,
		queue:     queue,
		metrics:   metrics,
		validate:  validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// AttachQueue wires the background queue after construction. The queue's
// worker needs the service, so the two are linked in a second step.
func (s *TimetableRunService) AttachQueue(queue runJobDispatcher) {
	s.queue = queue
}

// Generate runs the full pipeline synchronously and persists the result.
func (s *TimetableRunService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	req = withDefaults(req)

	state := s.Execute(ctx, req)

	run, err := s.persist(ctx, req, state)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordRun(state.Status, state.Iteration, len(state.Conflicts))
	}
	s.invalidateRunCache(ctx, run.ID)

	return s.buildResponse(run, state, req.Faculty), nil
}

// Execute walks the state machine: generate, then validate with conditional
// routing to resolve (bounded by the iteration cap), optimize, finalize.
// It never returns an error: every oracle failure degrades to a smaller or
// unchanged assignment plus a reported condition.
func (s *TimetableRunService) Execute(ctx context.Context, req dto.GenerateTimetableRequest) RunState {
	state := RunState{Status: models.RunStatusInitializing}
	state = s.stepGenerate(ctx, state, req)

	for {
		state = s.stepValidate(state, req.Faculty)
		if state.Status == models.RunStatusValid {
			state = s.stepOptimize(ctx, state, req)
			break
		}
		if state.Iteration >= s.cfg.MaxRepairIterations {
			break
		}
		state = s.stepResolve(ctx, state, req)
	}

	state.Status = models.RunStatusFinalized
	if len(state.Conflicts) > 0 {
		s.logger.Sugar().Warnw("run finalized with residual conflicts",
			"conflicts", len(state.Conflicts), "iterations", state.Iteration)
	}
	return state
}

// ValidateOnly maps the supplied records and runs the detector on them.
func (s *TimetableRunService) ValidateOnly(ctx context.Context, req dto.ValidateTimetableRequest) (*dto.ValidateTimetableResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable validation payload")
	}
	sessions, dropped := s.mapRecords(req.Sessions)
	valid, conflicts := s.validator.Validate(sessions, req.Faculty)
	if s.metrics != nil {
		s.metrics.RecordConflicts(conflicts)
	}
	return &dto.ValidateTimetableResponse{Valid: valid, Conflicts: conflicts, Dropped: dropped}, nil
}

// Enqueue persists a queued run and hands it to the worker queue.
func (s *TimetableRunService) Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.RunResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "asynchronous runs are disabled")
	}
	req = withDefaults(req)

	payload, err := json.Marshal(map[string]any{"request": req})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode run request")
	}
	run := &models.TimetableRun{
		Label:  req.Label,
		Status: models.RunStatusQueued,
		Meta:   types.JSONText(payload),
	}
	if err := s.runs.CreateVersioned(ctx, nil, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable run")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: "timetable_run"}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue timetable run")
	}
	return &dto.RunResponse{RunID: run.ID, Label: run.Label, Version: run.Version, Status: run.Status}, nil
}

// RecoverQueued re-enqueues runs left in the queued state by a previous
// process, so a restart does not strand accepted work. Returns the number of
// runs put back on the queue.
func (s *TimetableRunService) RecoverQueued(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, nil
	}

	stranded, _, err := s.runs.List(ctx, models.RunFilter{Status: models.RunStatusQueued, PageSize: recoverBatchSize})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list queued runs")
	}

	recovered := 0
	for _, run := range stranded {
		if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: "timetable_run"}); err != nil {
			s.logger.Sugar().Warnw("failed to re-enqueue stranded run", "run_id", run.ID, "error", err)
			continue
		}
		recovered++
	}
	return recovered, nil
}

// GetRun loads a persisted run, read-through cached when a cache is wired.
func (s *TimetableRunService) GetRun(ctx context.Context, id string) (*dto.RunResponse, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}

	cacheKey := runCacheKey(id)
	if s.cache != nil {
		var cached dto.RunResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheHit(true)
			}
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Sugar().Warnw("run cache read failed", "run_id", id, "error", err)
		}
		if s.metrics != nil {
			s.metrics.RecordCacheHit(false)
		}
	}

	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	slots, err := s.slots.ListByRun(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run slots")
	}

	resp := s.responseFromStored(run, slots)
	if s.cache != nil && run.Status == models.RunStatusFinalized {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("run cache write failed", "run_id", id, "error", err)
		}
	}
	return resp, nil
}

// ListRuns returns stored runs matching the filter plus pagination metadata.
func (s *TimetableRunService) ListRuns(ctx context.Context, query dto.RunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	filter := models.RunFilter{Label: query.Label, Page: query.Page, PageSize: query.Limit}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	runs, total, err := s.runs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	return runs, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// GetSlots returns the persisted session rows of a run.
func (s *TimetableRunService) GetSlots(ctx context.Context, id string) ([]models.RunSlot, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	if _, err := s.runs.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	slots, err := s.slots.ListByRun(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable run slots")
	}
	return slots, nil
}

// DeleteRun removes a run and its cache entry.
func (s *TimetableRunService) DeleteRun(ctx context.Context, id string) error {
	if err := s.runs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable run")
	}
	s.invalidateRunCache(ctx, id)
	return nil
}

// --- State machine steps ---

func (s *TimetableRunService) stepGenerate(ctx context.Context, state RunState, req dto.GenerateTimetableRequest) RunState {
	next := state
	next.Status = models.RunStatusGenerated

	records, err := s.callOracle(ctx, "generate", func() ([]dto.SessionRecord, error) {
		return s.oracle.Generate(ctx, dto.CandidateRequest{
			Courses:       req.Courses,
			Faculty:       req.Faculty,
			AvailableDays: req.AvailableDays,
			TimeSlots:     req.TimeSlots,
		})
	})
	if err != nil {
		// Degraded but not fatal: the run proceeds with an empty assignment.
		s.logger.Sugar().Warnw("oracle generate failed, proceeding with empty assignment", "error", err)
		next.Sessions = nil
		return next
	}
	next.Sessions, next.Dropped = s.mapRecords(records)
	return next
}

func (s *TimetableRunService) stepValidate(state RunState, faculty []models.Faculty) RunState {
	next := state
	valid, conflicts := s.validator.Validate(state.Sessions, faculty)
	next.Conflicts = conflicts
	if valid {
		next.Status = models.RunStatusValid
	} else {
		next.Status = models.RunStatusHasConflicts
	}
	if s.metrics != nil {
		s.metrics.RecordConflicts(conflicts)
	}
	return next
}

func (s *TimetableRunService) stepResolve(ctx context.Context, state RunState, req dto.GenerateTimetableRequest) RunState {
	next := state
	next.Status = models.RunStatusResolved
	// The iteration counter advances even on failure so the loop always
	// terminates.
	next.Iteration = state.Iteration + 1

	records, err := s.callOracle(ctx, "resolve", func() ([]dto.SessionRecord, error) {
		return s.oracle.Resolve(ctx, dto.RepairRequest{
			Sessions:  sessionRecords(state.Sessions),
			Conflicts: models.ConflictMessages(state.Conflicts),
			Courses:   req.Courses,
			Faculty:   req.Faculty,
		})
	})
	if err != nil {
		s.logger.Sugar().Warnw("oracle resolve failed, keeping prior assignment", "iteration", next.Iteration, "error", err)
		return next
	}
	sessions, dropped := s.mapRecords(records)
	next.Sessions = sessions
	next.Dropped = state.Dropped + dropped
	return next
}

func (s *TimetableRunService) stepOptimize(ctx context.Context, state RunState, req dto.GenerateTimetableRequest) RunState {
	next := state
	next.Status = models.RunStatusOptimized

	records, err := s.callOracle(ctx, "optimize", func() ([]dto.SessionRecord, error) {
		return s.oracle.Optimize(ctx, dto.OptimizeRequest{
			Sessions: sessionRecords(state.Sessions),
			Courses:  req.Courses,
			Faculty:  req.Faculty,
		})
	})
	if err != nil {
		s.logger.Sugar().Warnw("oracle optimize failed, keeping prior assignment", "error", err)
		return next
	}
	sessions, dropped := s.mapRecords(records)
	if len(sessions) == 0 {
		// Never let optimization drop a valid schedule.
		return next
	}
	next.Sessions = sessions
	next.Dropped = state.Dropped + dropped
	return next
}

func (s *TimetableRunService) callOracle(ctx context.Context, op string, call func() ([]dto.SessionRecord, error)) ([]dto.SessionRecord, error) {
	start := time.Now()
	records, err := call()
	if s.metrics != nil {
		s.metrics.ObserveOracleCall(op, err == nil, time.Since(start))
	}
	return records, err
}

// mapRecords applies the best-effort parsing policy: records that fail to
// map onto a well-formed Session are dropped individually and counted,
// never aborting the batch.
func (s *TimetableRunService) mapRecords(records []dto.SessionRecord) ([]models.Session, int) {
	sessions := make([]models.Session, 0, len(records))
	dropped := 0
	for _, record := range records {
		session := models.Session{
			CourseCode: record.CourseCode,
			FacultyID:  record.FacultyID,
			Day:        models.DayOfWeek(record.Day),
			TimeSlot:   models.ClockInterval{StartTime: record.TimeSlot.StartTime, EndTime: record.TimeSlot.EndTime},
			Room:       record.Room,
		}
		if err := session.Validate(); err != nil {
			dropped++
			s.logger.Sugar().Debugw("dropping malformed candidate record",
				"course", record.CourseCode, "day", record.Day, "error", err)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, dropped
}

// --- Persistence & response shaping ---

func (s *TimetableRunService) persist(ctx context.Context, req dto.GenerateTimetableRequest, state RunState) (*models.TimetableRun, error) {
	conflictsJSON, err := json.Marshal(state.Conflicts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode run conflicts")
	}
	metaJSON, err := json.Marshal(map[string]any{
		"summary":   summarize(state.Sessions),
		"workloads": facultyWorkloads(state.Sessions, req.Faculty),
		"dropped":   state.Dropped,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode run metadata")
	}

	run := &models.TimetableRun{
		Label:        req.Label,
		Status:       state.Status,
		Iterations:   state.Iteration,
		SessionCount: len(state.Sessions),
		Conflicts:    types.JSONText(conflictsJSON),
		Meta:         types.JSONText(metaJSON),
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.runs.CreateVersioned(ctx, tx, run); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable run")
		return nil, err
	}
	if err = s.slots.ReplaceForRun(ctx, tx, run.ID, slotRows(run.ID, state.Sessions)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable run slots")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit run transaction")
		return nil, err
	}
	return run, nil
}

// PersistResult updates an existing (asynchronous) run with pipeline output.
func (s *TimetableRunService) PersistResult(ctx context.Context, run *models.TimetableRun, state RunState, faculty []models.Faculty) error {
	conflictsJSON, err := json.Marshal(state.Conflicts)
	if err != nil {
		return fmt.Errorf("encode run conflicts: %w", err)
	}
	metaJSON, err := json.Marshal(map[string]any{
		"summary":   summarize(state.Sessions),
		"workloads": facultyWorkloads(state.Sessions, faculty),
		"dropped":   state.Dropped,
	})
	if err != nil {
		return fmt.Errorf("encode run metadata: %w", err)
	}

	run.Status = state.Status
	run.Iterations = state.Iteration
	run.SessionCount = len(state.Sessions)
	run.Conflicts = types.JSONText(conflictsJSON)
	run.Meta = types.JSONText(metaJSON)

	if s.tx == nil {
		if err := s.runs.UpdateResult(ctx, nil, run); err != nil {
			return fmt.Errorf("update run result: %w", err)
		}
		return s.slots.ReplaceForRun(ctx, nil, run.ID, slotRows(run.ID, state.Sessions))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.runs.UpdateResult(ctx, tx, run); err != nil {
		return fmt.Errorf("update run result: %w", err)
	}
	if err = s.slots.ReplaceForRun(ctx, tx, run.ID, slotRows(run.ID, state.Sessions)); err != nil {
		return fmt.Errorf("replace run slots: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run transaction: %w", err)
	}
	s.invalidateRunCache(ctx, run.ID)
	return nil
}

// MarkRunning flags a queued run as picked up by a worker.
func (s *TimetableRunService) MarkRunning(ctx context.Context, run *models.TimetableRun) error {
	run.Status = models.RunStatusRunning
	return s.runs.UpdateResult(ctx, nil, run)
}

// MarkFailed flags a run whose worker exhausted its retries.
func (s *TimetableRunService) MarkFailed(ctx context.Context, run *models.TimetableRun) error {
	run.Status = models.RunStatusFailed
	return s.runs.UpdateResult(ctx, nil, run)
}

// FindRun loads the raw run row.
func (s *TimetableRunService) FindRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	return s.runs.FindByID(ctx, id)
}

// RecordRunMetrics publishes terminal run metrics.
func (s *TimetableRunService) RecordRunMetrics(state RunState) {
	if s.metrics != nil {
		s.metrics.RecordRun(state.Status, state.Iteration, len(state.Conflicts))
	}
}

func (s *TimetableRunService) buildResponse(run *models.TimetableRun, state RunState, faculty []models.Faculty) *dto.RunResponse {
	return &dto.RunResponse{
		RunID:      run.ID,
		Label:      run.Label,
		Version:    run.Version,
		Status:     state.Status,
		Iterations: state.Iteration,
		Sessions:   sessionRecords(state.Sessions),
		Conflicts:  state.Conflicts,
		Summary:    summarize(state.Sessions),
		Workloads:  facultyWorkloads(state.Sessions, faculty),
	}
}

func (s *TimetableRunService) responseFromStored(run *models.TimetableRun, slots []models.RunSlot) *dto.RunResponse {
	sessions := make([]models.Session, 0, len(slots))
	for _, slot := range slots {
		sessions = append(sessions, slot.Session())
	}
	var conflicts []models.Conflict
	if len(run.Conflicts) > 0 {
		_ = json.Unmarshal(run.Conflicts, &conflicts)
	}
	return &dto.RunResponse{
		RunID:      run.ID,
		Label:      run.Label,
		Version:    run.Version,
		Status:     run.Status,
		Iterations: run.Iterations,
		Sessions:   sessionRecords(sessions),
		Conflicts:  conflicts,
		Summary:    summarize(sessions),
	}
}

func (s *TimetableRunService) invalidateRunCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, runCacheKey(id)); err != nil {
		s.logger.Sugar().Warnw("run cache invalidation failed", "run_id", id, "error", err)
	}
}

// --- Helpers ---

func withDefaults(req dto.GenerateTimetableRequest) dto.GenerateTimetableRequest {
	if req.Label == "" {
		req.Label = defaultRunLabel
	}
	if len(req.AvailableDays) == 0 {
		req.AvailableDays = models.WorkingDays()
	}
	if len(req.TimeSlots) == 0 {
		req.TimeSlots = models.DefaultTimeSlots()
	}
	return req
}

func sessionRecords(sessions []models.Session) []dto.SessionRecord {
	records := make([]dto.SessionRecord, 0, len(sessions))
	for _, session := range sessions {
		records = append(records, dto.SessionRecord{
			CourseCode: session.CourseCode,
			FacultyID:  session.FacultyID,
			Day:        string(session.Day),
			TimeSlot:   dto.TimeSlotPayload{StartTime: session.TimeSlot.StartTime, EndTime: session.TimeSlot.EndTime},
			Room:       session.Room,
		})
	}
	return records
}

func slotRows(runID string, sessions []models.Session) []models.RunSlot {
	rows := make([]models.RunSlot, 0, len(sessions))
	for _, session := range sessions {
		rows = append(rows, models.RunSlot{
			ID:         uuid.NewString(),
			RunID:      runID,
			CourseCode: session.CourseCode,
			FacultyID:  session.FacultyID,
			DayOfWeek:  string(session.Day),
			StartTime:  session.TimeSlot.StartTime,
			EndTime:    session.TimeSlot.EndTime,
			Room:       session.Room,
		})
	}
	return rows
}

func summarize(sessions []models.Session) models.RunSummary {
	courses := make(map[string]struct{})
	faculty := make(map[string]struct{})
	days := make(map[models.DayOfWeek]struct{})
	for _, session := range sessions {
		courses[session.CourseCode] = struct{}{}
		faculty[session.FacultyID] = struct{}{}
		days[session.Day] = struct{}{}
	}
	summary := models.RunSummary{
		TotalSlots:      len(sessions),
		UniqueCourses:   len(courses),
		UniqueFaculty:   len(faculty),
		DaysWithClasses: len(days),
	}
	if len(days) > 0 {
		summary.AvgSlotsPerDay = float64(len(sessions)) / float64(len(days))
	}
	return summary
}

func facultyWorkloads(sessions []models.Session, faculty []models.Faculty) []models.FacultyWorkload {
	hours := make(map[string]float64)
	for _, session := range sessions {
		hours[session.FacultyID] += session.TimeSlot.Hours()
	}
	workloads := make([]models.FacultyWorkload, 0, len(faculty))
	for _, member := range faculty {
		total := hours[member.ID]
		workloads = append(workloads, models.FacultyWorkload{
			FacultyID:       member.ID,
			Hours:           total,
			MaxHoursPerWeek: member.MaxHoursPerWeek,
			Overloaded:      total > float64(member.MaxHoursPerWeek),
		})
	}
	return workloads
}

func runCacheKey(id string) string {
	return "timetable:run:" + id
}
