package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	"github.com/noah-isme/timetable-engine-api/internal/models"
	"github.com/noah-isme/timetable-engine-api/pkg/jobs"
)

type oracleStub struct {
	generateFn func(ctx context.Context, req dto.CandidateRequest) ([]dto.SessionRecord, error)
	resolveFn  func(ctx context.Context, req dto.RepairRequest) ([]dto.SessionRecord, error)
	optimizeFn func(ctx context.Context, req dto.OptimizeRequest) ([]dto.SessionRecord, error)

	generateCalls int
	resolveCalls  int
	optimizeCalls int
}

func (o *oracleStub) Generate(ctx context.Context, req dto.CandidateRequest) ([]dto.SessionRecord, error) {
	o.generateCalls++
	if o.generateFn != nil {
		return o.generateFn(ctx, req)
	}
	return nil, nil
}

func (o *oracleStub) Resolve(ctx context.Context, req dto.RepairRequest) ([]dto.SessionRecord, error) {
	o.resolveCalls++
	if o.resolveFn != nil {
		return o.resolveFn(ctx, req)
	}
	return nil, nil
}

func (o *oracleStub) Optimize(ctx context.Context, req dto.OptimizeRequest) ([]dto.SessionRecord, error) {
	o.optimizeCalls++
	if o.optimizeFn != nil {
		return o.optimizeFn(ctx, req)
	}
	return req.Sessions, nil
}

func record(course, faculty, day, start, end, room string) dto.SessionRecord {
	return dto.SessionRecord{
		CourseCode: course,
		FacultyID:  faculty,
		Day:        day,
		TimeSlot:   dto.TimeSlotPayload{StartTime: start, EndTime: end},
		Room:       room,
	}
}

func conflictingRecords() []dto.SessionRecord {
	return []dto.SessionRecord{
		record("CS101", "F1", "Monday", "09:00", "10:00", "R-101"),
		record("CS201", "F1", "Monday", "09:00", "10:00", "R-102"),
	}
}

func cleanRecords() []dto.SessionRecord {
	return []dto.SessionRecord{
		record("CS101", "F1", "Monday", "09:00", "10:00", "R-101"),
		record("CS201", "F2", "Monday", "10:00", "11:00", "R-101"),
	}
}

func newTestRunService(oracle *oracleStub) *TimetableRunService {
	return NewTimetableRunService(oracle, NewTimetableValidator(0), nil, nil, nil, nil, nil, nil, nil, nil,
		TimetableRunConfig{MaxRepairIterations: 3})
}

func testRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		Label:   "term-1",
		Courses: []models.Course{{Code: "CS101", FacultyID: "F1"}},
		Faculty: []models.Faculty{{ID: "F1", MaxHoursPerWeek: 20}},
	}
}

func TestExecuteValidFirstPass(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return cleanRecords(), nil
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Equal(t, models.RunStatusFinalized, state.Status)
	assert.Equal(t, 0, state.Iteration)
	assert.Empty(t, state.Conflicts)
	assert.Len(t, state.Sessions, 2)
	assert.Equal(t, 0, oracle.resolveCalls)
	assert.Equal(t, 1, oracle.optimizeCalls)
}

func TestExecuteTerminatesAfterRepairCap(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return conflictingRecords(), nil
		},
		resolveFn: func(context.Context, dto.RepairRequest) ([]dto.SessionRecord, error) {
			return conflictingRecords(), nil
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Equal(t, models.RunStatusFinalized, state.Status)
	assert.Equal(t, 3, state.Iteration)
	assert.Equal(t, 3, oracle.resolveCalls)
	assert.NotEmpty(t, state.Conflicts)
	// Optimization is skipped when the schedule never validated.
	assert.Equal(t, 0, oracle.optimizeCalls)
}

func TestExecuteRepairSucceedsMidway(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return conflictingRecords(), nil
		},
	}
	oracle.resolveFn = func(context.Context, dto.RepairRequest) ([]dto.SessionRecord, error) {
		if oracle.resolveCalls < 2 {
			return conflictingRecords(), nil
		}
		return cleanRecords(), nil
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Equal(t, models.RunStatusFinalized, state.Status)
	assert.Equal(t, 2, state.Iteration)
	assert.Empty(t, state.Conflicts)
	assert.Equal(t, 1, oracle.optimizeCalls)
}

func TestExecuteGenerateFailureDegradesToEmpty(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return nil, errors.New("producer down")
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Equal(t, models.RunStatusFinalized, state.Status)
	assert.Empty(t, state.Sessions)
	assert.Empty(t, state.Conflicts)
	assert.Equal(t, 0, oracle.resolveCalls)
}

func TestExecuteResolveFailureKeepsPriorAndCountsIteration(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return conflictingRecords(), nil
		},
		resolveFn: func(context.Context, dto.RepairRequest) ([]dto.SessionRecord, error) {
			return nil, errors.New("producer down")
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	// Failed repairs still consume iterations so the loop terminates.
	assert.Equal(t, 3, state.Iteration)
	assert.Len(t, state.Sessions, 2)
	assert.NotEmpty(t, state.Conflicts)
}

func TestExecuteOptimizeFailureKeepsValidSchedule(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return cleanRecords(), nil
		},
		optimizeFn: func(context.Context, dto.OptimizeRequest) ([]dto.SessionRecord, error) {
			return nil, errors.New("producer down")
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Equal(t, models.RunStatusFinalized, state.Status)
	assert.Len(t, state.Sessions, 2)
	assert.Empty(t, state.Conflicts)
}

func TestExecuteOptimizeNeverEmptiesSchedule(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return cleanRecords(), nil
		},
		optimizeFn: func(context.Context, dto.OptimizeRequest) ([]dto.SessionRecord, error) {
			return []dto.SessionRecord{}, nil
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Len(t, state.Sessions, 2)
}

func TestExecuteDropsMalformedRecordsIndividually(t *testing.T) {
	oracle := &oracleStub{
		generateFn: func(context.Context, dto.CandidateRequest) ([]dto.SessionRecord, error) {
			return []dto.SessionRecord{
				record("CS101", "F1", "Monday", "09:00", "10:00", "R-101"),
				record("CS201", "F2", "Someday", "09:00", "10:00", "R-102"),
				record("CS301", "F3", "Tuesday", "25:00", "26:00", "R-103"),
				record("", "F4", "Tuesday", "09:00", "10:00", "R-104"),
			}, nil
		},
	}
	svc := newTestRunService(oracle)

	state := svc.Execute(context.Background(), testRequest())

	assert.Len(t, state.Sessions, 1)
	assert.Equal(t, 3, state.Dropped)
	assert.Equal(t, "CS101", state.Sessions[0].CourseCode)
}

func TestValidateOnlyReportsConflictsAndDrops(t *testing.T) {
	svc := newTestRunService(&oracleStub{})

	resp, err := svc.ValidateOnly(context.Background(), dto.ValidateTimetableRequest{
		Sessions: []dto.SessionRecord{
			record("CS101", "F1", "Monday", "09:00", "10:00", "R-101"),
			record("CS201", "F1", "Monday", "09:30", "10:30", "R-102"),
			record("CS301", "F2", "monday", "09:00", "10:00", "R-103"),
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
	assert.Equal(t, 1, resp.Dropped)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, models.RuleFacultyOverlap, resp.Conflicts[0].Rule)
}

func TestValidateOnlyEmptyTimetableIsValid(t *testing.T) {
	svc := newTestRunService(&oracleStub{})
	resp, err := svc.ValidateOnly(context.Background(), dto.ValidateTimetableRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Conflicts)
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestRecoverQueuedReenqueuesStrandedRuns(t *testing.T) {
	repo := &runRepoStub{byID: map[string]*models.TimetableRun{
		"run-1": {ID: "run-1", Status: models.RunStatusQueued},
		"run-2": {ID: "run-2", Status: models.RunStatusQueued},
		"run-3": {ID: "run-3", Status: models.RunStatusFinalized},
	}}
	queue := &queueStub{}

	svc := NewTimetableRunService(&oracleStub{}, NewTimetableValidator(0), repo, nil, nil, nil, nil, nil, nil, nil,
		TimetableRunConfig{MaxRepairIterations: 3})
	svc.AttachQueue(queue)

	recovered, err := svc.RecoverQueued(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, recovered)
	require.Len(t, queue.jobs, 2)
	for _, job := range queue.jobs {
		assert.Equal(t, "timetable_run", job.Type)
	}
}

func TestRecoverQueuedNoQueueIsNoop(t *testing.T) {
	svc := newTestRunService(&oracleStub{})
	recovered, err := svc.RecoverQueued(context.Background())
	require.NoError(t, err)
	assert.Zero(t, recovered)
}
