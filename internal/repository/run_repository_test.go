package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine-api/internal/models"
)

func newRunMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRunRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE label = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec("INSERT INTO timetable_runs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	run := &models.TimetableRun{
		Label:        "term-1",
		Status:       models.RunStatusFinalized,
		Iterations:   1,
		SessionCount: 12,
		Conflicts:    types.JSONText(`[]`),
	}
	err := repo.CreateVersioned(context.Background(), nil, run)
	require.NoError(t, err)
	assert.Equal(t, 3, run.Version)
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryCreateVersionedRequiresLabel(t *testing.T) {
	db, _, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	err := repo.CreateVersioned(context.Background(), nil, &models.TimetableRun{})
	assert.Error(t, err)
}

func TestRunRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM timetable_runs").
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "label", "version", "status", "iterations", "session_count", "conflicts", "meta", "created_at", "updated_at"}).
		AddRow("run-1", "term-1", 2, "finalized", 1, 12, `[]`, `{}`, now, now)
	mock.ExpectQuery("SELECT id, label, version, status, iterations, session_count, conflicts, meta, created_at, updated_at").
		WithArgs("term-1", 20, 0).
		WillReturnRows(rows)

	runs, total, err := repo.List(context.Background(), models.RunFilter{Label: "term-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, models.RunStatusFinalized, runs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryListFiltersByStatus(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM timetable_runs").
		WithArgs("queued").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "label", "version", "status", "iterations", "session_count", "conflicts", "meta", "created_at", "updated_at"}).
		AddRow("run-7", "term-1", 1, "queued", 0, 0, `[]`, `{}`, now, now)
	mock.ExpectQuery("SELECT id, label, version, status, iterations, session_count, conflicts, meta, created_at, updated_at").
		WithArgs("queued", 100, 0).
		WillReturnRows(rows)

	runs, _, err := repo.List(context.Background(), models.RunFilter{Status: models.RunStatusQueued, PageSize: 100})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunStatusQueued, runs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "label", "version", "status", "iterations", "session_count", "conflicts", "meta", "created_at", "updated_at"}).
		AddRow("run-1", "term-1", 1, "queued", 0, 0, `[]`, `{}`, now, now)
	mock.ExpectQuery("SELECT id, label, version, status").
		WithArgs("run-1").
		WillReturnRows(rows)

	run, err := repo.FindByID(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, run.Status)
}

func TestRunRepositoryUpdateResult(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec("UPDATE timetable_runs").
		WithArgs("finalized", 2, 10, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &models.TimetableRun{
		ID:           "run-1",
		Status:       models.RunStatusFinalized,
		Iterations:   2,
		SessionCount: 10,
		Conflicts:    types.JSONText(`[]`),
		Meta:         types.JSONText(`{}`),
	}
	require.NoError(t, repo.UpdateResult(context.Background(), nil, run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepositoryUpdateResultNotFound(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec("UPDATE timetable_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateResult(context.Background(), nil, &models.TimetableRun{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRunRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunRepository(db)

	mock.ExpectExec("DELETE FROM timetable_runs").
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "run-1"))

	mock.ExpectExec("DELETE FROM timetable_runs").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
}
