package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/timetable-engine-api/internal/models"
)

// RunRepository persists versioned timetable runs.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository constructs repository.
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a run assigning the next version for its label.
func (r *RunRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil {
		return fmt.Errorf("run payload is nil")
	}
	if run.Label == "" {
		return fmt.Errorf("label is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.RunStatusInitializing
	}
	if len(run.Conflicts) == 0 {
		run.Conflicts = types.JSONText(`[]`)
	}
	if len(run.Meta) == 0 {
		run.Meta = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE label = $1`
	if err := sqlx.GetContext(ctx, target, &run.Version, nextVersionQuery, run.Label); err != nil {
		return fmt.Errorf("compute next timetable run version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_runs (id, label, version, status, iterations, session_count, conflicts, meta, created_at, updated_at)
VALUES (:id, :label, :version, :status, :iterations, :session_count, :conflicts, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, run); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}
	return nil
}

// List returns runs matching the filter, newest first, plus the total count.
func (r *RunRepository) List(ctx context.Context, filter models.RunFilter) ([]models.TimetableRun, int, error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	idx := 1

	if filter.Label != "" {
		conditions = append(conditions, fmt.Sprintf("label = $%d", idx))
		args = append(args, filter.Label)
		idx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", idx))
		args = append(args, filter.Status)
		idx++
	}

	where := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM timetable_runs WHERE %s`, where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable runs: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf(`SELECT id, label, version, status, iterations, session_count, conflicts, meta, created_at, updated_at
FROM timetable_runs WHERE %s ORDER BY created_at DESC, version DESC LIMIT $%d OFFSET $%d`, where, idx, idx+1)
	args = append(args, pageSize, offset)

	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, total, nil
}

// FindByID loads a run by its identifier.
func (r *RunRepository) FindByID(ctx context.Context, id string) (*models.TimetableRun, error) {
	const query = `SELECT id, label, version, status, iterations, session_count, conflicts, meta, created_at, updated_at
FROM timetable_runs WHERE id = $1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// UpdateResult stores pipeline output on an existing run.
func (r *RunRepository) UpdateResult(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	target := r.exec(exec)
	run.UpdatedAt = time.Now().UTC()

	const query = `UPDATE timetable_runs
SET status = $1, iterations = $2, session_count = $3, conflicts = $4, meta = $5, updated_at = $6
WHERE id = $7`
	result, err := target.ExecContext(ctx, query,
		run.Status, run.Iterations, run.SessionCount, run.Conflicts, run.Meta, run.UpdatedAt, run.ID)
	if err != nil {
		return fmt.Errorf("update timetable run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a stored run; slot rows cascade on the foreign key.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM timetable_runs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timetable run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
