package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine-api/internal/models"
)

// RunSlotRepository manages session rows for timetable runs.
type RunSlotRepository struct {
	db *sqlx.DB
}

// NewRunSlotRepository builds repository.
func NewRunSlotRepository(db *sqlx.DB) *RunSlotRepository {
	return &RunSlotRepository{db: db}
}

func (r *RunSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// dayOrderCase sorts canonical day names chronologically in SQL.
const dayOrderCase = `CASE day_of_week
WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3
WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 WHEN 'Saturday' THEN 6
WHEN 'Sunday' THEN 7 ELSE 8 END`

// ReplaceForRun swaps the stored slot set of a run for the provided one.
func (r *RunSlotRepository) ReplaceForRun(ctx context.Context, exec sqlx.ExtContext, runID string, slots []models.RunSlot) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	target := r.exec(exec)

	const deleteQuery = `DELETE FROM timetable_run_slots WHERE run_id = $1`
	if _, err := target.ExecContext(ctx, deleteQuery, runID); err != nil {
		return fmt.Errorf("clear timetable run slots: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_run_slots (id, run_id, course_code, faculty_id, day_of_week, start_time, end_time, room)
VALUES (:id, :run_id, :course_code, :faculty_id, :day_of_week, :start_time, :end_time, :room)`

	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.RunID = runID
		if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, slot); err != nil {
			return fmt.Errorf("insert timetable run slot: %w", err)
		}
	}
	return nil
}

// ListByRun returns slots ordered chronologically for a run.
func (r *RunSlotRepository) ListByRun(ctx context.Context, runID string) ([]models.RunSlot, error) {
	query := fmt.Sprintf(`SELECT id, run_id, course_code, faculty_id, day_of_week, start_time, end_time, room
FROM timetable_run_slots WHERE run_id = $1 ORDER BY %s ASC, start_time ASC`, dayOrderCase)
	var slots []models.RunSlot
	if err := r.db.SelectContext(ctx, &slots, query, runID); err != nil {
		return nil, fmt.Errorf("list timetable run slots: %w", err)
	}
	return slots, nil
}
