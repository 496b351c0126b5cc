package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine-api/internal/models"
)

func TestRunSlotRepositoryReplaceForRun(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunSlotRepository(db)

	mock.ExpectExec("DELETE FROM timetable_run_slots").
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO timetable_run_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_run_slots").
		WillReturnResult(sqlmock.NewResult(1, 1))

	slots := []models.RunSlot{
		{CourseCode: "CS101", FacultyID: "F1", DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00", Room: "R-101"},
		{CourseCode: "CS201", FacultyID: "F2", DayOfWeek: "Tuesday", StartTime: "10:00", EndTime: "11:00", Room: "R-102"},
	}
	err := repo.ReplaceForRun(context.Background(), nil, "run-1", slots)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.NotEmpty(t, slot.ID)
		assert.Equal(t, "run-1", slot.RunID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSlotRepositoryReplaceForRunEmptySetClears(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunSlotRepository(db)

	mock.ExpectExec("DELETE FROM timetable_run_slots").
		WithArgs("run-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.ReplaceForRun(context.Background(), nil, "run-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSlotRepositoryListByRun(t *testing.T) {
	db, mock, cleanup := newRunMock(t)
	defer cleanup()
	repo := NewRunSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "run_id", "course_code", "faculty_id", "day_of_week", "start_time", "end_time", "room"}).
		AddRow("slot-1", "run-1", "CS101", "F1", "Monday", "09:00", "10:00", "R-101").
		AddRow("slot-2", "run-1", "CS201", "F2", "Tuesday", "10:00", "11:00", "R-102")
	mock.ExpectQuery("SELECT id, run_id, course_code, faculty_id, day_of_week, start_time, end_time, room").
		WithArgs("run-1").
		WillReturnRows(rows)

	slots, err := repo.ListByRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)

	session := slots[0].Session()
	assert.Equal(t, "CS101", session.CourseCode)
	assert.Equal(t, models.Monday, session.Day)
	assert.Equal(t, "09:00", session.TimeSlot.StartTime)
}
