package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RunStatus tags the repair pipeline state a run is in. The first seven
// values are the in-flight state machine statuses; queued/running/failed
// only appear on persisted asynchronous runs.
type RunStatus string

const (
	RunStatusInitializing RunStatus = "initializing"
	RunStatusGenerated    RunStatus = "generated"
	RunStatusValid        RunStatus = "valid"
	RunStatusHasConflicts RunStatus = "has_conflicts"
	RunStatusResolved     RunStatus = "resolved"
	RunStatusOptimized    RunStatus = "optimized"
	RunStatusFinalized    RunStatus = "finalized"

	RunStatusQueued  RunStatus = "queued"
	RunStatusRunning RunStatus = "running"
	RunStatusFailed  RunStatus = "failed"
)

// TimetableRun is a persisted scheduling run, versioned per label.
type TimetableRun struct {
	ID           string         `db:"id" json:"id"`
	Label        string         `db:"label" json:"label"`
	Version      int            `db:"version" json:"version"`
	Status       RunStatus      `db:"status" json:"status"`
	Iterations   int            `db:"iterations" json:"iterations"`
	SessionCount int            `db:"session_count" json:"session_count"`
	Conflicts    types.JSONText `db:"conflicts" json:"conflicts"`
	Meta         types.JSONText `db:"meta" json:"meta"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// RunSlot is one persisted session row belonging to a run.
type RunSlot struct {
	ID         string `db:"id" json:"id"`
	RunID      string `db:"run_id" json:"run_id"`
	CourseCode string `db:"course_code" json:"course_code"`
	FacultyID  string `db:"faculty_id" json:"faculty_id"`
	DayOfWeek  string `db:"day_of_week" json:"day_of_week"`
	StartTime  string `db:"start_time" json:"start_time"`
	EndTime    string `db:"end_time" json:"end_time"`
	Room       string `db:"room" json:"room"`
}

// Session converts the persisted row back into the engine value.
func (s RunSlot) Session() Session {
	return Session{
		CourseCode: s.CourseCode,
		FacultyID:  s.FacultyID,
		Day:        DayOfWeek(s.DayOfWeek),
		TimeSlot:   ClockInterval{StartTime: s.StartTime, EndTime: s.EndTime},
		Room:       s.Room,
	}
}

// RunFilter describes query params for listing runs.
type RunFilter struct {
	Label    string
	Status   RunStatus
	Page     int
	PageSize int
}

// RunSummary aggregates headline statistics about a finished run.
type RunSummary struct {
	TotalSlots      int     `json:"totalSlots"`
	UniqueCourses   int     `json:"uniqueCourses"`
	UniqueFaculty   int     `json:"uniqueFaculty"`
	DaysWithClasses int     `json:"daysWithClasses"`
	AvgSlotsPerDay  float64 `json:"avgSlotsPerDay"`
}

// FacultyWorkload reports scheduled hours for one faculty member against
// their weekly cap.
type FacultyWorkload struct {
	FacultyID       string  `json:"facultyId"`
	Hours           float64 `json:"hours"`
	MaxHoursPerWeek int     `json:"maxHoursPerWeek"`
	Overloaded      bool    `json:"overloaded"`
}
