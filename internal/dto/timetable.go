package dto

import "github.com/noah-isme/timetable-engine-api/internal/models"

// TimeSlotPayload is the nested interval shape exchanged with the oracle.
type TimeSlotPayload struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// SessionRecord is the flat candidate record produced by the oracle and used
// as the persisted interchange form. Records that fail to map onto a Session
// are dropped individually, never aborting the batch.
type SessionRecord struct {
	CourseCode string          `json:"courseCode"`
	FacultyID  string          `json:"facultyId"`
	Day        string          `json:"day"`
	TimeSlot   TimeSlotPayload `json:"timeSlot"`
	Room       string          `json:"room,omitempty"`
}

// CandidateRequest carries the full scheduling input to the oracle's
// generate call.
type CandidateRequest struct {
	Courses       []models.Course        `json:"courses"`
	Faculty       []models.Faculty       `json:"faculty"`
	AvailableDays []models.DayOfWeek     `json:"availableDays"`
	TimeSlots     []models.ClockInterval `json:"timeSlots"`
}

// RepairRequest asks the oracle to correct a conflicting timetable. The
// conflict descriptions are echoed verbatim from the detector.
type RepairRequest struct {
	Sessions  []SessionRecord  `json:"sessions"`
	Conflicts []string         `json:"conflicts"`
	Courses   []models.Course  `json:"courses"`
	Faculty   []models.Faculty `json:"faculty"`
}

// OptimizeRequest asks the oracle to improve an already conflict-free
// timetable.
type OptimizeRequest struct {
	Sessions []SessionRecord  `json:"sessions"`
	Courses  []models.Course  `json:"courses"`
	Faculty  []models.Faculty `json:"faculty"`
}

// GenerateTimetableRequest starts a scheduling run.
type GenerateTimetableRequest struct {
	Label         string                 `json:"label"`
	Courses       []models.Course        `json:"courses" validate:"required,min=1"`
	Faculty       []models.Faculty       `json:"faculty" validate:"required,min=1"`
	AvailableDays []models.DayOfWeek     `json:"availableDays"`
	TimeSlots     []models.ClockInterval `json:"timeSlots"`
}

// ValidateTimetableRequest runs only the conflict detector.
type ValidateTimetableRequest struct {
	Sessions []SessionRecord  `json:"sessions"`
	Faculty  []models.Faculty `json:"faculty"`
}

// ValidateTimetableResponse reports the detector outcome.
type ValidateTimetableResponse struct {
	Valid     bool              `json:"valid"`
	Conflicts []models.Conflict `json:"conflicts"`
	Dropped   int               `json:"dropped,omitempty"`
}

// RunResponse is the public shape of a finished (or queued) run.
type RunResponse struct {
	RunID      string                   `json:"runId"`
	Label      string                   `json:"label"`
	Version    int                      `json:"version,omitempty"`
	Status     models.RunStatus         `json:"status"`
	Iterations int                      `json:"iterations"`
	Sessions   []SessionRecord          `json:"sessions"`
	Conflicts  []models.Conflict        `json:"conflicts"`
	Summary    models.RunSummary        `json:"summary"`
	Workloads  []models.FacultyWorkload `json:"facultyWorkloads,omitempty"`
}

// RunQuery filters persisted runs.
type RunQuery struct {
	Label string `form:"label" json:"label"`
	Page  int    `form:"page" json:"page"`
	Limit int    `form:"limit" json:"limit"`
}
