package models

import (
	"fmt"
	"strconv"
	"strings"
)

// DayOfWeek is the canonical English weekday name used across the engine.
// Matching is case-sensitive: candidate records must carry these exact names.
type DayOfWeek string

const (
	Monday    DayOfWeek = "Monday"
	Tuesday   DayOfWeek = "Tuesday"
	Wednesday DayOfWeek = "Wednesday"
	Thursday  DayOfWeek = "Thursday"
	Friday    DayOfWeek = "Friday"
	Saturday  DayOfWeek = "Saturday"
	Sunday    DayOfWeek = "Sunday"
)

var dayOrder = map[DayOfWeek]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
	Sunday:    7,
}

// ParseDay maps raw text onto a weekday enumerant.
func ParseDay(raw string) (DayOfWeek, error) {
	day := DayOfWeek(raw)
	if !day.Valid() {
		return "", fmt.Errorf("unrecognised day %q", raw)
	}
	return day, nil
}

// Valid reports whether the value is one of the seven enumerants.
func (d DayOfWeek) Valid() bool {
	_, ok := dayOrder[d]
	return ok
}

// Order returns the 1-based weekday position, Monday first.
func (d DayOfWeek) Order() int {
	return dayOrder[d]
}

// WorkingDays returns the default Monday-Friday catalog.
func WorkingDays() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// ClockInterval is a wall-clock interval within a single day, "HH:MM" text.
type ClockInterval struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// ParseClock converts "HH:MM" text into minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock value %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock value %q: %w", raw, err)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hours*60 + minutes, nil
}

// Validate checks both endpoints parse and start precedes end.
func (i ClockInterval) Validate() error {
	start, err := ParseClock(i.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(i.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("interval %s-%s must start before it ends", i.StartTime, i.EndTime)
	}
	return nil
}

// Overlaps applies the half-open overlap rule; touching endpoints do not
// overlap. Callers are responsible for normalising malformed text first.
func (i ClockInterval) Overlaps(other ClockInterval) bool {
	start1, end1 := clockMinutes(i.StartTime), clockMinutes(i.EndTime)
	start2, end2 := clockMinutes(other.StartTime), clockMinutes(other.EndTime)
	return !(end1 <= start2 || end2 <= start1)
}

// Hours returns the fractional duration of the interval.
func (i ClockInterval) Hours() float64 {
	return float64(clockMinutes(i.EndTime)-clockMinutes(i.StartTime)) / 60
}

// String renders the interval as "HH:MM-HH:MM".
func (i ClockInterval) String() string {
	return i.StartTime + "-" + i.EndTime
}

func clockMinutes(raw string) int {
	v, _ := ParseClock(raw)
	return v
}

// DefaultTimeSlots returns the institution's standard teaching hours: four
// morning periods and three afternoon periods.
func DefaultTimeSlots() []ClockInterval {
	return []ClockInterval{
		{StartTime: "09:00", EndTime: "10:00"},
		{StartTime: "10:00", EndTime: "11:00"},
		{StartTime: "11:00", EndTime: "12:00"},
		{StartTime: "12:00", EndTime: "13:00"},
		{StartTime: "14:00", EndTime: "15:00"},
		{StartTime: "15:00", EndTime: "16:00"},
		{StartTime: "16:00", EndTime: "17:00"},
	}
}

// Session is the atomic schedulable unit: one occurrence of a course taught
// by a faculty member at a given day, interval and optional room. Sessions
// are values; an Assignment owns the ordered collection.
type Session struct {
	CourseCode string        `json:"courseCode"`
	FacultyID  string        `json:"facultyId"`
	Day        DayOfWeek     `json:"day"`
	TimeSlot   ClockInterval `json:"timeSlot"`
	Room       string        `json:"room,omitempty"`
}

// Validate checks the session is independently well-formed.
func (s Session) Validate() error {
	if s.CourseCode == "" {
		return fmt.Errorf("courseCode is required")
	}
	if s.FacultyID == "" {
		return fmt.Errorf("facultyId is required")
	}
	if !s.Day.Valid() {
		return fmt.Errorf("unrecognised day %q", string(s.Day))
	}
	return s.TimeSlot.Validate()
}

// Faculty is immutable reference data supplied by the caller.
type Faculty struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Department      string   `json:"department"`
	MaxHoursPerWeek int      `json:"maxHoursPerWeek"`
	ExpertiseAreas  []string `json:"expertiseAreas,omitempty"`
}

// Course describes a teachable unit. Preferences are advisory: the detector
// never enforces them, only the oracle sees them.
type Course struct {
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Credits            int             `json:"credits"`
	Department         string          `json:"department"`
	FacultyID          string          `json:"facultyId"`
	HoursPerWeek       int             `json:"hoursPerWeek"`
	PreferredDays      []DayOfWeek     `json:"preferredDays,omitempty"`
	PreferredTimeSlots []ClockInterval `json:"preferredTimeSlots,omitempty"`
}

// Pagination reports list slicing metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
