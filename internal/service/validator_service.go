package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/timetable-engine-api/internal/models"
)

// DefaultDistributionTolerance is the allowed deviation, in sessions, of any
// day's load from the mean before the balance rule fires.
const DefaultDistributionTolerance = 2.0

// TimetableValidator detects every scheduling rule violation in a candidate
// assignment. Validation is pure and total: inputs are never mutated, all
// four checks always run, and the complete conflict list is returned in one
// pass rather than stopping at the first violation.
type TimetableValidator struct {
	tolerance float64
}

// NewTimetableValidator constructs a validator. A non-positive tolerance
// falls back to the default.
func NewTimetableValidator(distributionTolerance float64) *TimetableValidator {
	if distributionTolerance <= 0 {
		distributionTolerance = DefaultDistributionTolerance
	}
	return &TimetableValidator{tolerance: distributionTolerance}
}

// Validate checks the whole timetable and returns every conflict found.
// The boolean is true iff the conflict list is empty.
func (v *TimetableValidator) Validate(sessions []models.Session, faculty []models.Faculty) (bool, []models.Conflict) {
	conflicts := make([]models.Conflict, 0)
	conflicts = append(conflicts, v.facultyOverlaps(sessions)...)
	conflicts = append(conflicts, v.roomOverlaps(sessions)...)
	conflicts = append(conflicts, v.facultyOverloads(sessions, faculty)...)
	conflicts = append(conflicts, v.dailyDistribution(sessions)...)
	return len(conflicts) == 0, conflicts
}

// facultyOverlaps reports every unordered pair of same-faculty sessions that
// share a day and overlap in time. Pairing is O(n²) per faculty group, which
// is fine for the tens-to-low-hundreds of sessions a timetable carries.
func (v *TimetableValidator) facultyOverlaps(sessions []models.Session) []models.Conflict {
	groups, order := groupSessions(sessions, func(s models.Session) string { return s.FacultyID })

	var conflicts []models.Conflict
	for _, facultyID := range order {
		group := groups[facultyID]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				first, second := group[i], group[j]
				if first.Day != second.Day || !first.TimeSlot.Overlaps(second.TimeSlot) {
					continue
				}
				window := first.TimeSlot
				conflicts = append(conflicts, models.Conflict{
					Rule:        models.RuleFacultyOverlap,
					FacultyID:   facultyID,
					Day:         first.Day,
					CourseCodes: []string{first.CourseCode, second.CourseCode},
					Window:      &window,
					Message: fmt.Sprintf("Faculty %s has conflicting schedules: %s and %s on %s at %s-%s",
						facultyID, first.CourseCode, second.CourseCode, first.Day, first.TimeSlot.StartTime, first.TimeSlot.EndTime),
				})
			}
		}
	}
	return conflicts
}

// roomOverlaps mirrors the faculty check grouped by room. Sessions without a
// room never conflict on room grounds.
func (v *TimetableValidator) roomOverlaps(sessions []models.Session) []models.Conflict {
	roomed := make([]models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Room != "" {
			roomed = append(roomed, session)
		}
	}
	groups, order := groupSessions(roomed, func(s models.Session) string { return s.Room })

	var conflicts []models.Conflict
	for _, room := range order {
		group := groups[room]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				first, second := group[i], group[j]
				if first.Day != second.Day || !first.TimeSlot.Overlaps(second.TimeSlot) {
					continue
				}
				window := first.TimeSlot
				conflicts = append(conflicts, models.Conflict{
					Rule:        models.RuleRoomOverlap,
					Room:        room,
					Day:         first.Day,
					CourseCodes: []string{first.CourseCode, second.CourseCode},
					Window:      &window,
					Message: fmt.Sprintf("Room %s has conflicting bookings: %s and %s on %s at %s-%s",
						room, first.CourseCode, second.CourseCode, first.Day, first.TimeSlot.StartTime, first.TimeSlot.EndTime),
				})
			}
		}
	}
	return conflicts
}

// facultyOverloads sums fractional scheduled hours per faculty member and
// flags anyone strictly above their weekly cap. Faculty absent from the
// reference list are simply not checked.
func (v *TimetableValidator) facultyOverloads(sessions []models.Session, faculty []models.Faculty) []models.Conflict {
	caps := make(map[string]int, len(faculty))
	for _, member := range faculty {
		caps[member.ID] = member.MaxHoursPerWeek
	}

	hours := make(map[string]float64)
	var order []string
	for _, session := range sessions {
		if _, seen := hours[session.FacultyID]; !seen {
			order = append(order, session.FacultyID)
		}
		hours[session.FacultyID] += session.TimeSlot.Hours()
	}

	var conflicts []models.Conflict
	for _, facultyID := range order {
		maxHours, known := caps[facultyID]
		if !known {
			continue
		}
		total := hours[facultyID]
		if total > float64(maxHours) {
			conflicts = append(conflicts, models.Conflict{
				Rule:      models.RuleFacultyOverload,
				FacultyID: facultyID,
				Hours:     total,
				MaxHours:  maxHours,
				Message:   fmt.Sprintf("Faculty %s is overloaded: %.1f hours (max: %d hours)", facultyID, total, maxHours),
			})
		}
	}
	return conflicts
}

// dailyDistribution is a soft fairness heuristic: the mean session count is
// taken over days that have at least one session, and a single conflict is
// emitted when any day deviates from it by more than the tolerance.
func (v *TimetableValidator) dailyDistribution(sessions []models.Session) []models.Conflict {
	counts := make(map[models.DayOfWeek]int)
	for _, session := range sessions {
		counts[session.Day]++
	}
	if len(counts) == 0 {
		return nil
	}

	total := 0
	for _, count := range counts {
		total += count
	}
	mean := float64(total) / float64(len(counts))

	maxDeviation := 0.0
	for _, count := range counts {
		deviation := float64(count) - mean
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > maxDeviation {
			maxDeviation = deviation
		}
	}
	if maxDeviation <= v.tolerance {
		return nil
	}

	return []models.Conflict{{
		Rule:        models.RuleUnbalancedDistribution,
		DailyCounts: counts,
		Message:     "Unbalanced credit distribution across days. Daily slots: " + renderDailyCounts(counts),
	}}
}

// groupSessions buckets sessions by key preserving first-seen key order so
// conflict output stays deterministic for identical input.
func groupSessions(sessions []models.Session, key func(models.Session) string) (map[string][]models.Session, []string) {
	groups := make(map[string][]models.Session)
	var order []string
	for _, session := range sessions {
		k := key(session)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], session)
	}
	return groups, order
}

func renderDailyCounts(counts map[models.DayOfWeek]int) string {
	days := make([]models.DayOfWeek, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Order() < days[j].Order() })

	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, fmt.Sprintf("%s=%d", day, counts[day]))
	}
	return strings.Join(parts, ", ")
}
