// Package oracle provides candidate timetable producers. The engine treats
// a producer as a black box: it proposes assignments, the validator judges
// them.
package oracle

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine-api/internal/dto"
	"github.com/noah-isme/timetable-engine-api/internal/models"
)

// HeuristicOracle is a deterministic rule-based producer. It fills the least
// loaded day first, honours course preferences when it can, and never
// double-books a faculty member or a room by construction.
type HeuristicOracle struct {
	logger *zap.Logger
}

// NewHeuristicOracle builds the rule-based producer.
func NewHeuristicOracle(logger *zap.Logger) *HeuristicOracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeuristicOracle{logger: logger}
}

// Generate proposes a fresh assignment for the requested courses.
func (o *HeuristicOracle) Generate(ctx context.Context, req dto.CandidateRequest) ([]dto.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state := newPlacementState(req.AvailableDays, req.TimeSlots, req.Faculty)
	for _, course := range req.Courses {
		placed := state.AssignCourse(course)
		if placed < sessionsNeeded(course) {
			o.logger.Sugar().Debugw("course only partially placed",
				"course", course.Code, "placed", placed, "needed", sessionsNeeded(course))
		}
	}
	return state.Export(), nil
}

// Resolve rebuilds the assignment from scratch. A full rebuild is simpler
// than surgical moves and, because placement is conflict-free by
// construction, it converges in a single repair round.
func (o *HeuristicOracle) Resolve(ctx context.Context, req dto.RepairRequest) ([]dto.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.Generate(ctx, dto.CandidateRequest{
		Courses:       req.Courses,
		Faculty:       req.Faculty,
		AvailableDays: daysOf(req.Sessions),
		TimeSlots:     slotsOf(req.Sessions),
	})
}

// Optimize compacts per-day gaps: sessions move into the earliest free slot
// of their day when their faculty member is free there.
func (o *HeuristicOracle) Optimize(ctx context.Context, req dto.OptimizeRequest) ([]dto.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slots := slotsOf(req.Sessions)
	index := make(map[string]int, len(slots))
	for i, slot := range slots {
		index[slot.String()] = i
	}

	byDay := make(map[models.DayOfWeek][]dto.SessionRecord)
	for _, record := range req.Sessions {
		byDay[models.DayOfWeek(record.Day)] = append(byDay[models.DayOfWeek(record.Day)], record)
	}

	busy := make(map[string]map[string]bool) // facultyID -> day|slot
	occupied := make(map[string]int)         // day|slot -> session count
	markBusy := func(facultyID string, day models.DayOfWeek, slot int) {
		key := fmt.Sprintf("%s|%d", day, slot)
		if busy[facultyID] == nil {
			busy[facultyID] = make(map[string]bool)
		}
		busy[facultyID][key] = true
		occupied[key]++
	}
	for _, record := range req.Sessions {
		slotIdx := index[recordInterval(record).String()]
		markBusy(record.FacultyID, models.DayOfWeek(record.Day), slotIdx)
	}

	out := make([]dto.SessionRecord, 0, len(req.Sessions))
	for _, day := range daysOf(req.Sessions) {
		records := byDay[day]
		sort.SliceStable(records, func(i, j int) bool {
			return index[recordInterval(records[i]).String()] < index[recordInterval(records[j]).String()]
		})
		for _, record := range records {
			from := index[recordInterval(record).String()]
			for target := 0; target < from; target++ {
				key := fmt.Sprintf("%s|%d", day, target)
				if occupied[key] > 0 || busy[record.FacultyID][key] {
					continue
				}
				fromKey := fmt.Sprintf("%s|%d", day, from)
				occupied[fromKey]--
				delete(busy[record.FacultyID], fromKey)
				markBusy(record.FacultyID, day, target)
				record.TimeSlot = dto.TimeSlotPayload{StartTime: slots[target].StartTime, EndTime: slots[target].EndTime}
				break
			}
			out = append(out, record)
		}
	}
	return out, nil
}

// --- Placement state ---

type placementKey struct {
	Day  models.DayOfWeek
	Slot int
}

type placementState struct {
	days         []models.DayOfWeek
	slots        []models.ClockInterval
	sessions     map[placementKey][]dto.SessionRecord
	dayLoad      map[models.DayOfWeek]int
	facultyLoads map[string]*facultyAvailability
	slotIndex    map[string]int
}

func newPlacementState(days []models.DayOfWeek, slots []models.ClockInterval, faculty []models.Faculty) *placementState {
	if len(days) == 0 {
		days = models.WorkingDays()
	}
	if len(slots) == 0 {
		slots = models.DefaultTimeSlots()
	}
	sorted := make([]models.ClockInterval, len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	loads := make(map[string]*facultyAvailability, len(faculty))
	for _, member := range faculty {
		loads[member.ID] = newFacultyAvailability(float64(member.MaxHoursPerWeek))
	}
	slotIndex := make(map[string]int, len(sorted))
	for i, slot := range sorted {
		slotIndex[slot.String()] = i
	}
	return &placementState{
		days:         days,
		slots:        sorted,
		sessions:     make(map[placementKey][]dto.SessionRecord),
		dayLoad:      make(map[models.DayOfWeek]int),
		facultyLoads: loads,
		slotIndex:    slotIndex,
	}
}

// AssignCourse places up to the weekly sessions a course needs and returns
// how many it managed.
func (s *placementState) AssignCourse(course models.Course) int {
	placed := 0
	for i := 0; i < sessionsNeeded(course); i++ {
		if !s.assignOne(course) {
			break
		}
		placed++
	}
	return placed
}

func (s *placementState) assignOne(course models.Course) bool {
	for _, day := range s.dayOrder(course) {
		for _, slot := range s.candidateSlots(course) {
			if s.canPlace(course.FacultyID, day, slot) {
				s.place(course, day, slot)
				return true
			}
		}
	}
	return false
}

// dayOrder prefers the course's preferred days, then the least loaded days.
func (s *placementState) dayOrder(course models.Course) []models.DayOfWeek {
	order := make([]models.DayOfWeek, 0, len(s.days))
	seen := make(map[models.DayOfWeek]bool)
	for _, day := range course.PreferredDays {
		if !seen[day] && containsDay(s.days, day) {
			order = append(order, day)
			seen[day] = true
		}
	}
	rest := make([]models.DayOfWeek, 0, len(s.days))
	for _, day := range s.days {
		if !seen[day] {
			rest = append(rest, day)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return s.dayLoad[rest[i]] < s.dayLoad[rest[j]]
	})
	return append(order, rest...)
}

func (s *placementState) candidateSlots(course models.Course) []int {
	var result []int
	seen := make(map[int]bool)
	for _, preferred := range course.PreferredTimeSlots {
		if idx, ok := s.slotIndex[preferred.String()]; ok && !seen[idx] {
			result = append(result, idx)
			seen[idx] = true
		}
	}
	for idx := range s.slots {
		if !seen[idx] {
			result = append(result, idx)
		}
	}
	return result
}

func (s *placementState) canPlace(facultyID string, day models.DayOfWeek, slot int) bool {
	if slot < 0 || slot >= len(s.slots) {
		return false
	}
	member := s.facultyLoads[facultyID]
	if member == nil {
		return false
	}
	return member.CanTeach(day, slot, s.slots[slot].Hours())
}

func (s *placementState) place(course models.Course, day models.DayOfWeek, slot int) {
	key := placementKey{Day: day, Slot: slot}
	interval := s.slots[slot]
	record := dto.SessionRecord{
		CourseCode: course.Code,
		FacultyID:  course.FacultyID,
		Day:        string(day),
		TimeSlot:   dto.TimeSlotPayload{StartTime: interval.StartTime, EndTime: interval.EndTime},
		Room:       fmt.Sprintf("R-%d", 101+len(s.sessions[key])),
	}
	s.sessions[key] = append(s.sessions[key], record)
	s.facultyLoads[course.FacultyID].Reserve(day, slot, interval.Hours())
	s.dayLoad[day]++
}

func (s *placementState) Export() []dto.SessionRecord {
	var records []dto.SessionRecord
	for _, day := range s.days {
		for slot := range s.slots {
			records = append(records, s.sessions[placementKey{Day: day, Slot: slot}]...)
		}
	}
	return records
}

// --- Faculty availability ---

type facultyAvailability struct {
	maxWeeklyHours float64
	weeklyHours    float64
	assigned       map[models.DayOfWeek]map[int]bool
}

func newFacultyAvailability(maxWeeklyHours float64) *facultyAvailability {
	return &facultyAvailability{
		maxWeeklyHours: maxWeeklyHours,
		assigned:       make(map[models.DayOfWeek]map[int]bool),
	}
}

func (f *facultyAvailability) CanTeach(day models.DayOfWeek, slot int, hours float64) bool {
	if f.assigned[day] != nil && f.assigned[day][slot] {
		return false
	}
	if f.maxWeeklyHours > 0 && f.weeklyHours+hours > f.maxWeeklyHours {
		return false
	}
	return true
}

func (f *facultyAvailability) Reserve(day models.DayOfWeek, slot int, hours float64) {
	if f.assigned[day] == nil {
		f.assigned[day] = make(map[int]bool)
	}
	f.assigned[day][slot] = true
	f.weeklyHours += hours
}

// --- Helpers ---

func sessionsNeeded(course models.Course) int {
	if course.HoursPerWeek > 0 {
		return course.HoursPerWeek
	}
	if course.Credits > 0 {
		return course.Credits
	}
	return 1
}

func containsDay(days []models.DayOfWeek, day models.DayOfWeek) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func daysOf(records []dto.SessionRecord) []models.DayOfWeek {
	seen := make(map[models.DayOfWeek]bool)
	var days []models.DayOfWeek
	for _, record := range records {
		day := models.DayOfWeek(record.Day)
		if day.Valid() && !seen[day] {
			days = append(days, day)
			seen[day] = true
		}
	}
	if len(days) == 0 {
		return models.WorkingDays()
	}
	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Order() < days[j].Order()
	})
	return days
}

func slotsOf(records []dto.SessionRecord) []models.ClockInterval {
	seen := make(map[string]bool)
	var slots []models.ClockInterval
	for _, record := range records {
		interval := recordInterval(record)
		if err := interval.Validate(); err != nil {
			continue
		}
		if !seen[interval.String()] {
			slots = append(slots, interval)
			seen[interval.String()] = true
		}
	}
	if len(slots) == 0 {
		return models.DefaultTimeSlots()
	}
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})
	return slots
}

func recordInterval(record dto.SessionRecord) models.ClockInterval {
	return models.ClockInterval{StartTime: record.TimeSlot.StartTime, EndTime: record.TimeSlot.EndTime}
}
