package models

// ConflictRule identifies the scheduling rule a conflict violates.
type ConflictRule string

const (
	RuleFacultyOverlap         ConflictRule = "FACULTY_OVERLAP"
	RuleRoomOverlap            ConflictRule = "ROOM_OVERLAP"
	RuleFacultyOverload        ConflictRule = "FACULTY_OVERLOAD"
	RuleUnbalancedDistribution ConflictRule = "UNBALANCED_DISTRIBUTION"
)

// Conflict is one detected rule violation. The typed fields feed structured
// consumers; Message is the human-readable form echoed back to the oracle as
// repair feedback. The engine never parses Message.
type Conflict struct {
	Rule        ConflictRule      `json:"rule"`
	Message     string            `json:"message"`
	FacultyID   string            `json:"facultyId,omitempty"`
	Room        string            `json:"room,omitempty"`
	Day         DayOfWeek         `json:"day,omitempty"`
	CourseCodes []string          `json:"courseCodes,omitempty"`
	Window      *ClockInterval    `json:"window,omitempty"`
	Hours       float64           `json:"hours,omitempty"`
	MaxHours    int               `json:"maxHours,omitempty"`
	DailyCounts map[DayOfWeek]int `json:"dailyCounts,omitempty"`
}

// ConflictMessages extracts the rendered descriptions in order.
func ConflictMessages(conflicts []Conflict) []string {
	messages := make([]string, 0, len(conflicts))
	for _, conflict := range conflicts {
		messages = append(messages, conflict.Message)
	}
	return messages
}
