package models

import "time"

// TimeSlot is the canonical time slot of a team or the availability of a
// participant. Legacy data uses "all" for full-day teams; NormalizeTimeSlot
// maps it to SlotBoth so the rest of the code only compares canonical values.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotBoth      TimeSlot = "both"
	SlotPR        TimeSlot = "pr"
	SlotOther     TimeSlot = "other"
)

// NormalizeTimeSlot maps legacy slot spellings to their canonical value.
func NormalizeTimeSlot(s string) TimeSlot {
	if s == "all" {
		return SlotBoth
	}
	return TimeSlot(s)
}

// SeniorGrade is the grade from which a participant counts as senior.
const SeniorGrade = 3

// DefaultMaxMembers is the team capacity used when maxMembers is unset.
const DefaultMaxMembers = 10

const (
	AssignedByAuto   = "auto"
	AssignedByManual = "manual"
)

// PR choice values recorded on a survey response. "none" means the volunteer
// opted out to headquarters standby and must not be auto-assigned.
const (
	PRChoiceJoin = "join"
	PRChoiceNone = "none"
)

// Participant is one survey respondent, immutable during an assignment run.
type Participant struct {
	ResponseID   string   `json:"responseId"`
	Name         string   `json:"name"`
	Section      string   `json:"section"`
	Grade        int      `json:"grade"`
	Availability TimeSlot `json:"availability"`
}

// Senior reports whether the participant gets seniority priority.
func (p Participant) Senior() bool {
	return p.Grade >= SeniorGrade
}

// Team is one distribution team covering a geographic area for a time slot.
type Team struct {
	TeamID          string   `json:"teamId"`
	TeamCode        string   `json:"teamCode"`
	TeamName        string   `json:"teamName"`
	TimeSlot        TimeSlot `json:"timeSlot"`
	AssignedArea    string   `json:"assignedArea"`
	AdjacentAreas   []string `json:"adjacentAreas,omitempty"`
	MaxMembers      int      `json:"maxMembers,omitempty"`
	PreferredGrades []int    `json:"preferredGrades,omitempty"`
}

// Capacity returns the member limit, applying the default when unset.
func (t *Team) Capacity() int {
	if t.MaxMembers <= 0 {
		return DefaultMaxMembers
	}
	return t.MaxMembers
}

// PrefersGrade reports whether the team lists the grade in preferredGrades.
func (t *Team) PrefersGrade(grade int) bool {
	for _, g := range t.PreferredGrades {
		if g == grade {
			return true
		}
	}
	return false
}

// Assignment links one participant to one team for one resolved slot.
// TimeSlot is always morning or afternoon, never both.
type Assignment struct {
	ResponseID string    `json:"responseId"`
	TeamID     string    `json:"teamId"`
	AssignedAt time.Time `json:"assignedAt"`
	AssignedBy string    `json:"assignedBy"`
	TimeSlot   TimeSlot  `json:"timeSlot"`
}

// AssignInput is the payload for a stateless assignment run.
type AssignInput struct {
	Participants []Participant `json:"participants"`
	Teams        []Team        `json:"teams"`
	IncludeOther bool          `json:"includeOther"`
}

// AssignStats summarizes one assignment run.
type AssignStats struct {
	Total      int `json:"total"`
	Assigned   int `json:"assigned"`
	Unassigned int `json:"unassigned"`
	PRStandby  int `json:"pr_standby,omitempty"`
}

// AssignResponse is the result of an assignment run.
type AssignResponse struct {
	Assignments []Assignment `json:"assignments"`
	Stats       AssignStats  `json:"stats"`
}
