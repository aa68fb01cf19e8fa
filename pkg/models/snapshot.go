package models

// Snapshot is the broad read of current data the chat assistant answers from.
type Snapshot struct {
	Error string `json:"error,omitempty"`
	// ActionItems holds every action item, newest first, for statistics.
	ActionItems []ActionItem `json:"action_items"`
	// ActionItemNotes holds every note, newest first.
	ActionItemNotes []ActionItemNote `json:"action_item_notes"`
	Projects        []Project        `json:"projects"`
	Crews           []Crew           `json:"crews"`
	CrewMembers     []CrewMember     `json:"crew_members"`
	Subcontractors  []Subcontractor  `json:"subcontractors"`
	// RecentLogs holds the latest logs by date with project, sections, crews and subcontractors loaded.
	RecentLogs []DailyLog `json:"recent_logs"`
	// DetailedActionItems holds the latest action items by creation with project, log and notes loaded.
	DetailedActionItems []ActionItem `json:"detailed_action_items"`
	DailyLogCount       int64        `json:"daily_log_count"`
}

// SnapshotUnavailable is the error recorded on a snapshot when the database could not be read.
const SnapshotUnavailable = "Unable to fetch data from database"

// EmptySnapshot returns a snapshot with no rows and the given error.
func EmptySnapshot(errMsg string) *Snapshot {
	return &Snapshot{
		Error:               errMsg,
		ActionItems:         []ActionItem{},
		ActionItemNotes:     []ActionItemNote{},
		Projects:            []Project{},
		Crews:               []Crew{},
		CrewMembers:         []CrewMember{},
		Subcontractors:      []Subcontractor{},
		RecentLogs:          []DailyLog{},
		DetailedActionItems: []ActionItem{},
	}
}
