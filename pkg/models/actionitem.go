package models

import (
	"strings"
	"time"
)

// ActionItemStatus is the lifecycle state of an action item.
type ActionItemStatus string

const (
	StatusOpen       ActionItemStatus = "open"
	StatusInProgress ActionItemStatus = "in_progress"
	StatusCompleted  ActionItemStatus = "completed"
)

// IsValid reports whether s is a known status.
func (s ActionItemStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Priority ranks action items.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// SourceType records where an action item came from.
type SourceType string

const (
	SourceMeeting     SourceType = "meeting"
	SourceOutOfScope  SourceType = "out_of_scope"
	SourceActionItem  SourceType = "action_item"
	SourceObservation SourceType = "observation"
)

// SourceTypeForSection maps the log section an item was raised from to its source type.
// The camelCase names are the form field names the browser sends.
func SourceTypeForSection(section string) SourceType {
	switch section {
	case "meetings":
		return SourceMeeting
	case "outOfScope", "out_of_scope":
		return SourceOutOfScope
	case "actionItems", "action_items":
		return SourceActionItem
	case "notes":
		return SourceObservation
	}
	return SourceActionItem
}

// TitleLimit is the number of characters kept when deriving a title from free text.
const TitleLimit = 50

// DeriveTitle shortens text to TitleLimit runes, appending "..." when cut.
func DeriveTitle(text string) string {
	return Truncate(text, TitleLimit)
}

// Truncate cuts s to n runes and appends "..." when anything was removed.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ActionItem is a tracked follow-up task.
type ActionItem struct {
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DueDate       *time.Time       `json:"due_date,omitempty"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
	Description   *string          `json:"description,omitempty"`
	AssignedTo    *string          `json:"assigned_to,omitempty"`
	SourceContent *string          `json:"source_content,omitempty"`
	ProjectID     *string          `json:"project_id,omitempty"`
	LogID         *string          `json:"log_id,omitempty"`
	Project       *Project         `json:"project,omitempty"`
	Log           *DailyLog        `json:"log,omitempty"`
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Status        ActionItemStatus `json:"status"`
	Priority      Priority         `json:"priority"`
	SourceType    SourceType       `json:"source_type"`
	CreatedBy     string           `json:"created_by"`
	Notes         []ActionItemNote `json:"notes,omitempty"`
}

// ProjectName returns the project name or "" when the project is not loaded.
func (a *ActionItem) ProjectName() string {
	if a.Project == nil {
		return ""
	}
	return a.Project.Name
}

// IsOverdue reports whether the item has a due date before now and is not completed.
func (a *ActionItem) IsOverdue(now time.Time) bool {
	return a.DueDate != nil && a.DueDate.Before(now) && a.Status != StatusCompleted
}

// ActionItemNote is one progress note on an action item.
type ActionItemNote struct {
	CreatedAt    time.Time `json:"created_at"`
	ID           string    `json:"id"`
	ActionItemID string    `json:"action_item_id"`
	Note         string    `json:"note"`
	CreatedBy    string    `json:"created_by"`
}

// ActionItemInput is the payload for raising an action item from a log section.
type ActionItemInput struct {
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  *string    `json:"assigned_to,omitempty"`
	ProjectID   *string    `json:"project_id,omitempty"`
	LogID       *string    `json:"log_id,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	SectionType string     `json:"section_type"`
	Content     string     `json:"content"`
	CreatedBy   string     `json:"created_by"`
}

// Normalize trims the content and fills defaults.
func (in *ActionItemInput) Normalize() error {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return ErrEmptyContent
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.IsValid() {
		return ErrInvalidPriority
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		in.CreatedBy = "Unknown"
	}
	return nil
}

// ActionItemPatch holds optional changes to an action item.
type ActionItemPatch struct {
	Status     *ActionItemStatus `json:"status,omitempty"`
	Priority   *Priority         `json:"priority,omitempty"`
	DueDate    *time.Time        `json:"due_date,omitempty"`
	AssignedTo *string           `json:"assigned_to,omitempty"`
	Title      *string           `json:"title,omitempty"`
}

// Validate checks enum fields.
func (p *ActionItemPatch) Validate() error {
	if p.Status != nil && !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	if p.Priority != nil && !p.Priority.IsValid() {
		return ErrInvalidPriority
	}
	return nil
}

// ActionItemFilter narrows an action item listing.
type ActionItemFilter struct {
	Status    ActionItemStatus
	ProjectID string
	Limit     int
}
