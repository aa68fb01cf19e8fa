package models

import (
	"strings"
	"time"
)

// SectionType identifies a typed text block on a daily log.
type SectionType string

const (
	SectionWorkPerformed SectionType = "work_performed"
	SectionDelays        SectionType = "delays"
	SectionTradesOnsite  SectionType = "trades_onsite"
	SectionMeetings      SectionType = "meetings"
	SectionOutOfScope    SectionType = "out_of_scope"
	SectionActionItems   SectionType = "action_items"
	SectionNextDayPlan   SectionType = "next_day_plan"
	SectionNotes         SectionType = "notes"
)

// SectionTypes lists section types in form and print order.
var SectionTypes = []SectionType{
	SectionWorkPerformed,
	SectionDelays,
	SectionTradesOnsite,
	SectionMeetings,
	SectionOutOfScope,
	SectionActionItems,
	SectionNextDayPlan,
	SectionNotes,
}

var sectionHeadings = map[SectionType]string{
	SectionWorkPerformed: "Work Performed (All Trades)",
	SectionDelays:        "Delays / Disruptions",
	SectionTradesOnsite:  "Trades Onsite",
	SectionMeetings:      "Meetings / Discussions",
	SectionOutOfScope:    "Out-of-Scope / Extra Work Identified",
	SectionActionItems:   "Action Items",
	SectionNextDayPlan:   "Plan for Next Day (All Trades)",
	SectionNotes:         "Notes / Observations",
}

// Heading returns the printed heading for the section, without its number.
func (t SectionType) Heading() string {
	if h, ok := sectionHeadings[t]; ok {
		return h
	}
	return string(t)
}

// IsValid reports whether t is a known section type.
func (t SectionType) IsValid() bool {
	_, ok := sectionHeadings[t]
	return ok
}

// Prose reports whether the section is printed as free paragraphs rather than a bullet list.
func (t SectionType) Prose() bool {
	return t == SectionMeetings || t == SectionNotes
}

// DateLayout is the storage format of daily log dates.
const DateLayout = "2006-01-02"

// DailyLog is one superintendent's end-of-day report for a project.
type DailyLog struct {
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Project            *Project        `json:"project,omitempty"`
	ID                 string          `json:"id"`
	Date               string          `json:"date"`
	ProjectID          string          `json:"project_id"`
	SuperintendentName string          `json:"superintendent_name"`
	Sections           []LogSection    `json:"sections"`
	Crews              []Crew          `json:"crews"`
	Subcontractors     []Subcontractor `json:"subcontractors"`
}

// ProjectName returns the project name or "" when the project is not loaded.
func (l *DailyLog) ProjectName() string {
	if l.Project == nil {
		return ""
	}
	return l.Project.Name
}

// SectionItems returns the content of every section of type t in order.
func (l *DailyLog) SectionItems(t SectionType) []string {
	var items []string
	for _, s := range l.Sections {
		if s.SectionType == t {
			items = append(items, s.Content)
		}
	}
	return items
}

// LogSection is one typed text block on a daily log.
type LogSection struct {
	ID          string      `json:"id"`
	LogID       string      `json:"log_id"`
	SectionType SectionType `json:"section_type"`
	Content     string      `json:"content"`
	OrderNum    int         `json:"order_num"`
}

// DailyLogInput is the payload for creating or editing a daily log.
// Sections maps a section type to its text items; blank items are dropped.
type DailyLogInput struct {
	Sections           map[SectionType][]string `json:"sections"`
	Date               string                   `json:"date"`
	SuperintendentName string                   `json:"superintendent_name"`
	ProjectID          string                   `json:"project_id"`
	CrewIDs            []string                 `json:"crew_ids"`
	SubcontractorIDs   []string                 `json:"subcontractor_ids"`
}

// Validate checks the required fields.
func (in *DailyLogInput) Validate() error {
	if strings.TrimSpace(in.Date) == "" || strings.TrimSpace(in.SuperintendentName) == "" || strings.TrimSpace(in.ProjectID) == "" {
		return ErrMissingRequired
	}
	if _, err := time.Parse(DateLayout, in.Date); err != nil {
		return ErrInvalidDate
	}
	for t := range in.Sections {
		if !t.IsValid() {
			return ErrInvalidSection
		}
	}
	return nil
}

// OrderedSections flattens the input into sections in form order with
// trimmed content and a single running order number starting at 1.
func (in *DailyLogInput) OrderedSections() []LogSection {
	var sections []LogSection
	order := 1
	for _, t := range SectionTypes {
		for _, item := range in.Sections[t] {
			text := strings.TrimSpace(item)
			if text == "" {
				continue
			}
			sections = append(sections, LogSection{
				SectionType: t,
				Content:     text,
				OrderNum:    order,
			})
			order++
		}
	}
	return sections
}

// DailyLogFilter narrows a daily log listing.
type DailyLogFilter struct {
	ProjectID string
	Date      string
	Search    string
	// IDs restricts results to these logs when non-nil (full-text search hits).
	IDs     []string
	Page    int
	PerPage int
}

// DailyLogPage is one page of a daily log listing.
type DailyLogPage struct {
	Logs    []DailyLog `json:"logs"`
	Total   int64      `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"per_page"`
}
