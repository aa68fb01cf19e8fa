// Package assistant renders construction data into the chat model's prompt.
package assistant

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/thebtf/sitelog/pkg/models"
)

// Limits on how much of each group is rendered into the context block.
const (
	MaxOverdueItems     = 10
	MaxOpenItems        = 15
	MaxInProgressItems  = 10
	MaxCompletedItems   = 5
	MaxRecentNotes      = 20
	OpenNotesShown      = 3
	InProgressNotesShow = 2
	SectionPreviewRunes = 100
)

const (
	dayMillis       = int64(24 * time.Hour / time.Millisecond)
	shortDateLayout = "1/2/2006"
	longDateLayout  = "1/2/2006, 3:04:05 PM"
)

// DaysBetween returns the whole days from a to b, flooring toward negative
// infinity on the millisecond difference.
func DaysBetween(a, b time.Time) int64 {
	return floorDiv(b.UnixMilli()-a.UnixMilli(), dayMillis)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// IsOverdue reports whether item has a due date strictly before now and is not completed.
func IsOverdue(item *models.ActionItem, now time.Time) bool {
	return item.IsOverdue(now)
}

// Stats summarizes the snapshot for the statistics section.
type Stats struct {
	Projects       int
	DailyLogs      int64
	Crews          int
	CrewMembers    int
	Subcontractors int
	RecentLogs     int
	ActionItems    int
	Open           int
	InProgress     int
	Completed      int
	Urgent         int
	Overdue        int
}

// ComputeStats counts totals over the snapshot.
func ComputeStats(snap *models.Snapshot, now time.Time) Stats {
	st := Stats{
		Projects:       len(snap.Projects),
		DailyLogs:      snap.DailyLogCount,
		Crews:          len(snap.Crews),
		CrewMembers:    len(snap.CrewMembers),
		Subcontractors: len(snap.Subcontractors),
		RecentLogs:     len(snap.RecentLogs),
		ActionItems:    len(snap.ActionItems),
	}
	for i := range snap.ActionItems {
		item := &snap.ActionItems[i]
		switch item.Status {
		case models.StatusOpen:
			st.Open++
		case models.StatusInProgress:
			st.InProgress++
		case models.StatusCompleted:
			st.Completed++
		}
		if item.Priority == models.PriorityUrgent {
			st.Urgent++
		}
		if item.IsOverdue(now) {
			st.Overdue++
		}
	}
	return st
}

// BuildContext renders the snapshot as the context block for the system
// prompt. The output depends only on snap and now.
func BuildContext(snap *models.Snapshot, now time.Time) string {
	if snap == nil {
		snap = models.EmptySnapshot("")
	}
	st := ComputeStats(snap, now)

	var sb strings.Builder
	sb.WriteString("CONSTRUCTION PROJECT DATA SUMMARY:\n\n")
	sb.WriteString("STATISTICS:\n")
	sb.WriteString(fmt.Sprintf("- Total Projects: %d\n", st.Projects))
	sb.WriteString(fmt.Sprintf("- Total Daily Logs: %d\n", st.DailyLogs))
	sb.WriteString(fmt.Sprintf("- Total Crews: %d\n", st.Crews))
	sb.WriteString(fmt.Sprintf("- Total Crew Members: %d\n", st.CrewMembers))
	sb.WriteString(fmt.Sprintf("- Total Subcontractors: %d\n", st.Subcontractors))
	sb.WriteString(fmt.Sprintf("- Recent Logs Available: %d\n\n", st.RecentLogs))
	sb.WriteString("ACTION ITEMS SUMMARY:\n")
	sb.WriteString(fmt.Sprintf("- Total Action Items: %d\n", st.ActionItems))
	sb.WriteString(fmt.Sprintf("- Open: %d\n", st.Open))
	sb.WriteString(fmt.Sprintf("- In Progress: %d\n", st.InProgress))
	sb.WriteString(fmt.Sprintf("- Completed: %d\n", st.Completed))
	sb.WriteString(fmt.Sprintf("- Urgent Priority: %d\n", st.Urgent))
	sb.WriteString(fmt.Sprintf("- Overdue: %d\n\n", st.Overdue))

	writeProjects(&sb, snap.Projects)
	writeRecentLogs(&sb, snap.RecentLogs)

	if len(snap.Crews) > 0 {
		names := make([]string, 0, len(snap.Crews))
		for _, c := range snap.Crews {
			names = append(names, c.Name)
		}
		sb.WriteString(fmt.Sprintf("AVAILABLE CREWS: %s\n\n", strings.Join(names, ", ")))
	}

	writeCrewMembers(&sb, snap.CrewMembers)

	if len(snap.Subcontractors) > 0 {
		names := make([]string, 0, len(snap.Subcontractors))
		for _, s := range snap.Subcontractors {
			names = append(names, s.Name)
		}
		sb.WriteString(fmt.Sprintf("AVAILABLE SUBCONTRACTORS: %s\n\n", strings.Join(names, ", ")))
	}

	writeActionItems(&sb, snap.DetailedActionItems, now)
	writeNoteActivity(&sb, snap.ActionItemNotes, now)

	if snap.Error != "" {
		sb.WriteString(fmt.Sprintf("NOTE: %s\n\n", snap.Error))
	}
	return sb.String()
}

func writeProjects(sb *strings.Builder, projects []models.Project) {
	if len(projects) == 0 {
		return
	}
	sb.WriteString("ACTIVE PROJECTS:\n")
	for _, p := range projects {
		sb.WriteString("- " + p.Name)
		if loc := models.StringValue(p.Location); loc != "" {
			sb.WriteString(" (" + loc + ")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeRecentLogs(sb *strings.Builder, logs []models.DailyLog) {
	if len(logs) == 0 {
		return
	}
	sb.WriteString("RECENT DAILY LOGS:\n")
	for i := range logs {
		l := &logs[i]
		sb.WriteString(fmt.Sprintf("\nDate: %s\n", l.Date))
		sb.WriteString(fmt.Sprintf("Project: %s\n", orDefault(l.ProjectName(), "No Project")))
		sb.WriteString(fmt.Sprintf("Superintendent: %s\n", l.SuperintendentName))

		if len(l.Sections) > 0 {
			sb.WriteString("Sections:\n")
			for _, s := range l.Sections {
				if strings.TrimSpace(s.Content) == "" {
					continue
				}
				sb.WriteString(fmt.Sprintf("  - %s: %s\n", s.SectionType, models.Truncate(s.Content, SectionPreviewRunes)))
			}
		}

		if names := crewNames(l.Crews); len(names) > 0 {
			sb.WriteString(fmt.Sprintf("Crews: %s\n", strings.Join(names, ", ")))
		}
		if names := subcontractorNames(l.Subcontractors); len(names) > 0 {
			sb.WriteString(fmt.Sprintf("Subcontractors: %s\n", strings.Join(names, ", ")))
		}
		sb.WriteString("\n")
	}
}

func writeCrewMembers(sb *strings.Builder, members []models.CrewMember) {
	if len(members) == 0 {
		return
	}
	sb.WriteString("CREW MEMBERS:\n")
	for _, m := range members {
		sb.WriteString("- " + m.Name)
		if v := models.StringValue(m.Role); v != "" {
			sb.WriteString(" (" + v + ")")
		}
		if m.HourlyRate != nil && *m.HourlyRate != 0 {
			sb.WriteString(" - $" + strconv.FormatFloat(*m.HourlyRate, 'f', -1, 64) + "/hr")
		}
		if v := models.StringValue(m.Phone); v != "" {
			sb.WriteString(" - Phone: " + v)
		}
		if v := models.StringValue(m.Email); v != "" {
			sb.WriteString(" - Email: " + v)
		}
		if v := models.StringValue(m.Notes); v != "" {
			sb.WriteString(" - Notes: " + v)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

func writeActionItems(sb *strings.Builder, items []models.ActionItem, now time.Time) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("CURRENT ACTION ITEMS WITH COMPLETE HISTORY:\n")

	var open, inProgress, completed, overdue []*models.ActionItem
	for i := range items {
		item := &items[i]
		switch item.Status {
		case models.StatusOpen:
			open = append(open, item)
		case models.StatusInProgress:
			inProgress = append(inProgress, item)
		case models.StatusCompleted:
			completed = append(completed, item)
		}
		if item.IsOverdue(now) {
			overdue = append(overdue, item)
		}
	}

	if len(overdue) > 0 {
		sb.WriteString(fmt.Sprintf("\n🚨 OVERDUE ITEMS (%d) - IMMEDIATE ATTENTION REQUIRED:\n", len(overdue)))
		for _, item := range head(overdue, MaxOverdueItems) {
			notes := sortedNotes(item.Notes)
			writeItemHeader(sb, item)
			sb.WriteString(fmt.Sprintf("  Due: %s (%d days overdue)\n", formatDueDate(item.DueDate), DaysBetween(*item.DueDate, now)))
			sb.WriteString(fmt.Sprintf("  Assigned: %s\n", orDefault(models.StringValue(item.AssignedTo), "Unassigned")))
			sb.WriteString(fmt.Sprintf("  Status: %s\n", item.Status))
			sb.WriteString(fmt.Sprintf("  Created: %d days ago\n", DaysBetween(item.CreatedAt, now)))
			sb.WriteString(fmt.Sprintf("  Last Updated: %d days ago\n", DaysBetween(item.UpdatedAt, now)))
			if d := models.StringValue(item.Description); d != "" {
				sb.WriteString(fmt.Sprintf("  Description: %s\n", d))
			}
			if len(notes) > 0 {
				sb.WriteString(fmt.Sprintf("  COMPLETE NOTE HISTORY (%d notes):\n", len(notes)))
				for i, n := range notes {
					sb.WriteString(fmt.Sprintf("    %d. %s\n", i+1, formatNote(n, now)))
				}
			} else {
				sb.WriteString("  ⚠️  NO PROGRESS NOTES - This item has no updates since creation\n")
			}
			sb.WriteString("\n")
		}
	}

	if len(open) > 0 {
		sb.WriteString(fmt.Sprintf("\n📋 OPEN ITEMS (%d):\n", len(open)))
		for _, item := range head(open, MaxOpenItems) {
			notes := sortedNotes(item.Notes)
			writeItemHeader(sb, item)
			writeDueLine(sb, item, now)
			sb.WriteString(fmt.Sprintf("  Assigned: %s\n", orDefault(models.StringValue(item.AssignedTo), "Unassigned")))
			sb.WriteString(fmt.Sprintf("  Age: %d days since creation\n", DaysBetween(item.CreatedAt, now)))
			sb.WriteString(fmt.Sprintf("  Last Activity: %d days ago\n", DaysBetween(item.UpdatedAt, now)))
			if d := models.StringValue(item.Description); d != "" {
				sb.WriteString(fmt.Sprintf("  Description: %s\n", d))
			}
			if len(notes) > 0 {
				sb.WriteString(fmt.Sprintf("  PROGRESS NOTES (%d total):\n", len(notes)))
				for _, n := range tail(notes, OpenNotesShown) {
					sb.WriteString(fmt.Sprintf("    • %s\n", formatNote(n, now)))
				}
				if len(notes) > OpenNotesShown {
					sb.WriteString(fmt.Sprintf("    (%d earlier notes not shown)\n", len(notes)-OpenNotesShown))
				}
			} else {
				sb.WriteString("  ⚠️  NO PROGRESS NOTES - Consider adding updates\n")
			}
			sb.WriteString("\n")
		}
	}

	if len(inProgress) > 0 {
		sb.WriteString(fmt.Sprintf("\n🔄 IN PROGRESS ITEMS (%d):\n", len(inProgress)))
		for _, item := range head(inProgress, MaxInProgressItems) {
			notes := sortedNotes(item.Notes)
			writeItemHeader(sb, item)
			writeDueLine(sb, item, now)
			sb.WriteString(fmt.Sprintf("  Assigned: %s\n", orDefault(models.StringValue(item.AssignedTo), "Unassigned")))
			sb.WriteString(fmt.Sprintf("  Last Activity: %d days ago\n", DaysBetween(item.UpdatedAt, now)))
			if len(notes) > 0 {
				sb.WriteString("  RECENT PROGRESS:\n")
				for _, n := range tail(notes, InProgressNotesShow) {
					sb.WriteString(fmt.Sprintf("    • %s\n", formatNote(n, now)))
				}
			}
			sb.WriteString("\n")
		}
	}

	if len(completed) > 0 {
		sb.WriteString(fmt.Sprintf("\n✅ RECENTLY COMPLETED ITEMS (%d total, showing latest %d):\n", len(completed), MaxCompletedItems))
		for _, item := range head(completed, MaxCompletedItems) {
			notes := sortedNotes(item.Notes)
			done := item.UpdatedAt
			if item.CompletedAt != nil {
				done = *item.CompletedAt
			}
			writeItemHeader(sb, item)
			sb.WriteString(fmt.Sprintf("  Completed: %s (%d days ago)\n", done.In(now.Location()).Format(shortDateLayout), DaysBetween(done, now)))
			if len(notes) > 0 {
				final := notes[len(notes)-1]
				sb.WriteString(fmt.Sprintf("  Final Note: \"%s\" - %s\n", final.Note, final.CreatedBy))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
}

func writeNoteActivity(sb *strings.Builder, notes []models.ActionItemNote, now time.Time) {
	if len(notes) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("RECENT ACTION ITEM NOTE ACTIVITY (Last %d notes):\n", MaxRecentNotes))
	for _, n := range head(notes, MaxRecentNotes) {
		sb.WriteString(fmt.Sprintf("• [%s] %s: \"%s\"\n", RelativeDay(DaysBetween(n.CreatedAt, now)), n.CreatedBy, n.Note))
		sb.WriteString(fmt.Sprintf("  Action Item ID: %s\n", n.ActionItemID))
		sb.WriteString(fmt.Sprintf("  Timestamp: %s\n", n.CreatedAt.In(now.Location()).Format(longDateLayout)))
		sb.WriteString("\n")
	}
}

// RelativeDay labels a day difference as Today, Yesterday or "n days ago".
func RelativeDay(days int64) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	}
	return fmt.Sprintf("%d days ago", days)
}

func writeItemHeader(sb *strings.Builder, item *models.ActionItem) {
	sb.WriteString(fmt.Sprintf("\n[%s] %s\n", strings.ToUpper(string(item.Priority)), item.Title))
	sb.WriteString(fmt.Sprintf("  Project: %s\n", orDefault(item.ProjectName(), "No Project")))
}

func writeDueLine(sb *strings.Builder, item *models.ActionItem, now time.Time) {
	if item.DueDate == nil {
		return
	}
	until := DaysBetween(now, *item.DueDate)
	if until > 0 {
		sb.WriteString(fmt.Sprintf("  Due: %s (%d days remaining)\n", formatDueDate(item.DueDate), until))
		return
	}
	if until < 0 {
		until = -until
	}
	sb.WriteString(fmt.Sprintf("  Due: %s (%d days overdue)\n", formatDueDate(item.DueDate), until))
}

func formatNote(n models.ActionItemNote, now time.Time) string {
	return fmt.Sprintf("[%s - %d days ago] %s: \"%s\"",
		n.CreatedAt.In(now.Location()).Format(shortDateLayout), DaysBetween(n.CreatedAt, now), n.CreatedBy, n.Note)
}

func formatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(models.DateLayout)
}

// sortedNotes returns a copy of notes in ascending creation order.
func sortedNotes(notes []models.ActionItemNote) []models.ActionItemNote {
	out := append([]models.ActionItemNote(nil), notes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func crewNames(crews []models.Crew) []string {
	var names []string
	for _, c := range crews {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}

func subcontractorNames(subs []models.Subcontractor) []string {
	var names []string
	for _, s := range subs {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func tail[T any](s []T, n int) []T {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
