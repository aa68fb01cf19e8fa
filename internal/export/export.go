// Package export renders daily logs as printable text, CSV or an Excel workbook.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/thebtf/sitelog/pkg/models"
)

// Format is an export file format.
type Format string

const (
	FormatText Format = "txt"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat maps a query value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText, "text":
		return FormatText, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/plain; charset=utf-8"
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename returns a download name for l in format f.
func Filename(l *models.DailyLog, f Format) string {
	project := unsafeFilename.ReplaceAllString(l.ProjectName(), "-")
	project = strings.Trim(project, "-")
	if project == "" {
		project = "log"
	}
	return fmt.Sprintf("daily-log-%s-%s.%s", project, l.Date, f)
}

// Write renders l to w in format f.
func Write(w io.Writer, l *models.DailyLog, f Format) error {
	switch f {
	case FormatText:
		return WriteText(w, l)
	case FormatCSV:
		return WriteCSV(w, l)
	case FormatXLSX:
		return WriteXLSX(w, l)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// PrintDate formats a stored YYYY-MM-DD date as M/D/YY.
func PrintDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("1/2/06")
}

// WriteText renders the numbered print view.
func WriteText(w io.Writer, l *models.DailyLog) error {
	var sb strings.Builder
	sb.WriteString("DAILY LOG\n\n")
	sb.WriteString(fmt.Sprintf("Daily Log Date: %s  Prepared By: %s  Project / Worksite: %s\n",
		PrintDate(l.Date), l.SuperintendentName, l.ProjectName()))

	for i, t := range models.SectionTypes {
		sb.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, t.Heading()))
		for _, item := range l.SectionItems(t) {
			if strings.TrimSpace(item) == "" {
				continue
			}
			if t.Prose() {
				sb.WriteString(item + "\n")
			} else {
				sb.WriteString("  • " + item + "\n")
			}
		}
	}

	if names := crewNames(l); names != "" {
		sb.WriteString("\nCrews: " + names + "\n")
	}
	if names := subcontractorNames(l); names != "" {
		sb.WriteString("Subcontractors: " + names + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteCSV writes one row per section item.
func WriteCSV(w io.Writer, l *models.DailyLog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "project", "superintendent", "section", "order", "content"}); err != nil {
		return err
	}
	for _, s := range l.Sections {
		row := []string{
			l.Date,
			l.ProjectName(),
			l.SuperintendentName,
			s.SectionType.Heading(),
			strconv.Itoa(s.OrderNum),
			s.Content,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Sheet names in the exported workbook.
const (
	SummarySheet  = "Summary"
	SectionsSheet = "Sections"
)

// WriteXLSX writes a workbook with a summary sheet and a sections sheet.
func WriteXLSX(w io.Writer, l *models.DailyLog) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Daily Log Date", l.Date},
		{"Prepared By", l.SuperintendentName},
		{"Project / Worksite", l.ProjectName()},
		{"Crews", crewNames(l)},
		{"Subcontractors", subcontractorNames(l)},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if _, err := f.NewSheet(SectionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	header := []interface{}{"Order", "Section", "Content"}
	if err := f.SetSheetRow(SectionsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, s := range l.Sections {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{s.OrderNum, s.SectionType.Heading(), s.Content}
		if err := f.SetSheetRow(SectionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write section row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func crewNames(l *models.DailyLog) string {
	names := make([]string, 0, len(l.Crews))
	for _, c := range l.Crews {
		names = append(names, c.Name)
	}
	return strings.Join(names, ", ")
}

func subcontractorNames(l *models.DailyLog) string {
	names := make([]string, 0, len(l.Subcontractors))
	for _, s := range l.Subcontractors {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
