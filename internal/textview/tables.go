package textview

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hylla/worklog/internal/domain"
)

// maxCellRunes bounds window titles and summary previews in table cells.
const maxCellRunes = 60

var (
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// newTable builds one rounded table with a bold header row.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

// ActivitiesTable renders activities oldest first.
func ActivitiesTable(activities []domain.Activity, loc *time.Location) string {
	if len(activities) == 0 {
		return mutedStyle.Render("No activities recorded.")
	}
	if loc == nil {
		loc = time.Local
	}
	t := newTable("Time", "Application", "Window", "ID")
	for _, activity := range activities {
		window := activity.WindowTitle
		if activity.Screenshot != nil {
			window += " [screenshot]"
		}
		t.Row(
			activity.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			activity.ProcessName,
			truncate(window, maxCellRunes),
			activity.ID,
		)
	}
	return t.Render()
}

// SummariesTable renders summaries oldest first with a one-line preview of each text.
func SummariesTable(summaries []domain.Summary, loc *time.Location) string {
	if len(summaries) == 0 {
		return mutedStyle.Render("No summaries generated.")
	}
	if loc == nil {
		loc = time.Local
	}
	t := newTable("Time", "Activities", "Summary", "ID")
	for _, summary := range summaries {
		t.Row(
			summary.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			strconv.Itoa(summary.ActivityCount),
			truncate(firstLine(summary.SummaryText), maxCellRunes),
			summary.ID,
		)
	}
	return t.Render()
}

// StatisticsView renders the headline counts followed by the activity timeline.
func StatisticsView(stats domain.Statistics) string {
	mostUsed := "-"
	if stats.MostUsedApplication != nil {
		mostUsed = stats.MostUsedApplication.Name + " (" + strconv.Itoa(stats.MostUsedApplication.Count) + ")"
	}
	lines := []string{
		labelStyle.Render("Total activities:") + " " + strconv.Itoa(stats.TotalActivities),
		labelStyle.Render("Applications:") + " " + strconv.Itoa(stats.UniqueApplications),
		labelStyle.Render("Most used:") + " " + mostUsed,
	}
	if len(stats.ActivityTimeline) == 0 {
		return strings.Join(append(lines, "", mutedStyle.Render("No activities recorded.")), "\n")
	}

	t := newTable("Time", "Application", "Window")
	for _, entry := range stats.ActivityTimeline {
		t.Row(entry.Time, entry.Application, truncate(entry.Window, maxCellRunes))
	}
	return strings.Join(append(lines, "", t.Render()), "\n")
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSpace(line)
}

// truncate shortens value to limit runes, marking the cut with an ellipsis.
func truncate(value string, limit int) string {
	runes := []rune(value)
	if limit <= 0 || len(runes) <= limit {
		return value
	}
	if limit == 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}
