// Package summarydoc renders stored summaries as standalone Markdown documents.
package summarydoc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

const (
	// DirName is the sub-directory of the store that holds rendered summaries.
	DirName = "summaries"

	isoLayout         = "2006-01-02T15:04:05.000Z"
	displayTimeLayout = "2006-01-02 15:04:05"
)

var fileNameReplacer = strings.NewReplacer(":", "-", ".", "-")

// Writer writes one Markdown document per summary.
type Writer struct {
	dir string
	loc *time.Location
}

// NewWriter constructs a writer rooted at dir. Times are rendered in loc.
func NewWriter(dir string, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{dir: dir, loc: loc}
}

// Dir returns the directory documents are written to.
func (w *Writer) Dir() string {
	return w.dir
}

// FileName returns the document name for summary id generated at ts. The id keeps summaries
// generated within the same millisecond apart.
func FileName(ts time.Time, id string) string {
	name := "summary_" + fileNameReplacer.Replace(ts.UTC().Format(isoLayout))
	if id = sanitizeID(id); id != "" {
		name += "_" + id
	}
	return name + ".md"
}

// sanitizeID keeps the characters that are safe in a file name on every platform.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(id))
}

// Write renders summary and returns the path of the written document.
func (w *Writer) Write(summary domain.Summary) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", &app.StoreIOError{Op: "create summary dir", Path: w.dir, Err: err}
	}
	path := filepath.Join(w.dir, FileName(summary.Timestamp, summary.ID))
	if err := os.WriteFile(path, []byte(Render(summary, w.loc)), 0o644); err != nil {
		return "", &app.StoreIOError{Op: "write summary document", Path: path, Err: err}
	}
	return path, nil
}

// Render formats summary as Markdown.
func Render(summary domain.Summary, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString("# Work Log Summary\n\n")
	fmt.Fprintf(&b, "**Time**: %s\n\n", summary.Timestamp.In(loc).Format(displayTimeLayout))
	fmt.Fprintf(&b, "**Activities**: %d\n\n", summary.ActivityCount)
	b.WriteString("---\n\n")
	b.WriteString("## Summary\n\n")
	b.WriteString(summary.SummaryText)
	b.WriteString("\n\n---\n\n")
	b.WriteString("## Activity Details\n\n")
	for _, activity := range summary.Activities {
		fmt.Fprintf(&b, "- [%s] %s - %s\n", activity.Timestamp.In(loc).Format(domain.TimeOfDayLayout), activity.ProcessName, activity.WindowTitle)
	}
	return b.String()
}
