package domain

import (
	"strings"
	"time"
)

// ActivitySnapshot is the point-in-time copy of an activity kept inside a summary.
type ActivitySnapshot struct {
	ProcessName string    `json:"processName"`
	WindowTitle string    `json:"windowTitle"`
	Timestamp   time.Time `json:"timestamp"`
}

// Summary is one generated digest of recent activity.
type Summary struct {
	ID            string             `json:"id"`
	Timestamp     time.Time          `json:"timestamp"`
	SummaryText   string             `json:"summary"`
	ActivityCount int                `json:"activityCount"`
	Activities    []ActivitySnapshot `json:"activities"`
	DocumentPath  string             `json:"path,omitempty"`
}

// NewSummary constructs a summary whose activity list is a detached projection of activities.
func NewSummary(id, text string, activities []Activity, now time.Time) (Summary, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Summary{}, ErrInvalidID
	}
	if strings.TrimSpace(text) == "" {
		return Summary{}, ErrEmptySummary
	}
	snapshots := make([]ActivitySnapshot, 0, len(activities))
	for _, activity := range activities {
		snapshots = append(snapshots, ActivitySnapshot{
			ProcessName: activity.ProcessName,
			WindowTitle: activity.WindowTitle,
			Timestamp:   activity.Timestamp,
		})
	}
	return Summary{
		ID:            id,
		Timestamp:     NormalizeTimestamp(now),
		SummaryText:   text,
		ActivityCount: len(snapshots),
		Activities:    snapshots,
	}, nil
}

// Clone returns a deep copy of s.
func (s Summary) Clone() Summary {
	s.Activities = append([]ActivitySnapshot(nil), s.Activities...)
	return s
}
