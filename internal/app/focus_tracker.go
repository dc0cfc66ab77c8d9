package app

import (
	"fmt"
	"sync"
	"time"
)

// FocusTracker records which application currently holds focus and since when.
type FocusTracker struct {
	clock Clock

	mu      sync.Mutex
	current string
	since   time.Time
}

// FocusSnapshot is a point-in-time view of the tracker.
type FocusSnapshot struct {
	Application string
	Since       time.Time
	FocusedFor  time.Duration
}

// NewFocusTracker constructs a tracker.
func NewFocusTracker(clock Clock) *FocusTracker {
	if clock == nil {
		clock = defaultClock
	}
	return &FocusTracker{clock: clock}
}

// Observe notes that application is focused. The focus start only moves when the application changes.
func (t *FocusTracker) Observe(application string) {
	if t == nil || application == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if application == t.current {
		return
	}
	t.current = application
	t.since = t.clock()
}

// Snapshot returns the focused application and how long it has held focus.
func (t *FocusTracker) Snapshot() FocusSnapshot {
	if t == nil {
		return FocusSnapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == "" {
		return FocusSnapshot{}
	}
	elapsed := t.clock().Sub(t.since)
	if elapsed < 0 {
		elapsed = 0
	}
	return FocusSnapshot{Application: t.current, Since: t.since, FocusedFor: elapsed}
}

// Reset clears the tracked application.
func (t *FocusTracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = ""
	t.since = time.Time{}
}

// FormatFocusDuration renders a focus duration compactly: <1m, 42m, 1h5m, 2h.
func FormatFocusDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	switch {
	case minutes < 1:
		return "<1m"
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh%dm", hours, rest)
}
