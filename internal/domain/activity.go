package domain

import (
	"strings"
	"time"
)

// Platform identifies the operating system an activity was sampled on.
type Platform string

// Platform values.
const (
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
)

// PlatformForGOOS maps a runtime.GOOS value to its platform.
func PlatformForGOOS(goos string) Platform {
	switch goos {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	default:
		return PlatformLinux
	}
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformWindows, PlatformMacOS, PlatformLinux:
		return true
	default:
		return false
	}
}

// WindowReading is one raw answer from an active-window probe.
type WindowReading struct {
	ProcessName string
	WindowTitle string
	Platform    Platform
}

// Empty reports whether the reading carries neither a process name nor a window title.
func (r WindowReading) Empty() bool {
	return strings.TrimSpace(r.ProcessName) == "" && strings.TrimSpace(r.WindowTitle) == ""
}

// SameWindow reports whether two readings point at the same process and window title.
func (r WindowReading) SameWindow(other WindowReading) bool {
	return r.ProcessName == other.ProcessName && r.WindowTitle == other.WindowTitle
}

// Screenshot references an image file written by the capture collaborator.
type Screenshot struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size"`
}

// Activity is one recorded change of window focus.
type Activity struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	ProcessName string      `json:"processName"`
	WindowTitle string      `json:"windowTitle"`
	Platform    Platform    `json:"platform"`
	Screenshot  *Screenshot `json:"screenshot,omitempty"`
}

// NewActivity constructs a normalized activity from one probe reading.
func NewActivity(id string, reading WindowReading, now time.Time) (Activity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Activity{}, ErrInvalidID
	}
	reading.ProcessName = strings.TrimSpace(reading.ProcessName)
	reading.WindowTitle = strings.TrimSpace(reading.WindowTitle)
	if reading.Empty() {
		return Activity{}, ErrEmptyWindow
	}
	if !reading.Platform.Valid() {
		return Activity{}, ErrInvalidPlatform
	}
	return Activity{
		ID:          id,
		Timestamp:   NormalizeTimestamp(now),
		ProcessName: reading.ProcessName,
		WindowTitle: reading.WindowTitle,
		Platform:    reading.Platform,
	}, nil
}

// Reading returns the window identity of the activity.
func (a Activity) Reading() WindowReading {
	return WindowReading{
		ProcessName: a.ProcessName,
		WindowTitle: a.WindowTitle,
		Platform:    a.Platform,
	}
}

// Clone returns a copy that shares no pointers with a.
func (a Activity) Clone() Activity {
	if a.Screenshot != nil {
		shot := *a.Screenshot
		a.Screenshot = &shot
	}
	return a
}

// NormalizeTimestamp converts t to UTC with millisecond precision.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
