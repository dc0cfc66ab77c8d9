package app

import (
	"context"
	"time"

	"github.com/hylla/worklog/internal/domain"
)

// Repository represents the durable activity and summary store.
type Repository interface {
	AppendActivity(context.Context, domain.Activity) error
	ListActivities(context.Context, domain.TimeRange) ([]domain.Activity, error)
	DeleteActivity(context.Context, string) (bool, error)
	AttachScreenshot(context.Context, string, domain.Screenshot) (bool, error)
	ClearActivities(context.Context) error

	AppendSummary(context.Context, domain.Summary) (domain.Summary, error)
	ListSummaries(context.Context, domain.TimeRange) ([]domain.Summary, error)
	DeleteSummary(context.Context, string) (bool, error)

	Cleanup(context.Context, time.Time) (domain.CleanupResult, error)
}

// WindowProbe reads the currently focused window.
type WindowProbe interface {
	Read(context.Context) (domain.WindowReading, error)
}

// ScreenCaptureProvider writes one screenshot and describes the resulting file.
type ScreenCaptureProvider interface {
	Capture(context.Context, time.Time) (domain.Screenshot, error)
}

// TextRecognitionProvider extracts text from a captured screenshot.
type TextRecognitionProvider interface {
	Recognize(context.Context, domain.Screenshot) (domain.Recognition, error)
}

// RecognitionStore persists recognition results keyed by activity.
type RecognitionStore interface {
	SaveRecognition(context.Context, string, domain.Recognition) error
	CleanupRecognitions(context.Context, time.Time) (int, error)
}

// CompletionRequest carries one chat-completion call.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// TextGenerationClient sends prompts to a remote language model.
type TextGenerationClient interface {
	Complete(context.Context, CompletionRequest) (string, error)
}

// Logger is the structured logger used by long-running app components.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

type discardLogger struct{}

func (discardLogger) Debug(any, ...any) {}
func (discardLogger) Info(any, ...any)  {}
func (discardLogger) Warn(any, ...any)  {}
func (discardLogger) Error(any, ...any) {}

func loggerOrDiscard(logger Logger) Logger {
	if logger == nil {
		return discardLogger{}
	}
	return logger
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now()
}
