// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"

	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrNotConfigured reports an operation the current configuration cannot serve, such as
// summarizing without an API key.
var ErrNotConfigured = errors.New("not configured")

// ErrServiceUnavailable reports a transport wired without a backing service.
var ErrServiceUnavailable = errors.New("service unavailable")

// ErrUpstream reports a failure of the remote text-generation service.
var ErrUpstream = errors.New("upstream service failed")

// MonitoringStatus is the lifecycle view returned by monitoring endpoints.
type MonitoringStatus = app.Status

// ListActivitiesRequest selects activities by one date or an inclusive date span.
// Dates use YYYY-MM-DD; an empty request means today.
type ListActivitiesRequest struct {
	Date string
	From string
	To   string
}

// ListSummariesRequest selects summaries by date. An empty date means today.
type ListSummariesRequest struct {
	Date string
}

// StatisticsRequest selects the day statistics are derived for. An empty date means today.
type StatisticsRequest struct {
	Date string
}

// CleanupRequest carries the retention window. A nil value uses the configured default.
type CleanupRequest struct {
	RetentionDays *int `json:"retention_days,omitempty"`
}

// ActivityList wraps activity rows for transport responses.
type ActivityList struct {
	Activities []domain.Activity `json:"activities"`
}

// SummaryList wraps summary rows for transport responses.
type SummaryList struct {
	Summaries []domain.Summary `json:"summaries"`
}

// GenerateSummaryResult reports one on-demand summarization.
type GenerateSummaryResult struct {
	Generated bool            `json:"generated"`
	Summary   *domain.Summary `json:"summary,omitempty"`
}

// WorklogService is the app surface shared by the HTTP and MCP adapters.
type WorklogService interface {
	MonitoringStatus(context.Context) (MonitoringStatus, error)
	StartMonitoring(context.Context) (MonitoringStatus, error)
	StopMonitoring(context.Context) (MonitoringStatus, error)
	ListActivities(context.Context, ListActivitiesRequest) ([]domain.Activity, error)
	DeleteActivity(context.Context, string) error
	ListSummaries(context.Context, ListSummariesRequest) ([]domain.Summary, error)
	GenerateSummary(context.Context) (GenerateSummaryResult, error)
	DeleteSummary(context.Context, string) error
	Statistics(context.Context, StatisticsRequest) (domain.Statistics, error)
	Cleanup(context.Context, CleanupRequest) (domain.CleanupResult, error)
}
