package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

// AppServiceAdapter maps transport contracts onto an app.Pipeline.
type AppServiceAdapter struct {
	pipeline             *app.Pipeline
	defaultRetentionDays int
	now                  func() time.Time
}

// AdapterOption customizes an AppServiceAdapter.
type AdapterOption func(*AppServiceAdapter)

// WithDefaultRetentionDays sets the retention used when a cleanup request omits one.
func WithDefaultRetentionDays(days int) AdapterOption {
	return func(a *AppServiceAdapter) {
		a.defaultRetentionDays = days
	}
}

// WithNow sets the clock used to resolve "today".
func WithNow(now func() time.Time) AdapterOption {
	return func(a *AppServiceAdapter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAppServiceAdapter builds one common adapter over a pipeline.
func NewAppServiceAdapter(pipeline *app.Pipeline, opts ...AdapterOption) *AppServiceAdapter {
	a := &AppServiceAdapter{pipeline: pipeline, defaultRetentionDays: 30, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ WorklogService = (*AppServiceAdapter)(nil)

// MonitoringStatus returns the pipeline lifecycle state.
func (a *AppServiceAdapter) MonitoringStatus(context.Context) (MonitoringStatus, error) {
	if err := a.ready(); err != nil {
		return MonitoringStatus{}, err
	}
	return a.pipeline.Status(), nil
}

// StartMonitoring arms the pipeline. Starting twice is a no-op.
func (a *AppServiceAdapter) StartMonitoring(ctx context.Context) (MonitoringStatus, error) {
	if err := a.ready(); err != nil {
		return MonitoringStatus{}, err
	}
	if err := a.pipeline.Start(ctx); err != nil {
		return MonitoringStatus{}, mapAppError("start monitoring", err)
	}
	return a.pipeline.Status(), nil
}

// StopMonitoring disarms the pipeline. Stopping twice is a no-op.
func (a *AppServiceAdapter) StopMonitoring(context.Context) (MonitoringStatus, error) {
	if err := a.ready(); err != nil {
		return MonitoringStatus{}, err
	}
	a.pipeline.Stop()
	return a.pipeline.Status(), nil
}

// ListActivities resolves one date or date span into stored activities.
func (a *AppServiceAdapter) ListActivities(ctx context.Context, in ListActivitiesRequest) ([]domain.Activity, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	from, to := strings.TrimSpace(in.From), strings.TrimSpace(in.To)
	if from != "" || to != "" {
		if strings.TrimSpace(in.Date) != "" {
			return nil, fmt.Errorf("date cannot be combined with from/to: %w", ErrInvalidRequest)
		}
		if from == "" || to == "" {
			return nil, fmt.Errorf("from and to must be given together: %w", ErrInvalidRequest)
		}
		first, err := a.parseDay(from)
		if err != nil {
			return nil, err
		}
		last, err := a.parseDay(to)
		if err != nil {
			return nil, err
		}
		activities, err := a.pipeline.ActivitiesBetween(ctx, first, last)
		if err != nil {
			return nil, mapAppError("list activities", err)
		}
		return activities, nil
	}

	day, err := a.dayOrToday(in.Date)
	if err != nil {
		return nil, err
	}
	activities, err := a.pipeline.ActivitiesOn(ctx, day)
	if err != nil {
		return nil, mapAppError("list activities", err)
	}
	return activities, nil
}

// DeleteActivity removes one activity.
func (a *AppServiceAdapter) DeleteActivity(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("activity id is required: %w", ErrInvalidRequest)
	}
	return mapAppError("delete activity", a.pipeline.DeleteActivity(ctx, id))
}

// ListSummaries lists the summaries generated on one day.
func (a *AppServiceAdapter) ListSummaries(ctx context.Context, in ListSummariesRequest) ([]domain.Summary, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	day, err := a.dayOrToday(in.Date)
	if err != nil {
		return nil, err
	}
	summaries, err := a.pipeline.SummariesOn(ctx, day)
	if err != nil {
		return nil, mapAppError("list summaries", err)
	}
	return summaries, nil
}

// GenerateSummary summarizes the lookback window now.
func (a *AppServiceAdapter) GenerateSummary(ctx context.Context) (GenerateSummaryResult, error) {
	if err := a.ready(); err != nil {
		return GenerateSummaryResult{}, err
	}
	summary, ok, err := a.pipeline.GenerateSummaryNow(ctx)
	if err != nil {
		return GenerateSummaryResult{}, mapAppError("generate summary", err)
	}
	if !ok {
		return GenerateSummaryResult{}, nil
	}
	return GenerateSummaryResult{Generated: true, Summary: &summary}, nil
}

// DeleteSummary removes one summary.
func (a *AppServiceAdapter) DeleteSummary(ctx context.Context, id string) error {
	if err := a.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("summary id is required: %w", ErrInvalidRequest)
	}
	return mapAppError("delete summary", a.pipeline.DeleteSummary(ctx, id))
}

// Statistics derives the statistics of one day.
func (a *AppServiceAdapter) Statistics(ctx context.Context, in StatisticsRequest) (domain.Statistics, error) {
	if err := a.ready(); err != nil {
		return domain.Statistics{}, err
	}
	day, err := a.dayOrToday(in.Date)
	if err != nil {
		return domain.Statistics{}, err
	}
	stats, err := a.pipeline.Statistics(ctx, day)
	if err != nil {
		return domain.Statistics{}, mapAppError("statistics", err)
	}
	return stats, nil
}

// Cleanup applies the retention window.
func (a *AppServiceAdapter) Cleanup(ctx context.Context, in CleanupRequest) (domain.CleanupResult, error) {
	if err := a.ready(); err != nil {
		return domain.CleanupResult{}, err
	}
	days := a.defaultRetentionDays
	if in.RetentionDays != nil {
		days = *in.RetentionDays
	}
	if days < 0 {
		return domain.CleanupResult{}, fmt.Errorf("retention_days must be >= 0: %w", ErrInvalidRequest)
	}
	result, err := a.pipeline.Cleanup(ctx, days)
	if err != nil {
		return domain.CleanupResult{}, mapAppError("cleanup", err)
	}
	return result, nil
}

func (a *AppServiceAdapter) ready() error {
	if a == nil || a.pipeline == nil {
		return fmt.Errorf("app service adapter has no pipeline: %w", ErrServiceUnavailable)
	}
	return nil
}

func (a *AppServiceAdapter) dayOrToday(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return a.now().In(a.location()), nil
	}
	return a.parseDay(value)
}

func (a *AppServiceAdapter) parseDay(value string) (time.Time, error) {
	day, err := domain.ParseDate(value, a.location())
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidRequest, err)
	}
	return day, nil
}

func (a *AppServiceAdapter) location() *time.Location {
	if loc := a.pipeline.Location(); loc != nil {
		return loc
	}
	return time.Local
}

// mapAppError tags app errors with the transport error they surface as.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	var remote *app.RemoteServiceError
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.As(err, &remote):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUpstream, err))
	case errors.Is(err, app.ErrConfigInvalid):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotConfigured, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidDate):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
