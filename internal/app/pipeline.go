package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hylla/worklog/internal/domain"
)

// Task names used in logs and metrics.
const (
	TaskSample  = "sample"
	TaskCapture = "capture"
	TaskSummary = "summary"
)

// Ticker delivers ticks at a fixed cadence.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a ticker for one periodic task.
type TickerFactory func(time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker adapts time.NewTicker to TickerFactory.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// PipelineConfig holds configuration for the periodic tasks.
type PipelineConfig struct {
	SampleInterval     time.Duration
	CaptureScreenshots bool
	CaptureInterval    time.Duration
	// SummaryInterval <= 0 disables periodic summaries.
	SummaryInterval time.Duration
	Location        *time.Location
}

// PipelineDeps wires collaborators into a Pipeline. Capture, Recognizer, Recognitions, and Summarizer are optional.
type PipelineDeps struct {
	Repo         Repository
	Sampler      *Sampler
	Summarizer   *Summarizer
	Capture      ScreenCaptureProvider
	Recognizer   TextRecognitionProvider
	Recognitions RecognitionStore
	Focus        *FocusTracker
	Clock        Clock
	NewTicker    TickerFactory
	Logger       Logger
}

// Pipeline owns the sampling, capture, and summary tasks and the Idle/Monitoring lifecycle.
type Pipeline struct {
	repo         Repository
	sampler      *Sampler
	summarizer   *Summarizer
	capture      ScreenCaptureProvider
	recognizer   TextRecognitionProvider
	recognitions RecognitionStore
	focus        *FocusTracker
	clock        Clock
	newTicker    TickerFactory
	logger       Logger
	cfg          PipelineConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	work    sync.WaitGroup

	// recordMu spans sampling and the append so the sample and capture tasks
	// store activities in the order the sampler accepted them.
	recordMu sync.Mutex
}

// NewPipeline constructs an idle pipeline.
func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if deps.Clock == nil {
		deps.Clock = defaultClock
	}
	if deps.NewTicker == nil {
		deps.NewTicker = NewTimeTicker
	}
	if deps.Focus == nil {
		deps.Focus = NewFocusTracker(deps.Clock)
	}
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = time.Minute
	}
	if cfg.CaptureInterval <= 0 {
		cfg.CaptureInterval = 5 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Pipeline{
		repo:         deps.Repo,
		sampler:      deps.Sampler,
		summarizer:   deps.Summarizer,
		capture:      deps.Capture,
		recognizer:   deps.Recognizer,
		recognitions: deps.Recognitions,
		focus:        deps.Focus,
		clock:        deps.Clock,
		newTicker:    deps.NewTicker,
		logger:       loggerOrDiscard(deps.Logger),
		cfg:          cfg,
	}
}

// Start arms the periodic tasks. It is a no-op while already monitoring. Tick work runs on a
// context that keeps ctx's values but is never cancelled by Stop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	if p.repo == nil || p.sampler == nil {
		return fmt.Errorf("pipeline requires a repository and a sampler: %w", ErrConfigInvalid)
	}

	base := context.WithoutCancel(ctx)
	loopCtx, cancel := context.WithCancel(base)
	p.cancel = cancel
	p.running = true
	recordMonitoring(true)

	p.arm(loopCtx, base, TaskSample, p.cfg.SampleInterval, p.sampleTick)
	if p.cfg.CaptureScreenshots && p.capture != nil {
		p.arm(loopCtx, base, TaskCapture, p.cfg.CaptureInterval, p.captureTick)
	}
	if p.cfg.SummaryInterval > 0 && p.summarizer != nil {
		p.arm(loopCtx, base, TaskSummary, p.cfg.SummaryInterval, p.summaryTick)
	}
	p.logger.Info("monitoring started",
		"sample_interval", p.cfg.SampleInterval,
		"capture", p.cfg.CaptureScreenshots,
		"summary_interval", p.cfg.SummaryInterval,
	)
	return nil
}

// Stop disarms every periodic task. In-flight ticks are left to finish; use Wait to block on them.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.cancel()
	p.loops.Wait()
	p.cancel = nil
	p.running = false
	p.focus.Reset()
	recordMonitoring(false)
	p.logger.Info("monitoring stopped")
}

// Wait blocks until every tick started so far has finished.
func (p *Pipeline) Wait() {
	p.work.Wait()
}

// IsRunning reports whether the pipeline is monitoring.
func (p *Pipeline) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Pipeline) arm(loopCtx, workCtx context.Context, task string, interval time.Duration, fn func(context.Context) error) {
	ticker := p.newTicker(interval)
	p.loops.Add(1)
	go func() {
		defer p.loops.Done()
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C():
				if loopCtx.Err() != nil {
					return
				}
				p.work.Add(1)
				go p.runTick(workCtx, task, fn)
			}
		}
	}()
}

func (p *Pipeline) runTick(ctx context.Context, task string, fn func(context.Context) error) {
	defer p.work.Done()
	defer func() {
		if r := recover(); r != nil {
			recordTickFailure(task)
			p.logger.Error("periodic task panicked", "task", task, "panic", r)
		}
	}()
	recordTick(task)
	if err := fn(ctx); err != nil {
		recordTickFailure(task)
		p.logger.Error("periodic task failed", "task", task, "err", err)
	}
}

func (p *Pipeline) sampleTick(ctx context.Context) error {
	_, _, err := p.SampleOnce(ctx)
	return err
}

func (p *Pipeline) captureTick(ctx context.Context) error {
	_, err := p.CaptureOnce(ctx)
	return err
}

func (p *Pipeline) summaryTick(ctx context.Context) error {
	_, _, err := p.GenerateSummaryNow(ctx)
	return err
}

// SampleOnce probes the focused window and records it when it changed.
func (p *Pipeline) SampleOnce(ctx context.Context) (domain.Activity, bool, error) {
	p.recordMu.Lock()
	defer p.recordMu.Unlock()
	activity, ok := p.sampler.Sample(ctx)
	if !ok {
		return domain.Activity{}, false, nil
	}
	if err := p.record(ctx, activity); err != nil {
		return activity, false, err
	}
	return activity, true, nil
}

func (p *Pipeline) record(ctx context.Context, activity domain.Activity) error {
	p.focus.Observe(activity.ProcessName)
	if err := p.repo.AppendActivity(ctx, activity); err != nil {
		return fmt.Errorf("append activity %s: %w", activity.ID, err)
	}
	recordActivity()
	p.logger.Info("activity recorded", "process", activity.ProcessName, "window", activity.WindowTitle)
	return nil
}

// sampleForCapture records a changed reading or falls back to the last recorded activity.
func (p *Pipeline) sampleForCapture(ctx context.Context) (domain.Activity, bool, error) {
	p.recordMu.Lock()
	defer p.recordMu.Unlock()
	activity, changed := p.sampler.Sample(ctx)
	if changed {
		if err := p.record(ctx, activity); err != nil {
			return domain.Activity{}, false, err
		}
		return activity, true, nil
	}
	activity, ok := p.sampler.Last()
	return activity, ok, nil
}

// CaptureResult reports the outcome of one capture tick.
type CaptureResult struct {
	Activity    domain.Activity
	Screenshot  domain.Screenshot
	Attached    bool
	Recognition *domain.Recognition
	// Degraded holds a non-fatal recognition persistence failure.
	Degraded error
}

// CaptureOnce re-samples the focused window, captures a screenshot for it, and runs text
// recognition. A reading identical to the last recorded activity reuses that activity.
func (p *Pipeline) CaptureOnce(ctx context.Context) (CaptureResult, error) {
	if p.capture == nil {
		return CaptureResult{}, fmt.Errorf("screen capture is not configured: %w", ErrConfigInvalid)
	}
	activity, ok, err := p.sampleForCapture(ctx)
	if err != nil || !ok {
		return CaptureResult{}, err
	}

	result := CaptureResult{Activity: activity}
	shot, err := p.capture.Capture(ctx, p.clock())
	if err != nil {
		return result, fmt.Errorf("capture screenshot: %w", err)
	}
	result.Screenshot = shot
	attached, err := p.repo.AttachScreenshot(ctx, activity.ID, shot)
	if err != nil {
		return result, fmt.Errorf("attach screenshot to %s: %w", activity.ID, err)
	}
	result.Attached = attached
	if !attached {
		p.logger.Debug("screenshot target activity no longer exists", "activity_id", activity.ID)
	}
	p.logger.Info("screenshot saved", "path", shot.Path, "activity_id", activity.ID)

	if p.recognizer == nil {
		return result, nil
	}
	recognition, err := p.recognizer.Recognize(ctx, shot)
	if err != nil {
		recognition = domain.Recognition{Success: false, Error: err.Error(), Timestamp: p.clock()}
	}
	result.Recognition = &recognition
	if p.recognitions != nil {
		if err := p.recognitions.SaveRecognition(ctx, activity.ID, recognition); err != nil {
			result.Degraded = err
			p.logger.Warn("recognition result not persisted", "activity_id", activity.ID, "err", err)
		}
	}
	p.logger.Info("text recognition finished", "activity_id", activity.ID, "success", recognition.Success)
	return result, nil
}

// GenerateSummaryNow runs the summarizer once. ok=false with a nil error means there was nothing to summarize.
func (p *Pipeline) GenerateSummaryNow(ctx context.Context) (domain.Summary, bool, error) {
	if p.summarizer == nil {
		return domain.Summary{}, false, fmt.Errorf("summarizer is not configured: %w", ErrConfigInvalid)
	}
	started := p.clock()
	summary, ok, err := p.summarizer.GenerateSummary(ctx)
	if err != nil || !ok {
		return summary, ok, err
	}
	recordSummary(p.clock().Sub(started))
	return summary, true, nil
}

// Location returns the location used for calendar-day boundaries.
func (p *Pipeline) Location() *time.Location {
	return p.cfg.Location
}

// QueryActivities lists activities inside r in insertion order.
func (p *Pipeline) QueryActivities(ctx context.Context, r domain.TimeRange) ([]domain.Activity, error) {
	return p.repo.ListActivities(ctx, r)
}

// ActivitiesOn lists the activities recorded on day's calendar date.
func (p *Pipeline) ActivitiesOn(ctx context.Context, day time.Time) ([]domain.Activity, error) {
	return p.repo.ListActivities(ctx, domain.DayRange(day, p.cfg.Location))
}

// ActivitiesBetween lists activities from first's date through last's date inclusive.
func (p *Pipeline) ActivitiesBetween(ctx context.Context, first, last time.Time) ([]domain.Activity, error) {
	r, err := domain.DateRange(first, last, p.cfg.Location)
	if err != nil {
		return nil, err
	}
	return p.repo.ListActivities(ctx, r)
}

// QuerySummaries lists summaries inside r in insertion order.
func (p *Pipeline) QuerySummaries(ctx context.Context, r domain.TimeRange) ([]domain.Summary, error) {
	return p.repo.ListSummaries(ctx, r)
}

// SummariesOn lists the summaries generated on day's calendar date.
func (p *Pipeline) SummariesOn(ctx context.Context, day time.Time) ([]domain.Summary, error) {
	return p.repo.ListSummaries(ctx, domain.DayRange(day, p.cfg.Location))
}

// Statistics derives usage statistics for day's calendar date.
func (p *Pipeline) Statistics(ctx context.Context, day time.Time) (domain.Statistics, error) {
	activities, err := p.ActivitiesOn(ctx, day)
	if err != nil {
		return domain.Statistics{}, err
	}
	return domain.ComputeStatistics(activities, p.cfg.Location), nil
}

// DeleteActivity removes one activity by id.
func (p *Pipeline) DeleteActivity(ctx context.Context, id string) error {
	found, err := p.repo.DeleteActivity(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// DeleteSummary removes one summary by id.
func (p *Pipeline) DeleteSummary(ctx context.Context, id string) error {
	found, err := p.repo.DeleteSummary(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// ClearActivities removes every stored activity.
func (p *Pipeline) ClearActivities(ctx context.Context) error {
	return p.repo.ClearActivities(ctx)
}

// Cleanup removes records older than retentionDays, including persisted recognition results.
func (p *Pipeline) Cleanup(ctx context.Context, retentionDays int) (domain.CleanupResult, error) {
	if retentionDays < 0 {
		return domain.CleanupResult{}, fmt.Errorf("retention days must be >= 0: %w", ErrConfigInvalid)
	}
	cutoff := p.clock().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	result, err := p.repo.Cleanup(ctx, cutoff)
	if err != nil {
		return domain.CleanupResult{}, err
	}
	if p.recognitions != nil {
		removed, err := p.recognitions.CleanupRecognitions(ctx, cutoff)
		if err != nil {
			p.logger.Warn("recognition cleanup failed", "err", err)
		}
		result.RecognitionsRemoved = removed
	}
	p.logger.Info("retention cleanup finished",
		"cutoff", result.Cutoff,
		"activities_removed", result.ActivitiesRemoved,
		"summaries_removed", result.SummariesRemoved,
		"recognitions_removed", result.RecognitionsRemoved,
	)
	return result, nil
}

// Status describes the pipeline for status displays.
type Status struct {
	Running    bool      `json:"running"`
	CurrentApp string    `json:"current_app"`
	Since      time.Time `json:"since,omitzero"`
	FocusedFor string    `json:"focused_for"`
}

// Status returns the lifecycle state and the currently focused application.
func (p *Pipeline) Status() Status {
	snapshot := p.focus.Snapshot()
	status := Status{Running: p.IsRunning(), CurrentApp: snapshot.Application, Since: snapshot.Since}
	if snapshot.Application != "" {
		status.FocusedFor = FormatFocusDuration(snapshot.FocusedFor)
	}
	return status
}
