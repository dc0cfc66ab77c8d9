package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hylla/worklog/internal/domain"
)

type memoryRepo struct {
	mu          sync.Mutex
	activities  []domain.Activity
	summaries   []domain.Summary
	appendErr   error
	appendCalls int
	// beforeAppend runs outside the lock ahead of every append.
	beforeAppend func(domain.Activity)
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{}
}

func (r *memoryRepo) AppendActivity(_ context.Context, activity domain.Activity) error {
	if r.beforeAppend != nil {
		r.beforeAppend(activity)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendCalls++
	if r.appendErr != nil {
		return r.appendErr
	}
	r.activities = append(r.activities, activity.Clone())
	return nil
}

func (r *memoryRepo) ListActivities(_ context.Context, tr domain.TimeRange) ([]domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Activity, 0, len(r.activities))
	for _, activity := range r.activities {
		if tr.Contains(activity.Timestamp) {
			out = append(out, activity.Clone())
		}
	}
	return out, nil
}

func (r *memoryRepo) DeleteActivity(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, activity := range r.activities {
		if activity.ID == id {
			r.activities = append(r.activities[:i], r.activities[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) AttachScreenshot(_ context.Context, id string, shot domain.Screenshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.activities {
		if r.activities[i].ID == id {
			r.activities[i].Screenshot = &shot
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) ClearActivities(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities = nil
	return nil
}

func (r *memoryRepo) AppendSummary(_ context.Context, summary domain.Summary) (domain.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary.DocumentPath = "summaries/" + summary.ID + ".md"
	r.summaries = append(r.summaries, summary.Clone())
	return summary, nil
}

func (r *memoryRepo) ListSummaries(_ context.Context, tr domain.TimeRange) ([]domain.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Summary, 0, len(r.summaries))
	for _, summary := range r.summaries {
		if tr.Contains(summary.Timestamp) {
			out = append(out, summary.Clone())
		}
	}
	return out, nil
}

func (r *memoryRepo) DeleteSummary(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, summary := range r.summaries {
		if summary.ID == id {
			r.summaries = append(r.summaries[:i], r.summaries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) Cleanup(_ context.Context, cutoff time.Time) (domain.CleanupResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := domain.CleanupResult{Cutoff: cutoff}
	keptActivities := r.activities[:0]
	for _, activity := range r.activities {
		if activity.Timestamp.Before(cutoff) {
			result.ActivitiesRemoved++
			continue
		}
		keptActivities = append(keptActivities, activity)
	}
	r.activities = keptActivities
	keptSummaries := r.summaries[:0]
	for _, summary := range r.summaries {
		if summary.Timestamp.Before(cutoff) {
			result.SummariesRemoved++
			continue
		}
		keptSummaries = append(keptSummaries, summary)
	}
	r.summaries = keptSummaries
	return result, nil
}

func (r *memoryRepo) activityCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activities)
}

func (r *memoryRepo) summaryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.summaries)
}

func (r *memoryRepo) snapshot() []domain.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Activity, 0, len(r.activities))
	for _, activity := range r.activities {
		out = append(out, activity.Clone())
	}
	return out
}

type probeStep struct {
	reading domain.WindowReading
	err     error
}

// scriptedProbe replays steps in order and then repeats the final step.
type scriptedProbe struct {
	mu    sync.Mutex
	steps []probeStep
	calls int
	// entered and release, when set, make Read block after announcing itself.
	entered chan struct{}
	release chan struct{}
}

func (p *scriptedProbe) Read(ctx context.Context) (domain.WindowReading, error) {
	if p.entered != nil {
		p.entered <- struct{}{}
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.steps) == 0 {
		return domain.WindowReading{}, ErrProbeMiss
	}
	idx := p.calls
	if idx >= len(p.steps) {
		idx = len(p.steps) - 1
	}
	p.calls++
	step := p.steps[idx]
	return step.reading, step.err
}

func reading(process, title string) probeStep {
	return probeStep{reading: domain.WindowReading{ProcessName: process, WindowTitle: title, Platform: domain.PlatformLinux}}
}

// switchProbe always reports the reading most recently set.
type switchProbe struct {
	mu      sync.Mutex
	current domain.WindowReading
}

func (p *switchProbe) set(process, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = domain.WindowReading{ProcessName: process, WindowTitle: title, Platform: domain.PlatformLinux}
}

func (p *switchProbe) Read(context.Context) (domain.WindowReading, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type fakeCompletionClient struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []CompletionRequest
}

func (c *fakeCompletionClient) Complete(_ context.Context, req CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return c.text, c.err
}

func (c *fakeCompletionClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
