package app

import (
	"context"
	"strings"
	"sync"

	"github.com/hylla/worklog/internal/domain"
)

// Sampler turns probe readings into activities, emitting one only when the focused window changes.
type Sampler struct {
	probe  WindowProbe
	idGen  IDGenerator
	clock  Clock
	logger Logger

	mu      sync.Mutex
	last    domain.Activity
	hasLast bool
}

// NewSampler constructs a sampler over probe.
func NewSampler(probe WindowProbe, idGen IDGenerator, clock Clock, logger Logger) *Sampler {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = defaultClock
	}
	return &Sampler{
		probe:  probe,
		idGen:  idGen,
		clock:  clock,
		logger: loggerOrDiscard(logger),
	}
}

// Sample probes the focused window once. It returns false when the probe misses or the window has
// not changed since the last returned activity; probe failures are logged and swallowed.
func (s *Sampler) Sample(ctx context.Context) (domain.Activity, bool) {
	if s == nil || s.probe == nil {
		return domain.Activity{}, false
	}
	reading, err := s.probe.Read(ctx)
	if err != nil {
		s.logger.Debug("active window probe missed", "err", err)
		return domain.Activity{}, false
	}
	if reading.Empty() {
		return domain.Activity{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasLast && s.last.Reading().SameWindow(trimReading(reading)) {
		return domain.Activity{}, false
	}
	activity, err := domain.NewActivity(s.idGen(), reading, s.clock())
	if err != nil {
		s.logger.Warn("discarding active window reading", "process", reading.ProcessName, "window", reading.WindowTitle, "err", err)
		return domain.Activity{}, false
	}
	s.last = activity
	s.hasLast = true
	return activity.Clone(), true
}

// Last returns the most recently emitted activity.
func (s *Sampler) Last() (domain.Activity, bool) {
	if s == nil {
		return domain.Activity{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLast {
		return domain.Activity{}, false
	}
	return s.last.Clone(), true
}

func trimReading(reading domain.WindowReading) domain.WindowReading {
	reading.ProcessName = strings.TrimSpace(reading.ProcessName)
	reading.WindowTitle = strings.TrimSpace(reading.WindowTitle)
	return reading
}
