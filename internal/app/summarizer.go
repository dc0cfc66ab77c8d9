package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/domain"
)

// SummarizerConfig holds configuration for summary generation.
type SummarizerConfig struct {
	LookbackMinutes    int
	Model              string
	MaxTokens          int
	Temperature        float64
	CompressActivities bool
	Prompt             string
	Location           *time.Location
}

// Summarizer reads recent activity, asks the text-generation client for a digest, and stores it.
type Summarizer struct {
	repo   Repository
	client TextGenerationClient
	idGen  IDGenerator
	clock  Clock
	cfg    SummarizerConfig
	logger Logger
}

// NewSummarizer constructs a summarizer.
func NewSummarizer(repo Repository, client TextGenerationClient, idGen IDGenerator, clock Clock, cfg SummarizerConfig, logger Logger) *Summarizer {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = defaultClock
	}
	if cfg.LookbackMinutes <= 0 {
		cfg.LookbackMinutes = 60
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Summarizer{
		repo:   repo,
		client: client,
		idGen:  idGen,
		clock:  clock,
		cfg:    cfg,
		logger: loggerOrDiscard(logger),
	}
}

// GenerateSummary summarizes the lookback window. It returns ok=false with a nil error when there
// is nothing to summarize or the model returned no text; client failures are returned as errors and
// nothing is persisted.
func (s *Summarizer) GenerateSummary(ctx context.Context) (domain.Summary, bool, error) {
	now := s.clock()
	cutoff := now.Add(-time.Duration(s.cfg.LookbackMinutes) * time.Minute)
	activities, err := s.repo.ListActivities(ctx, domain.Since(cutoff))
	if err != nil {
		return domain.Summary{}, false, fmt.Errorf("list recent activities: %w", err)
	}
	if len(activities) == 0 {
		s.logger.Info("no recent activity to summarize", "lookback_minutes", s.cfg.LookbackMinutes)
		return domain.Summary{}, false, nil
	}
	if s.client == nil {
		return domain.Summary{}, false, fmt.Errorf("text generation client is not configured: %w", ErrConfigInvalid)
	}

	prompt := BuildSummaryPrompt(activities, PromptOptions{
		Compress:     s.cfg.CompressActivities,
		CustomPrompt: s.cfg.Prompt,
		Location:     s.cfg.Location,
	})
	text, err := s.client.Complete(ctx, CompletionRequest{
		Model:        s.cfg.Model,
		SystemPrompt: SummarySystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		return domain.Summary{}, false, fmt.Errorf("generate summary: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Warn("text generation returned an empty completion")
		return domain.Summary{}, false, nil
	}

	summary, err := domain.NewSummary(s.idGen(), text, activities, s.clock())
	if err != nil {
		return domain.Summary{}, false, err
	}
	stored, err := s.repo.AppendSummary(ctx, summary)
	if err != nil {
		return domain.Summary{}, false, fmt.Errorf("store summary: %w", err)
	}
	s.logger.Info("summary generated", "summary_id", stored.ID, "activities", stored.ActivityCount)
	return stored, true, nil
}
