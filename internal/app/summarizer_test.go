package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hylla/worklog/internal/domain"
)

func seedActivities(t *testing.T, repo *memoryRepo, now time.Time, offsets ...time.Duration) {
	t.Helper()
	for i, offset := range offsets {
		activity, err := domain.NewActivity(
			"seed-"+string(rune('a'+i)),
			domain.WindowReading{ProcessName: "code", WindowTitle: "file" + string(rune('a'+i)), Platform: domain.PlatformLinux},
			now.Add(-offset),
		)
		require.NoError(t, err)
		require.NoError(t, repo.AppendActivity(context.Background(), activity))
	}
}

func newTestSummarizer(repo Repository, client TextGenerationClient, clock Clock) *Summarizer {
	return NewSummarizer(repo, client, sequentialIDs("sum"), clock, SummarizerConfig{
		LookbackMinutes:    60,
		Model:              "deepseek-chat",
		MaxTokens:          500,
		Temperature:        0.7,
		CompressActivities: true,
		Location:           time.UTC,
	}, nil)
}

func TestGenerateSummaryEmptyWindowSkipsClient(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	seedActivities(t, repo, now, 2*time.Hour)
	client := &fakeCompletionClient{text: "should not be used"}

	summary, ok, err := newTestSummarizer(repo, client, func() time.Time { return now }).GenerateSummary(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, summary.ID)
	require.Zero(t, client.calls())
	require.Zero(t, repo.summaryCount())
}

func TestGenerateSummaryRemoteErrorPersistsNothing(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	seedActivities(t, repo, now, 10*time.Minute)
	client := &fakeCompletionClient{err: &RemoteServiceError{StatusCode: 401, Message: "invalid api key"}}

	_, ok, err := newTestSummarizer(repo, client, func() time.Time { return now }).GenerateSummary(context.Background())
	require.Error(t, err)
	require.False(t, ok)
	var remote *RemoteServiceError
	require.True(t, errors.As(err, &remote))
	require.Equal(t, 401, remote.StatusCode)
	require.Zero(t, repo.summaryCount())
}

func TestGenerateSummaryEmptyCompletionIsAbsent(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	seedActivities(t, repo, now, 10*time.Minute)
	client := &fakeCompletionClient{text: "  \n"}

	_, ok, err := newTestSummarizer(repo, client, func() time.Time { return now }).GenerateSummary(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, client.calls())
	require.Zero(t, repo.summaryCount())
}

func TestGenerateSummaryPersistsLookbackSnapshot(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	seedActivities(t, repo, now, 90*time.Minute, 40*time.Minute, 5*time.Minute)
	client := &fakeCompletionClient{text: "## Overview\nRefactoring."}

	summary, ok, err := newTestSummarizer(repo, client, func() time.Time { return now }).GenerateSummary(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sum-1", summary.ID)
	require.Equal(t, 2, summary.ActivityCount)
	require.Len(t, summary.Activities, summary.ActivityCount)
	require.Equal(t, "fileb", summary.Activities[0].WindowTitle)
	require.NotEmpty(t, summary.DocumentPath)
	require.Equal(t, 1, repo.summaryCount())

	require.Len(t, client.requests, 1)
	req := client.requests[0]
	require.Equal(t, SummarySystemPrompt, req.SystemPrompt)
	require.Equal(t, "deepseek-chat", req.Model)
	require.Equal(t, 500, req.MaxTokens)
	require.Contains(t, req.UserPrompt, "Windows: fileb | filec")
	require.NotContains(t, req.UserPrompt, "filea")
}

func TestGenerateSummaryTwiceProducesTwoRecords(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepo()
	seedActivities(t, repo, now, time.Minute)
	summarizer := newTestSummarizer(repo, &fakeCompletionClient{text: "notes"}, func() time.Time { return now })

	first, ok, err := summarizer.GenerateSummary(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	second, ok, err := summarizer.GenerateSummary(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, 2, repo.summaryCount())
}
