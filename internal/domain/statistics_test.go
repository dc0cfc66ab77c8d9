package domain

import (
	"testing"
	"time"
)

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil, time.UTC)
	if stats.TotalActivities != 0 || stats.UniqueApplications != 0 {
		t.Fatalf("unexpected counts %#v", stats)
	}
	if stats.MostUsedApplication != nil {
		t.Fatalf("expected no most used application, got %#v", stats.MostUsedApplication)
	}
	if stats.ActivityTimeline == nil || len(stats.ActivityTimeline) != 0 {
		t.Fatalf("expected empty non-nil timeline, got %#v", stats.ActivityTimeline)
	}
}

func TestComputeStatisticsCountsAndTies(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	activities := []Activity{
		{ProcessName: "code", WindowTitle: "a.go", Timestamp: base},
		{ProcessName: "firefox", WindowTitle: "docs", Timestamp: base.Add(time.Minute)},
		{ProcessName: "code", WindowTitle: "b.go", Timestamp: base.Add(2 * time.Minute)},
		{ProcessName: "firefox", WindowTitle: "mail", Timestamp: base.Add(3 * time.Minute)},
		{ProcessName: "slack", WindowTitle: "general", Timestamp: base.Add(4 * time.Minute)},
	}
	stats := ComputeStatistics(activities, time.UTC)
	if stats.TotalActivities != 5 {
		t.Fatalf("TotalActivities = %d, want 5", stats.TotalActivities)
	}
	if stats.UniqueApplications != 3 {
		t.Fatalf("UniqueApplications = %d, want 3", stats.UniqueApplications)
	}
	if stats.MostUsedApplication == nil || stats.MostUsedApplication.Name != "code" || stats.MostUsedApplication.Count != 2 {
		t.Fatalf("expected first-encountered tie winner code x2, got %#v", stats.MostUsedApplication)
	}
	if len(stats.ActivityTimeline) != 5 || stats.ActivityTimeline[1].Time != "09:01:00" {
		t.Fatalf("unexpected timeline %#v", stats.ActivityTimeline)
	}
	if activities[0].WindowTitle != "a.go" {
		t.Fatal("input activities were mutated")
	}
}
