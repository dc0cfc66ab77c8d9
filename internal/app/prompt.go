package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/domain"
)

// SummarySystemPrompt is the fixed instruction sent with every summary request.
const SummarySystemPrompt = "You are a work-log assistant. From the user's window activity records, infer what they were " +
	"actually working on and write a structured Markdown summary. Do not just list application names; use the window " +
	"titles to work out the tasks. Keep the output concise and practical, like notes written for yourself."

// ActivityGroup is one application and the distinct window titles seen in it, in first-seen order.
type ActivityGroup struct {
	ProcessName  string
	WindowTitles []string
}

// GroupActivities groups activities by process name. Group order and title order follow first
// appearance and titles are deduplicated within a group.
func GroupActivities(activities []domain.Activity) []ActivityGroup {
	groups := make([]ActivityGroup, 0)
	index := map[string]int{}
	seen := map[string]map[string]struct{}{}
	for _, activity := range activities {
		pos, ok := index[activity.ProcessName]
		if !ok {
			pos = len(groups)
			index[activity.ProcessName] = pos
			seen[activity.ProcessName] = map[string]struct{}{}
			groups = append(groups, ActivityGroup{ProcessName: activity.ProcessName})
		}
		if _, dup := seen[activity.ProcessName][activity.WindowTitle]; dup {
			continue
		}
		seen[activity.ProcessName][activity.WindowTitle] = struct{}{}
		groups[pos].WindowTitles = append(groups[pos].WindowTitles, activity.WindowTitle)
	}
	return groups
}

// PromptOptions controls how activity text is rendered into the user prompt.
type PromptOptions struct {
	Compress     bool
	CustomPrompt string
	Location     *time.Location
}

// BuildSummaryPrompt renders the user prompt for activities, which must be in chronological order.
func BuildSummaryPrompt(activities []domain.Activity, opts PromptOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	var body strings.Builder
	if opts.Compress {
		for _, group := range GroupActivities(activities) {
			fmt.Fprintf(&body, "Application: %s\n", group.ProcessName)
			fmt.Fprintf(&body, "Windows: %s\n\n", strings.Join(group.WindowTitles, " | "))
		}
	} else {
		for _, activity := range activities {
			fmt.Fprintf(&body, "[%s] %s - %s\n", activity.Timestamp.In(loc).Format(domain.TimeOfDayLayout), activity.ProcessName, activity.WindowTitle)
		}
	}
	activityText := body.String()

	if custom := opts.CustomPrompt; strings.TrimSpace(custom) != "" {
		return custom + "\n\n" + activityText
	}

	timeRange := ""
	if len(activities) > 0 {
		first := activities[0].Timestamp.In(loc).Format(domain.TimeOfDayLayout)
		last := activities[len(activities)-1].Timestamp.In(loc).Format(domain.TimeOfDayLayout)
		timeRange = first + " ~ " + last
	}

	return fmt.Sprintf(`Using the computer activity records below for the period %s, write a structured work-log summary.

Requirements:
1. Start with "## Overview" and sum up the main direction of the work in one sentence
2. Under "## Main Work" list what was concretely done (infer it from the window titles, do not just list application names)
3. Under "## Time Allocation" briefly estimate the share of time spent on each kind of work
4. Keep it concise with no filler, like notes written for yourself

Activity records:
%s`, timeRange, activityText)
}
