package domain

import "time"

// TimeOfDayLayout renders local clock times in summaries, timelines, and prompts.
const TimeOfDayLayout = "15:04:05"

// ApplicationUsage pairs an application with the number of recorded focus changes into it.
type ApplicationUsage struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TimelineEntry is one row of the activity timeline.
type TimelineEntry struct {
	Time        string `json:"time"`
	Application string `json:"application"`
	Window      string `json:"window"`
}

// Statistics aggregates one day of activity.
type Statistics struct {
	TotalActivities     int               `json:"totalActivities"`
	UniqueApplications  int               `json:"uniqueApplications"`
	MostUsedApplication *ApplicationUsage `json:"mostUsedApplication"`
	ActivityTimeline    []TimelineEntry   `json:"activityTimeline"`
}

// ComputeStatistics derives statistics from activities without mutating them. Ties for the most
// used application go to the one encountered first.
func ComputeStatistics(activities []Activity, loc *time.Location) Statistics {
	if loc == nil {
		loc = time.Local
	}
	stats := Statistics{
		TotalActivities:  len(activities),
		ActivityTimeline: make([]TimelineEntry, 0, len(activities)),
	}
	if len(activities) == 0 {
		return stats
	}

	counts := map[string]int{}
	order := make([]string, 0)
	for _, activity := range activities {
		if _, ok := counts[activity.ProcessName]; !ok {
			order = append(order, activity.ProcessName)
		}
		counts[activity.ProcessName]++
		stats.ActivityTimeline = append(stats.ActivityTimeline, TimelineEntry{
			Time:        activity.Timestamp.In(loc).Format(TimeOfDayLayout),
			Application: activity.ProcessName,
			Window:      activity.WindowTitle,
		})
	}
	stats.UniqueApplications = len(order)

	best := ApplicationUsage{Name: order[0], Count: counts[order[0]]}
	for _, name := range order[1:] {
		if counts[name] > best.Count {
			best = ApplicationUsage{Name: name, Count: counts[name]}
		}
	}
	stats.MostUsedApplication = &best
	return stats
}
