package domain

import "time"

// Recognition is the result of one text-recognition request against a screenshot.
type Recognition struct {
	Text      string    `json:"text"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CleanupResult reports how many records a retention pass removed.
type CleanupResult struct {
	Cutoff              time.Time `json:"cutoff"`
	ActivitiesRemoved   int       `json:"activitiesRemoved"`
	SummariesRemoved    int       `json:"summariesRemoved"`
	RecognitionsRemoved int       `json:"recognitionsRemoved"`
}
