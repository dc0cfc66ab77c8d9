// Package jsonfile stores activities and summaries as two JSON arrays that are rewritten in full on
// every change.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hylla/worklog/internal/adapters/storage/summarydoc"
	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

// File names inside the store directory.
const (
	ActivitiesFile = "activities.json"
	SummariesFile  = "summaries.json"
)

// Store is a file-backed app.Repository. Every operation loads, mutates, and rewrites the affected
// file under one mutex; writes replace the file atomically.
type Store struct {
	dir            string
	activitiesPath string
	summariesPath  string
	docs           *summarydoc.Writer

	mu sync.Mutex
}

var _ app.Repository = (*Store)(nil)

// Open prepares dir and creates empty collections that do not exist yet.
func Open(dir string, loc *time.Location) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &app.StoreIOError{Op: "create store dir", Path: dir, Err: err}
	}
	s := &Store{
		dir:            dir,
		activitiesPath: filepath.Join(dir, ActivitiesFile),
		summariesPath:  filepath.Join(dir, SummariesFile),
		docs:           summarydoc.NewWriter(filepath.Join(dir, summarydoc.DirName), loc),
	}
	for _, path := range []string{s.activitiesPath, s.summariesPath} {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := writeJSON(path, []any{}); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// AppendActivity appends one activity.
func (s *Store) AppendActivity(_ context.Context, activity domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	activities, err := s.loadActivities()
	if err != nil {
		return err
	}
	activities = append(activities, activity.Clone())
	return writeJSON(s.activitiesPath, activities)
}

// ListActivities returns activities inside r in insertion order.
func (s *Store) ListActivities(_ context.Context, r domain.TimeRange) ([]domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activities, err := s.loadActivities()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(activities))
	for _, activity := range activities {
		if r.Contains(activity.Timestamp) {
			out = append(out, activity)
		}
	}
	return out, nil
}

// DeleteActivity removes the activity with id. A missing id reports false without an error.
func (s *Store) DeleteActivity(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activities, err := s.loadActivities()
	if err != nil {
		return false, err
	}
	for i, activity := range activities {
		if activity.ID != id {
			continue
		}
		activities = append(activities[:i], activities[i+1:]...)
		return true, writeJSON(s.activitiesPath, activities)
	}
	return false, nil
}

// AttachScreenshot sets the screenshot on the activity with id. A missing id reports false without an error.
func (s *Store) AttachScreenshot(_ context.Context, id string, shot domain.Screenshot) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	activities, err := s.loadActivities()
	if err != nil {
		return false, err
	}
	for i := range activities {
		if activities[i].ID != id {
			continue
		}
		activities[i].Screenshot = &shot
		return true, writeJSON(s.activitiesPath, activities)
	}
	return false, nil
}

// ClearActivities removes every activity.
func (s *Store) ClearActivities(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.activitiesPath, []domain.Activity{})
}

// AppendSummary renders the summary document, then appends the summary with its document path.
func (s *Store) AppendSummary(_ context.Context, summary domain.Summary) (domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries, err := s.loadSummaries()
	if err != nil {
		return domain.Summary{}, err
	}
	path, err := s.docs.Write(summary)
	if err != nil {
		return domain.Summary{}, err
	}
	summary = summary.Clone()
	summary.DocumentPath = path
	summaries = append(summaries, summary)
	if err := writeJSON(s.summariesPath, summaries); err != nil {
		return domain.Summary{}, err
	}
	return summary, nil
}

// ListSummaries returns summaries inside r in insertion order.
func (s *Store) ListSummaries(_ context.Context, r domain.TimeRange) ([]domain.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries, err := s.loadSummaries()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Summary, 0, len(summaries))
	for _, summary := range summaries {
		if r.Contains(summary.Timestamp) {
			out = append(out, summary)
		}
	}
	return out, nil
}

// DeleteSummary removes the summary with id. The rendered document is kept.
func (s *Store) DeleteSummary(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries, err := s.loadSummaries()
	if err != nil {
		return false, err
	}
	for i, summary := range summaries {
		if summary.ID != id {
			continue
		}
		summaries = append(summaries[:i], summaries[i+1:]...)
		return true, writeJSON(s.summariesPath, summaries)
	}
	return false, nil
}

// Cleanup removes activities and summaries stamped before cutoff. Screenshot and document files are left alone.
func (s *Store) Cleanup(_ context.Context, cutoff time.Time) (domain.CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := domain.CleanupResult{Cutoff: cutoff}

	activities, err := s.loadActivities()
	if err != nil {
		return result, err
	}
	keptActivities := make([]domain.Activity, 0, len(activities))
	for _, activity := range activities {
		if activity.Timestamp.Before(cutoff) {
			result.ActivitiesRemoved++
			continue
		}
		keptActivities = append(keptActivities, activity)
	}
	if result.ActivitiesRemoved > 0 {
		if err := writeJSON(s.activitiesPath, keptActivities); err != nil {
			return result, err
		}
	}

	summaries, err := s.loadSummaries()
	if err != nil {
		return result, err
	}
	keptSummaries := make([]domain.Summary, 0, len(summaries))
	for _, summary := range summaries {
		if summary.Timestamp.Before(cutoff) {
			result.SummariesRemoved++
			continue
		}
		keptSummaries = append(keptSummaries, summary)
	}
	if result.SummariesRemoved > 0 {
		if err := writeJSON(s.summariesPath, keptSummaries); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (s *Store) loadActivities() ([]domain.Activity, error) {
	var records []activityRecord
	if err := readJSON(s.activitiesPath, &records); err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(records))
	for _, record := range records {
		activity := record.Activity
		activity.ID = string(record.ID)
		out = append(out, activity)
	}
	return out, nil
}

func (s *Store) loadSummaries() ([]domain.Summary, error) {
	var records []summaryRecord
	if err := readJSON(s.summariesPath, &records); err != nil {
		return nil, err
	}
	out := make([]domain.Summary, 0, len(records))
	for _, record := range records {
		summary := record.Summary
		summary.ID = string(record.ID)
		if summary.Activities == nil {
			summary.Activities = []domain.ActivitySnapshot{}
		}
		out = append(out, summary)
	}
	return out, nil
}

func readJSON(path string, dst any) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &app.StoreIOError{Op: "read", Path: path, Err: err}
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	if err := json.Unmarshal(content, dst); err != nil {
		return &app.StoreIOError{Op: "decode", Path: path, Err: err}
	}
	return nil
}

// writeJSON replaces path with the indented encoding of v via a temp file and rename.
func writeJSON(path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &app.StoreIOError{Op: "encode", Path: path, Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return &app.StoreIOError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &app.StoreIOError{Op: "replace", Path: path, Err: err}
	}
	return nil
}
