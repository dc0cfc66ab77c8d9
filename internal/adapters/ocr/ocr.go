// Package ocr holds the text-recognition adapters: a placeholder recognizer
// and a file store for recognition results.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
)

const (
	// DirName is the sub-directory of the data dir that holds recognition results.
	DirName = "ocr"

	isoLayout = "2006-01-02T15:04:05.000Z"
)

// ErrUnavailable is reported by the placeholder recognizer.
var ErrUnavailable = errors.New("text recognition is not configured")

var fileNameReplacer = strings.NewReplacer(":", "-", ".", "-")

// Unavailable is a TextRecognitionProvider that never recognizes text.
type Unavailable struct {
	Now func() time.Time
}

var _ app.TextRecognitionProvider = Unavailable{}

// Recognize returns an unsuccessful result for every screenshot.
func (u Unavailable) Recognize(_ context.Context, shot domain.Screenshot) (domain.Recognition, error) {
	now := time.Now
	if u.Now != nil {
		now = u.Now
	}
	return domain.Recognition{
		Success:   false,
		Error:     ErrUnavailable.Error(),
		Timestamp: domain.NormalizeTimestamp(now()),
	}, nil
}

// record is the on-disk shape of one recognition file.
type record struct {
	ActivityID string `json:"activityId"`
	domain.Recognition
}

// Store persists recognition results as one JSON file per save.
type Store struct {
	mu  sync.Mutex
	dir string
}

var _ app.RecognitionStore = (*Store)(nil)

// NewStore constructs a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory results are written to.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the result name for activityID recognized at ts.
func FileName(activityID string, ts time.Time) string {
	return "ocr_" + activityID + "_" + fileNameReplacer.Replace(ts.UTC().Format(isoLayout)) + ".json"
}

// SaveRecognition writes result for activityID.
func (s *Store) SaveRecognition(_ context.Context, activityID string, result domain.Recognition) error {
	activityID = strings.TrimSpace(activityID)
	if activityID == "" || strings.ContainsAny(activityID, `/\`) {
		return domain.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &app.StoreIOError{Op: "create ocr dir", Path: s.dir, Err: err}
	}
	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	payload, err := json.MarshalIndent(record{ActivityID: activityID, Recognition: result}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode recognition: %w", err)
	}
	path := filepath.Join(s.dir, FileName(activityID, ts))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return &app.StoreIOError{Op: "write recognition", Path: path, Err: err}
	}
	return nil
}

// Get returns the earliest stored result for activityID.
func (s *Store) Get(_ context.Context, activityID string) (domain.Recognition, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.list()
	if err != nil {
		return domain.Recognition{}, false, err
	}
	prefix := "ocr_" + activityID + "_"
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		path := filepath.Join(s.dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return domain.Recognition{}, false, &app.StoreIOError{Op: "read recognition", Path: path, Err: err}
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return domain.Recognition{}, false, &app.StoreIOError{Op: "decode recognition", Path: path, Err: err}
		}
		return rec.Recognition, true, nil
	}
	return domain.Recognition{}, false, nil
}

// CleanupRecognitions removes result files last modified before cutoff.
func (s *Store) CleanupRecognitions(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.list()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, &app.StoreIOError{Op: "remove recognition", Path: path, Err: err}
		}
		removed++
	}
	return removed, nil
}

// list returns recognition file names in lexical order. A missing dir is empty.
func (s *Store) list() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &app.StoreIOError{Op: "list recognitions", Path: s.dir, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "ocr_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
