package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hylla/worklog/internal/adapters/storage/summarydoc"
	"github.com/hylla/worklog/internal/app"
	"github.com/hylla/worklog/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// tsLayout is fixed-width so stored UTC timestamps sort and compare as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Repository is an app.Repository backed by a SQLite database.
type Repository struct {
	db   *sql.DB
	path string
	docs *summarydoc.Writer
}

var _ app.Repository = (*Repository)(nil)

// Open opens the database at path. Summary documents are written next to it.
func Open(path string, loc *time.Location) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &app.StoreIOError{Op: "create sqlite dir", Path: dir, Err: err}
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db, path, filepath.Join(dir, summarydoc.DirName), loc)
}

// OpenInMemory opens a private in-memory database; summary documents go to docsDir.
func OpenInMemory(docsDir string, loc *time.Location) (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	return newRepository(db, ":memory:", docsDir, loc)
}

func newRepository(db *sql.DB, path, docsDir string, loc *time.Location) (*Repository, error) {
	// One connection serializes writers and keeps an in-memory database alive.
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db, path: path, docs: summarydoc.NewWriter(docsDir, loc)}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database path.
func (r *Repository) Path() string {
	return r.path
}

// migrate creates the schema idempotently.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			recorded_at TEXT NOT NULL,
			process_name TEXT NOT NULL DEFAULT '',
			window_title TEXT NOT NULL DEFAULT '',
			platform TEXT NOT NULL,
			screenshot_json TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS summaries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			generated_at TEXT NOT NULL,
			summary_text TEXT NOT NULL,
			activity_count INTEGER NOT NULL,
			activities_json TEXT NOT NULL DEFAULT '[]',
			document_path TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_recorded_at ON activities(recorded_at);`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_generated_at ON summaries(generated_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// AppendActivity inserts one activity.
func (r *Repository) AppendActivity(ctx context.Context, activity domain.Activity) error {
	shotJSON, err := encodeScreenshot(activity.Screenshot)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO activities(id, recorded_at, process_name, window_title, platform, screenshot_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, activity.ID, ts(activity.Timestamp), activity.ProcessName, activity.WindowTitle, string(activity.Platform), shotJSON)
	if err != nil {
		return r.ioErr("insert activity", err)
	}
	return nil
}

// ListActivities returns activities inside tr in insertion order.
func (r *Repository) ListActivities(ctx context.Context, tr domain.TimeRange) ([]domain.Activity, error) {
	where, args := rangeClause("recorded_at", tr)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, recorded_at, process_name, window_title, platform, screenshot_json
		FROM activities`+where+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, r.ioErr("query activities", err)
	}
	defer rows.Close()

	out := []domain.Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, r.ioErr("scan activity", err)
		}
		out = append(out, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, r.ioErr("query activities", err)
	}
	return out, nil
}

// DeleteActivity removes one activity. A missing id reports false.
func (r *Repository) DeleteActivity(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return false, r.ioErr("delete activity", err)
	}
	return affectedAny(res)
}

// AttachScreenshot sets the screenshot on one activity. A missing id reports false.
func (r *Repository) AttachScreenshot(ctx context.Context, id string, shot domain.Screenshot) (bool, error) {
	shotJSON, err := encodeScreenshot(&shot)
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE activities SET screenshot_json = ? WHERE id = ?`, shotJSON, id)
	if err != nil {
		return false, r.ioErr("attach screenshot", err)
	}
	return affectedAny(res)
}

// ClearActivities removes every activity.
func (r *Repository) ClearActivities(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM activities`); err != nil {
		return r.ioErr("clear activities", err)
	}
	return nil
}

// AppendSummary renders the summary document and inserts the summary with its document path.
func (r *Repository) AppendSummary(ctx context.Context, summary domain.Summary) (domain.Summary, error) {
	activitiesJSON, err := json.Marshal(summary.Activities)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("encode summary activities: %w", err)
	}
	path, err := r.docs.Write(summary)
	if err != nil {
		return domain.Summary{}, err
	}
	summary = summary.Clone()
	summary.DocumentPath = path
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO summaries(id, generated_at, summary_text, activity_count, activities_json, document_path)
		VALUES (?, ?, ?, ?, ?, ?)
	`, summary.ID, ts(summary.Timestamp), summary.SummaryText, summary.ActivityCount, string(activitiesJSON), summary.DocumentPath)
	if err != nil {
		return domain.Summary{}, r.ioErr("insert summary", err)
	}
	return summary, nil
}

// ListSummaries returns summaries inside tr in insertion order.
func (r *Repository) ListSummaries(ctx context.Context, tr domain.TimeRange) ([]domain.Summary, error) {
	where, args := rangeClause("generated_at", tr)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, generated_at, summary_text, activity_count, activities_json, document_path
		FROM summaries`+where+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, r.ioErr("query summaries", err)
	}
	defer rows.Close()

	out := []domain.Summary{}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, r.ioErr("scan summary", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, r.ioErr("query summaries", err)
	}
	return out, nil
}

// DeleteSummary removes one summary. A missing id reports false.
func (r *Repository) DeleteSummary(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM summaries WHERE id = ?`, id)
	if err != nil {
		return false, r.ioErr("delete summary", err)
	}
	return affectedAny(res)
}

// Cleanup removes activities and summaries stamped before cutoff in one transaction.
func (r *Repository) Cleanup(ctx context.Context, cutoff time.Time) (domain.CleanupResult, error) {
	result := domain.CleanupResult{Cutoff: cutoff}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, r.ioErr("begin cleanup", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM activities WHERE recorded_at < ?`, ts(cutoff))
	if err != nil {
		return result, r.ioErr("cleanup activities", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return result, r.ioErr("cleanup activities", err)
	}
	result.ActivitiesRemoved = int(removed)

	res, err = tx.ExecContext(ctx, `DELETE FROM summaries WHERE generated_at < ?`, ts(cutoff))
	if err != nil {
		return result, r.ioErr("cleanup summaries", err)
	}
	removed, err = res.RowsAffected()
	if err != nil {
		return result, r.ioErr("cleanup summaries", err)
	}
	result.SummariesRemoved = int(removed)

	if err := tx.Commit(); err != nil {
		return result, r.ioErr("commit cleanup", err)
	}
	return result, nil
}

// scanner represents scanner data used by this package.
type scanner interface {
	Scan(dest ...any) error
}

func scanActivity(s scanner) (domain.Activity, error) {
	var (
		activity    domain.Activity
		recordedRaw string
		platformRaw string
		shotRaw     sql.NullString
	)
	if err := s.Scan(&activity.ID, &recordedRaw, &activity.ProcessName, &activity.WindowTitle, &platformRaw, &shotRaw); err != nil {
		return domain.Activity{}, err
	}
	activity.Timestamp = parseTS(recordedRaw)
	activity.Platform = domain.Platform(platformRaw)
	if shotRaw.Valid && strings.TrimSpace(shotRaw.String) != "" {
		var shot domain.Screenshot
		if err := json.Unmarshal([]byte(shotRaw.String), &shot); err != nil {
			return domain.Activity{}, fmt.Errorf("decode screenshot for %s: %w", activity.ID, err)
		}
		activity.Screenshot = &shot
	}
	return activity, nil
}

func scanSummary(s scanner) (domain.Summary, error) {
	var (
		summary        domain.Summary
		generatedRaw   string
		activitiesJSON string
	)
	if err := s.Scan(&summary.ID, &generatedRaw, &summary.SummaryText, &summary.ActivityCount, &activitiesJSON, &summary.DocumentPath); err != nil {
		return domain.Summary{}, err
	}
	summary.Timestamp = parseTS(generatedRaw)
	summary.Activities = []domain.ActivitySnapshot{}
	if err := json.Unmarshal([]byte(activitiesJSON), &summary.Activities); err != nil {
		return domain.Summary{}, fmt.Errorf("decode summary activities for %s: %w", summary.ID, err)
	}
	return summary, nil
}

func encodeScreenshot(shot *domain.Screenshot) (any, error) {
	if shot == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(shot)
	if err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return string(encoded), nil
}

// rangeClause builds a WHERE clause for the half-open range on column.
func rangeClause(column string, tr domain.TimeRange) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !tr.Start.IsZero() {
		conds = append(conds, column+" >= ?")
		args = append(args, ts(tr.Start))
	}
	if !tr.End.IsZero() {
		conds = append(conds, column+" < ?")
		args = append(args, ts(tr.End))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func affectedAny(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *Repository) ioErr(op string, err error) error {
	return &app.StoreIOError{Op: op, Path: r.path, Err: err}
}

// ts formats t for storage.
func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// parseTS parses a stored timestamp.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
