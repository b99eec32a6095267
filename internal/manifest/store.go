package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry records one completed stage for one channel.
type Entry struct {
	RunID          string
	Channel        string
	Stage          string
	ArtifactPath   string
	ArtifactSHA256 string
	ArtifactSize   int64
	CompletedAt    time.Time
}

// Store persists stage completions backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the manifest database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the location of the manifest database.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record marks a stage complete for a channel, replacing any earlier record
// of the same stage.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	ctx = ensureContext(ctx)
	if entry.Channel == "" || entry.Stage == "" {
		return errors.New("channel and stage required")
	}
	completedAt := entry.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO stage_completions
				(run_id, channel, stage, artifact_path, artifact_sha256, artifact_size, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (channel, stage) DO UPDATE SET
				run_id = excluded.run_id,
				artifact_path = excluded.artifact_path,
				artifact_sha256 = excluded.artifact_sha256,
				artifact_size = excluded.artifact_size,
				completed_at = excluded.completed_at`,
			entry.RunID, entry.Channel, entry.Stage,
			entry.ArtifactPath, entry.ArtifactSHA256, entry.ArtifactSize,
			completedAt.Format(time.RFC3339Nano),
		)
		return err
	})
}

// Lookup returns the completion record for (channel, stage), or nil when the
// stage has never completed.
func (s *Store) Lookup(ctx context.Context, channel, stage string) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, channel, stage, artifact_path, artifact_sha256, artifact_size, completed_at
		FROM stage_completions
		WHERE channel = ? AND stage = ?`,
		channel, stage,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s/%s: %w", channel, stage, err)
	}
	return entry, nil
}

// List returns all completion records ordered by channel then completion time.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, channel, stage, artifact_path, artifact_sha256, artifact_size, completed_at
		FROM stage_completions
		ORDER BY channel, completed_at`)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completions: %w", err)
	}
	return entries, nil
}

// Forget removes all completion records for a channel. Used when a channel's
// artifacts are being rebuilt from scratch.
func (s *Store) Forget(ctx context.Context, channel string) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			"DELETE FROM stage_completions WHERE channel = ?", channel)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		entry       Entry
		completedAt string
	)
	if err := row.Scan(
		&entry.RunID, &entry.Channel, &entry.Stage,
		&entry.ArtifactPath, &entry.ArtifactSHA256, &entry.ArtifactSize,
		&completedAt,
	); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, completedAt)
	if err != nil {
		return nil, fmt.Errorf("parse completed_at %q: %w", completedAt, err)
	}
	entry.CompletedAt = ts
	return &entry, nil
}
