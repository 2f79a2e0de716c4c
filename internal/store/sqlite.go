package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/me/slurmgo/pkg/model"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// NewSubmissionID returns a fresh ledger id.
func NewSubmissionID() string {
	return "sub_" + uuid.New().String()
}

func (s *SQLiteStore) RecordSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = NewSubmissionID()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "submissions", "id", sub.ID)

	jobIDs := sub.JobIDs
	if jobIDs == nil {
		jobIDs = []int64{}
	}
	jobIDsJSON, err := json.Marshal(jobIDs)
	if err != nil {
		return fmt.Errorf("marshal job ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, name, script_path, handle_kind, handle_id, job_ids, dependency, tries, host, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.ScriptPath,
		sub.Handle.Kind().String(), sub.Handle.ID(),
		string(jobIDsJSON), sub.Dependency, sub.Tries, sub.Host,
		sub.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.ID, err)
	}
	return nil
}

const submissionColumns = `id, name, script_path, handle_kind, handle_id, job_ids, dependency, tries, host, created_at`

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	s.logger.Debug("sql", "op", "select", "table", "submissions", "id", id)

	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

func (s *SQLiteStore) FindByHandle(ctx context.Context, h model.JobHandle) (*model.Submission, error) {
	s.logger.Debug("sql", "op", "select", "table", "submissions", "handle", h.String())

	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE handle_kind = ? AND handle_id = ?
		 ORDER BY created_at DESC LIMIT 1`,
		h.Kind().String(), h.ID())
	sub, err := scanSubmission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, limit int) ([]*model.Submission, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	s.logger.Debug("sql", "op", "list", "table", "submissions", "limit", limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var sub model.Submission
	var kind, jobIDsJSON, createdAt string
	var handleID int64

	err := row.Scan(&sub.ID, &sub.Name, &sub.ScriptPath, &kind, &handleID,
		&jobIDsJSON, &sub.Dependency, &sub.Tries, &sub.Host, &createdAt)
	if err != nil {
		return nil, err
	}

	switch kind {
	case model.HandleLocal.String():
		sub.Handle = model.LocalProcess(int(handleID))
	case model.HandleScheduler.String():
		sub.Handle = model.SchedulerJob(handleID)
	}
	if err := json.Unmarshal([]byte(jobIDsJSON), &sub.JobIDs); err != nil {
		return nil, fmt.Errorf("unmarshal job_ids: %w", err)
	}
	sub.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &sub, nil
}
