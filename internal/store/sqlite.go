package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
		`CREATE TABLE IF NOT EXISTS jobs (
			job_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			company TEXT NOT NULL,
			location TEXT,
			url TEXT,
			description TEXT,
			salary_floor INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS applications (
			application_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			job_id TEXT NOT NULL,
			status TEXT NOT NULL,
			receipt TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_applications_run ON applications(run_id)`,
		`CREATE TABLE IF NOT EXISTS negotiations (
			negotiation_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			status TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, created_at, metadata) VALUES (?, ?, ?, ?)`,
		session.SessionID, session.UserID, session.CreatedAt, nullableJSON(session.Metadata))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns a session, or nil if absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, user_id, created_at, metadata FROM sessions WHERE session_id = ?`, sessionID)

	var session domain.Session
	var metadata sql.NullString
	if err := row.Scan(&session.SessionID, &session.UserID, &session.CreatedAt, &metadata); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if metadata.Valid {
		session.Metadata = json.RawMessage(metadata.String)
	}
	return &session, nil
}

// GetOrCreateSession returns the session, creating it if needed.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}
	session = &domain.Session{SessionID: sessionID, UserID: userID, CreatedAt: time.Now()}
	if err := s.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreateRun creates a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, query, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.SessionID, run.Query, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun returns a run, or nil if absent.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, session_id, query, status, started_at, ended_at, error FROM runs WHERE run_id = ?`, runID)

	var run domain.Run
	var endedAt sql.NullTime
	var errData sql.NullString
	if err := row.Scan(&run.RunID, &run.SessionID, &run.Query, &run.Status, &run.StartedAt, &endedAt, &errData); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if errData.Valid {
		run.Error = json.RawMessage(errData.String)
	}
	return &run, nil
}

// ListRuns returns recent runs, optionally filtered by session.
func (s *SQLiteStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT run_id, session_id, query, status, started_at, ended_at, error FROM runs`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		var endedAt sql.NullTime
		var errData sql.NullString
		if err := rows.Scan(&run.RunID, &run.SessionID, &run.Query, &run.Status, &run.StartedAt, &endedAt, &errData); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		if errData.Valid {
			run.Error = json.RawMessage(errData.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateRunStatus updates a run's status.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ? WHERE run_id = ?`, status, runID)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

// UpdateRunCompleted marks a run terminal.
func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ?, error = ? WHERE run_id = ?`,
		status, time.Now(), nullableJSON(errData), runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// AppendEvent journals one client-visible event for later paging.
func (s *SQLiteStore) AppendEvent(ctx context.Context, runID string, ev domain.AgentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		"evt_"+uuid.New().String()[:8], runID, ev.Ts, ev.Type, string(payload))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// GetEvents returns a run's journaled events after the (afterTs, afterSeq)
// cursor. The cursor is composite so events sharing a millisecond are never
// skipped: each returned event carries its seq for the next page.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterTs, afterSeq int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT rowid, event_id, run_id, ts, type, payload FROM events
		 WHERE run_id = ? AND (ts > ? OR (ts = ? AND rowid > ?))
		 ORDER BY ts ASC, rowid ASC LIMIT ?`,
		runID, afterTs, afterTs, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var payload sql.NullString
		if err := rows.Scan(&ev.Seq, &ev.EventID, &ev.RunID, &ev.Ts, &ev.Type, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if payload.Valid {
			ev.Payload = json.RawMessage(payload.String)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpsertJob inserts or refreshes a discovered job posting.
func (s *SQLiteStore) UpsertJob(ctx context.Context, job *domain.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, title, company, location, url, description, salary_floor)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET
		   title = excluded.title, company = excluded.company, location = excluded.location,
		   url = excluded.url, description = excluded.description, salary_floor = excluded.salary_floor`,
		job.JobID, job.Title, job.Company, job.Location, job.URL, job.Description, job.SalaryFloor)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

// GetJob returns a job, or nil if absent.
func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, title, company, location, url, description, salary_floor FROM jobs WHERE job_id = ?`, jobID)

	var job domain.Job
	if err := row.Scan(&job.JobID, &job.Title, &job.Company, &job.Location, &job.URL, &job.Description, &job.SalaryFloor); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListJobs returns stored jobs.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, title, company, location, url, description, salary_floor FROM jobs LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(&job.JobID, &job.Title, &job.Company, &job.Location, &job.URL, &job.Description, &job.SalaryFloor); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// CreateApplication records a submitted application.
func (s *SQLiteStore) CreateApplication(ctx context.Context, app *domain.Application) error {
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (application_id, run_id, job_id, status, receipt, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		app.ApplicationID, app.RunID, app.JobID, app.Status, app.Receipt, app.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// ListApplications returns the applications submitted by a run.
func (s *SQLiteStore) ListApplications(ctx context.Context, runID string) ([]domain.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT application_id, run_id, job_id, status, receipt, created_at FROM applications WHERE run_id = ? ORDER BY created_at ASC`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		var app domain.Application
		if err := rows.Scan(&app.ApplicationID, &app.RunID, &app.JobID, &app.Status, &app.Receipt, &app.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// CreateNegotiation stores a new negotiation's full state as JSON.
func (s *SQLiteStore) CreateNegotiation(ctx context.Context, n *domain.Negotiation) error {
	state, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal negotiation: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO negotiations (negotiation_id, session_id, status, state, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.NegotiationID, n.SessionID, n.Status, string(state), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create negotiation: %w", err)
	}
	return nil
}

// GetNegotiation returns a negotiation, or nil if absent.
func (s *SQLiteStore) GetNegotiation(ctx context.Context, negotiationID string) (*domain.Negotiation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT state FROM negotiations WHERE negotiation_id = ?`, negotiationID)

	var state string
	if err := row.Scan(&state); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get negotiation: %w", err)
	}
	var n domain.Negotiation
	if err := json.Unmarshal([]byte(state), &n); err != nil {
		return nil, fmt.Errorf("failed to parse negotiation state: %w", err)
	}
	return &n, nil
}

// UpdateNegotiation overwrites a negotiation's state.
func (s *SQLiteStore) UpdateNegotiation(ctx context.Context, n *domain.Negotiation) error {
	state, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal negotiation: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE negotiations SET status = ?, state = ?, updated_at = ? WHERE negotiation_id = ?`,
		n.Status, string(state), n.UpdatedAt, n.NegotiationID)
	if err != nil {
		return fmt.Errorf("failed to update negotiation: %w", err)
	}
	return nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}
