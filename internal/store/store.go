// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// Store defines the interface for business-record persistence. Workflow
// checkpoints live elsewhere (the checkpoint package); this store holds the
// records runs produce and the journal used for event paging over HTTP.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetOrCreateSession(ctx context.Context, sessionID, userID string) (*domain.Session, error)

	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, sessionID string, limit int) ([]domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error

	// Event journal
	AppendEvent(ctx context.Context, runID string, ev domain.AgentEvent) error
	GetEvents(ctx context.Context, runID string, afterTs, afterSeq int64, limit int) ([]domain.Event, error)

	// Job operations
	UpsertJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, limit int) ([]domain.Job, error)

	// Application operations
	CreateApplication(ctx context.Context, app *domain.Application) error
	ListApplications(ctx context.Context, runID string) ([]domain.Application, error)

	// Negotiation operations
	CreateNegotiation(ctx context.Context, n *domain.Negotiation) error
	GetNegotiation(ctx context.Context, negotiationID string) (*domain.Negotiation, error)
	UpdateNegotiation(ctx context.Context, n *domain.Negotiation) error

	Close() error
}
