package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// RunStore persists run records. A subset of the full store interface so
// tests can pass a lightweight fake.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error
}

// Canceller force-resolves a run's pending human-input request on stop.
type Canceller interface {
	CancelRun(runID string)
}

type managedRun struct {
	state  *State
	cancel context.CancelFunc
	paused atomic.Bool
	done   chan struct{}
}

// Manager owns the lifecycle of live runs: one goroutine per run, fully
// independent concurrent tasks.
type Manager struct {
	mu    sync.Mutex
	runs  map[string]*managedRun
	exec  *Executor
	store RunStore
	hitl  Canceller

	defaultThreshold int
	defaultMaxJobs   int
}

// NewManager wires the run manager. hitl may be nil.
func NewManager(exec *Executor, store RunStore, hitl Canceller, defaultThreshold, defaultMaxJobs int) *Manager {
	return &Manager{
		runs:             make(map[string]*managedRun),
		exec:             exec,
		store:            store,
		hitl:             hitl,
		defaultThreshold: defaultThreshold,
		defaultMaxJobs:   defaultMaxJobs,
	}
}

// Start begins a fresh run and returns its id.
func (m *Manager) Start(ctx context.Context, req domain.StartRunRequest) (string, error) {
	if req.SessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}
	runID := "run_" + uuid.New().String()[:8]
	return m.launch(ctx, runID, req)
}

// Resume restarts a run from its checkpoint. The restored state carries its
// own configuration and session binding.
func (m *Manager) Resume(ctx context.Context, runID string) error {
	m.mu.Lock()
	_, live := m.runs[runID]
	m.mu.Unlock()
	if live {
		return fmt.Errorf("run %s is already running", runID)
	}
	st, err := m.exec.Prepare(runID, domain.StartRunRequest{}, m.defaultThreshold, m.defaultMaxJobs)
	if err != nil {
		return fmt.Errorf("no resumable state for run %s: %w", runID, err)
	}
	if !st.Resumed {
		return fmt.Errorf("run %s has no checkpoint", runID)
	}
	if m.store != nil {
		if err := m.store.UpdateRunStatus(ctx, runID, domain.RunStatusRunning); err != nil {
			log.Printf("WARN: failed to mark run %s running: %v", runID, err)
		}
	}
	m.spawn(runID, st)
	return nil
}

func (m *Manager) launch(ctx context.Context, runID string, req domain.StartRunRequest) (string, error) {
	st, err := m.exec.Prepare(runID, req, m.defaultThreshold, m.defaultMaxJobs)
	if err != nil {
		return "", err
	}

	if m.store != nil {
		run := &domain.Run{
			RunID:     runID,
			SessionID: st.SessionID,
			Query:     st.Query,
			Status:    domain.RunStatusRunning,
			StartedAt: time.Now(),
		}
		if err := m.store.CreateRun(ctx, run); err != nil {
			return "", fmt.Errorf("failed to create run: %w", err)
		}
	}

	m.spawn(runID, st)
	return runID, nil
}

func (m *Manager) spawn(runID string, st *State) {
	runCtx, cancel := context.WithCancel(context.Background())
	mr := &managedRun{state: st, cancel: cancel, done: make(chan struct{})}

	m.mu.Lock()
	m.runs[runID] = mr
	m.mu.Unlock()

	go func() {
		defer close(mr.done)
		defer cancel()

		err := m.exec.Run(runCtx, st, &mr.paused)
		m.finish(runID, st, err)

		m.mu.Lock()
		delete(m.runs, runID)
		m.mu.Unlock()
	}()
}

func (m *Manager) finish(runID string, st *State, runErr error) {
	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		if err := m.store.UpdateRunCompleted(ctx, runID, domain.RunStatusCancelled, nil); err != nil {
			log.Printf("ERROR: failed to mark run %s cancelled: %v", runID, err)
		}
	case runErr != nil || st.Error != "":
		msg := st.Error
		if msg == "" {
			msg = runErr.Error()
		}
		errData, _ := json.Marshal(domain.RunFailedPayload{Code: "run_failed", Message: msg})
		if err := m.store.UpdateRunCompleted(ctx, runID, domain.RunStatusFailed, errData); err != nil {
			log.Printf("ERROR: failed to mark run %s failed: %v", runID, err)
		}
	case !st.Completed:
		// Exited without reaching the end: paused (or a step cleared the
		// running flag) with the checkpoint still in place.
		if err := m.store.UpdateRunStatus(ctx, runID, domain.RunStatusPaused); err != nil {
			log.Printf("ERROR: failed to mark run %s paused: %v", runID, err)
		}
	default:
		if err := m.store.UpdateRunCompleted(ctx, runID, domain.RunStatusDone, nil); err != nil {
			log.Printf("ERROR: failed to mark run %s done: %v", runID, err)
		}
	}
}

// Stop cancels a run cooperatively: the current step is not preempted, only
// never re-invoked, and any pending human-input request is force-resolved.
func (m *Manager) Stop(runID string) error {
	m.mu.Lock()
	mr, ok := m.runs[runID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not running", runID)
	}
	mr.cancel()
	if m.hitl != nil {
		m.hitl.CancelRun(runID)
	}
	return nil
}

// Pause flips the running flag only; it does not checkpoint early. The loop
// observes the flag before the next step and exits leaving the last
// checkpoint in place.
func (m *Manager) Pause(runID string) error {
	m.mu.Lock()
	mr, ok := m.runs[runID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not running", runID)
	}
	mr.paused.Store(true)
	return nil
}

// Live reports whether a run currently has a goroutine.
func (m *Manager) Live(runID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.runs[runID]
	return ok
}

// Wait blocks until the run's goroutine exits. Test helper.
func (m *Manager) Wait(runID string) {
	m.mu.Lock()
	mr, ok := m.runs[runID]
	m.mu.Unlock()
	if ok {
		<-mr.done
	}
}
