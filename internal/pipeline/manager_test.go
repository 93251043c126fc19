package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// fakeRunStore records run rows in memory.
type fakeRunStore struct {
	mu     sync.Mutex
	runs   map[string]*domain.Run
	status map[string]domain.RunStatus
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[string]*domain.Run), status: make(map[string]domain.RunStatus)}
}

func (f *fakeRunStore) CreateRun(ctx context.Context, run *domain.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.RunID] = run
	f.status[run.RunID] = run.Status
	return nil
}

func (f *fakeRunStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs[runID], nil
}

func (f *fakeRunStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[runID] = status
	return nil
}

func (f *fakeRunStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[runID] = status
	return nil
}

func (f *fakeRunStore) statusOf(runID string) domain.RunStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[runID]
}

type fakeCanceller struct {
	mu        sync.Mutex
	cancelled []string
}

func (f *fakeCanceller) CancelRun(runID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, runID)
}

func TestManagerStartToCompletion(t *testing.T) {
	store := newFakeRunStore()
	exec := NewExecutor(loopRegistry(nil), newTestCheckpoints(t), &recordingSink{}, nil)
	m := NewManager(exec, store, nil, 70, 10)

	runID, err := m.Start(context.Background(), domain.StartRunRequest{SessionID: "s1", Query: "go"})
	assert.NoError(t, err)
	assert.NotEmpty(t, runID)

	m.Wait(runID)
	assert.False(t, m.Live(runID))
	assert.Equal(t, domain.RunStatusDone, store.statusOf(runID))
}

func TestManagerStartValidation(t *testing.T) {
	exec := NewExecutor(loopRegistry(nil), newTestCheckpoints(t), nil, nil)
	m := NewManager(exec, newFakeRunStore(), nil, 70, 10)

	_, err := m.Start(context.Background(), domain.StartRunRequest{Query: "go"})
	assert.Error(t, err)

	_, err = m.Start(context.Background(), domain.StartRunRequest{SessionID: "s1"})
	assert.Error(t, err)
}

func TestManagerStopCancelsRun(t *testing.T) {
	entered := make(chan struct{})
	r := NewRegistry("block")
	r.Register("block", func(ctx context.Context, s *State) (StepResult, error) {
		close(entered)
		<-ctx.Done()
		return StepResult{}, ctx.Err()
	}, func(*State) string { return StepEnd })

	store := newFakeRunStore()
	hitl := &fakeCanceller{}
	exec := NewExecutor(r, newTestCheckpoints(t), &recordingSink{}, nil)
	m := NewManager(exec, store, hitl, 70, 10)

	runID, err := m.Start(context.Background(), domain.StartRunRequest{SessionID: "s1", Query: "go"})
	assert.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("run never entered its step")
	}

	assert.NoError(t, m.Stop(runID))
	m.Wait(runID)

	assert.Equal(t, domain.RunStatusCancelled, store.statusOf(runID))
	assert.Equal(t, []string{runID}, hitl.cancelled)
}

func TestManagerPauseBeforeQueueSeededMarksPaused(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	r := NewRegistry("seed")
	r.Register("seed", func(ctx context.Context, s *State) (StepResult, error) {
		close(entered)
		<-release
		return StepResult{}, nil
	}, func(*State) string { return "seed" })

	store := newFakeRunStore()
	cp := newTestCheckpoints(t)
	exec := NewExecutor(r, cp, &recordingSink{}, nil)
	m := NewManager(exec, store, nil, 70, 10)

	runID, err := m.Start(context.Background(), domain.StartRunRequest{SessionID: "s1", Query: "go"})
	assert.NoError(t, err)

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("run never entered its step")
	}

	// Pause lands while the job queue is still empty; the run must be
	// recorded paused, not done.
	assert.NoError(t, m.Pause(runID))
	close(release)
	m.Wait(runID)

	assert.Equal(t, domain.RunStatusPaused, store.statusOf(runID))

	snap, err := cp.Load(runID)
	assert.NoError(t, err)
	assert.NotNil(t, snap)
}

func TestManagerStopUnknownRun(t *testing.T) {
	exec := NewExecutor(loopRegistry(nil), newTestCheckpoints(t), nil, nil)
	m := NewManager(exec, newFakeRunStore(), nil, 70, 10)

	assert.Error(t, m.Stop("run_missing"))
	assert.Error(t, m.Pause("run_missing"))
}

func TestManagerResumeWithoutCheckpoint(t *testing.T) {
	exec := NewExecutor(loopRegistry(nil), newTestCheckpoints(t), nil, nil)
	m := NewManager(exec, newFakeRunStore(), nil, 70, 10)

	err := m.Resume(context.Background(), "run_missing")
	assert.Error(t, err)
}
