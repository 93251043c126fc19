// Package schedule triggers recurring pipeline runs from cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// Starter begins a pipeline run; satisfied by pipeline.Manager.
type Starter interface {
	Start(ctx context.Context, req domain.StartRunRequest) (string, error)
}

// Scheduler fires pipeline runs on cron schedules. Each tick starts a fresh
// run under the schedule's session, so events and HITL requests route to
// whichever client is bound to that session at fire time.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	runs    Starter
	started bool
}

// New creates a Scheduler.
func New(runs Starter) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
		runs:    runs,
	}
}

// Add registers a recurring run. Returns an error on a duplicate name or an
// invalid cron expression.
func (s *Scheduler) Add(name, cronExpr string, req domain.StartRunRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("schedule %q already exists", name)
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.fire(name, req)
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	s.entries[name] = entryID
	log.Printf("INFO: registered schedule %q (%s) query=%q", name, cronExpr, req.Query)
	return nil
}

func (s *Scheduler) fire(name string, req domain.StartRunRequest) {
	runID, err := s.runs.Start(context.Background(), req)
	if err != nil {
		log.Printf("ERROR: schedule %q failed to start run: %v", name, err)
		return
	}
	log.Printf("INFO: schedule %q started run %s", name, runID)
}

// Remove deletes a schedule by name.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("schedule %q not found", name)
	}
	s.cron.Remove(entryID)
	delete(s.entries, name)
	return nil
}

// Start begins firing schedules. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts the scheduler and waits for in-flight triggers to hand off.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
}
