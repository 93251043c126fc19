package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/checkpoint"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// EventSink forwards client-visible events for one session.
type EventSink interface {
	Send(sessionID string, ev domain.AgentEvent)
}

// Journal records events durably for later paging over HTTP. Optional.
type Journal interface {
	AppendEvent(ctx context.Context, runID string, ev domain.AgentEvent) error
}

// Executor drives a run's steps to completion: invoke, merge, route, flush
// new events, checkpoint, advance. One Executor is shared by all runs; all
// per-run state lives in *State, so runs never share mutable state.
type Executor struct {
	registry    *Registry
	checkpoints *checkpoint.Store
	events      EventSink
	journal     Journal
}

// NewExecutor wires the executor. events and journal may be nil in tests.
func NewExecutor(registry *Registry, checkpoints *checkpoint.Store, events EventSink, journal Journal) *Executor {
	return &Executor{
		registry:    registry,
		checkpoints: checkpoints,
		events:      events,
		journal:     journal,
	}
}

// Prepare builds the state for a run: restored from an existing checkpoint
// for this run id when one is present, otherwise seeded fresh from the
// caller configuration. A restored state keeps its queue and index; its
// transient fields start empty and the entry chain reloads them.
func (e *Executor) Prepare(runID string, req domain.StartRunRequest, defaultThreshold, defaultMaxJobs int) (*State, error) {
	if e.checkpoints != nil {
		snap, err := e.checkpoints.Load(runID)
		if err != nil {
			log.Printf("WARN: failed to load checkpoint for run %s: %v", runID, err)
		} else if snap != nil {
			var st State
			if err := json.Unmarshal(snap.State, &st); err != nil {
				log.Printf("WARN: checkpoint state for run %s is unreadable, starting fresh: %v", runID, err)
			} else {
				st.RunID = runID
				st.Resumed = true
				st.Running = true
				log.Printf("INFO: run %s resuming from checkpoint (step %s, index %d)", runID, snap.Step, st.CurrentIndex)
				return &st, nil
			}
		}
	}
	if req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	return NewState(runID, req, defaultThreshold, defaultMaxJobs), nil
}

// Run executes the state machine until routing yields StepEnd, the context
// is cancelled, or the paused flag is observed. On normal completion the
// checkpoint is deleted; on pause or cancellation it is left in place.
func (e *Executor) Run(ctx context.Context, st *State, paused *atomic.Bool) error {
	st.Events = append(st.Events, Event(domain.EventTypeRunStarted, "executor", "run started", map[string]any{
		"run_id": st.RunID,
		"query":  st.Query,
	}))
	e.flush(ctx, st)

	current := e.registry.Entry()
	for current != StepEnd {
		if ctx.Err() != nil {
			return e.cancelled(ctx, st)
		}
		if paused != nil && paused.Load() {
			st.Running = false
		}
		if !st.Running {
			log.Printf("INFO: run %s paused before step %s", st.RunID, current)
			return nil
		}

		st.CurrentStep = current
		fn, err := e.registry.Step(current)
		if err != nil {
			return e.abort(ctx, st, current, err)
		}

		res, err := fn(ctx, st)
		if err != nil {
			// Unexpected step failure: record FAILED and continue routing as
			// if the step had self-reported it.
			log.Printf("ERROR: step %s failed in run %s: %v", current, st.RunID, err)
			res.StepStatuses = map[string]domain.StepStatus{current: domain.StepStatusFailed}
			res.Events = append(res.Events, Event(domain.EventTypeStepCompleted, current, err.Error(), map[string]any{
				"step":   current,
				"status": string(domain.StepStatusFailed),
			}))
			if job := st.CurrentJob(); job != nil {
				r := st.ResultFor(job.JobID)
				r.StepStatuses[current] = domain.StepStatusFailed
				r.Error = err.Error()
			}
		}
		st.merge(res)

		next, err := e.registry.Route(current, st)
		if err != nil {
			return e.abort(ctx, st, current, err)
		}

		e.flush(ctx, st)
		e.save(st, current)
		current = next
	}

	if ctx.Err() != nil {
		return e.cancelled(ctx, st)
	}

	st.Running = false
	st.Completed = true
	st.Events = append(st.Events, Event(domain.EventTypeRunDone, "executor", "run completed", map[string]any{
		"run_id":    st.RunID,
		"processed": st.CurrentIndex,
	}))
	e.flush(ctx, st)
	if e.checkpoints != nil {
		e.checkpoints.Clear(st.RunID)
	}
	return nil
}

// flush forwards the events produced since the last flush, in production
// order, and journals them. Flushing happens synchronously after each step
// merge, never interleaved with another step's output.
func (e *Executor) flush(ctx context.Context, st *State) {
	pending := st.Events[st.flushed:]
	st.flushed = len(st.Events)
	for _, ev := range pending {
		if e.events != nil {
			e.events.Send(st.SessionID, ev)
		}
		if e.journal != nil {
			if err := e.journal.AppendEvent(ctx, st.RunID, ev); err != nil {
				log.Printf("WARN: failed to journal event for run %s: %v", st.RunID, err)
			}
		}
	}
}

// save persists a checkpoint tagged with the step that just completed.
// Checkpointing is a crash-recovery optimization: failures are logged and
// swallowed.
func (e *Executor) save(st *State, step string) {
	if e.checkpoints == nil {
		return
	}
	if err := e.checkpoints.Save(st.RunID, step, st); err != nil {
		log.Printf("WARN: failed to save checkpoint for run %s: %v", st.RunID, err)
	}
}

// abort is a run-level failure: running flag cleared, error recorded, the
// checkpoint left in place for inspection, and a terminal error event sent.
func (e *Executor) abort(ctx context.Context, st *State, step string, cause error) error {
	st.Running = false
	st.Error = cause.Error()
	st.Events = append(st.Events, Event(domain.EventTypeRunFailed, "executor", cause.Error(), map[string]any{
		"run_id": st.RunID,
		"step":   step,
	}))
	e.flush(ctx, st)
	e.save(st, step)
	return fmt.Errorf("run %s aborted at step %s: %w", st.RunID, step, cause)
}

func (e *Executor) cancelled(ctx context.Context, st *State) error {
	st.Running = false
	st.Events = append(st.Events, Event(domain.EventTypeRunCancelled, "executor", "run cancelled", map[string]any{
		"run_id": st.RunID,
	}))
	// Flush with a fresh context: the run's own context is already gone.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.flush(flushCtx, st)
	return ctx.Err()
}
