// Package pipeline implements the resumable step-execution state machine
// that drives the search → score → enrich → apply workflow.
package pipeline

import (
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
)

// State is the mutable aggregate owned exclusively by one in-flight run.
// Fields tagged `json:"-"` are transient: live handles that are never
// persisted into a checkpoint and are lost on restart.
type State struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`

	// Configuration: set once at start, read-only thereafter.
	Query          string `json:"query"`
	Location       string `json:"location,omitempty"`
	MaxJobs        int    `json:"max_jobs"`
	ScoreThreshold int    `json:"score_threshold"`
	Research       bool   `json:"research"`
	Tailoring      bool   `json:"tailoring"`
	Outreach       bool   `json:"outreach"`

	// Progress: mutated by whichever step runs.
	Jobs         []domain.Job                 `json:"jobs"`
	CurrentIndex int                          `json:"current_index"`
	Results      map[string]*domain.JobResult `json:"results"`
	StepStatuses map[string]domain.StepStatus `json:"step_statuses"`
	Running      bool                         `json:"running"`
	Error        string                       `json:"error,omitempty"`

	// Transient.
	Profile     *domain.Profile     `json:"-"`
	CurrentStep string              `json:"-"`
	Resumed     bool                `json:"-"`
	Completed   bool                `json:"-"`
	Events      []domain.AgentEvent `json:"-"`

	flushed int
}

// StepResult is the partial-state patch a step returns. Nil or zero fields
// leave the corresponding state untouched; merging only adds or overwrites,
// never removes. AdvanceIndex is how the advance step increments the loop
// cursor: merge applies it as exactly +1, so current_index can only grow by
// one per completed iteration.
type StepResult struct {
	Jobs         []domain.Job
	AdvanceIndex bool
	Results      map[string]*domain.JobResult
	StepStatuses map[string]domain.StepStatus
	Running      *bool
	Error        string
	Profile      *domain.Profile
	Events       []domain.AgentEvent
}

// merge applies a step's patch shallowly.
func (s *State) merge(r StepResult) {
	if r.Jobs != nil {
		s.Jobs = r.Jobs
	}
	if r.AdvanceIndex {
		s.CurrentIndex++
	}
	for id, res := range r.Results {
		if s.Results == nil {
			s.Results = make(map[string]*domain.JobResult)
		}
		s.Results[id] = res
	}
	for step, status := range r.StepStatuses {
		if s.StepStatuses == nil {
			s.StepStatuses = make(map[string]domain.StepStatus)
		}
		s.StepStatuses[step] = status
	}
	if r.Running != nil {
		s.Running = *r.Running
	}
	if r.Error != "" {
		s.Error = r.Error
	}
	if r.Profile != nil {
		s.Profile = r.Profile
	}
	s.Events = append(s.Events, r.Events...)
}

// CurrentJob returns the job under the loop cursor, or nil past the end.
func (s *State) CurrentJob() *domain.Job {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Jobs) {
		return nil
	}
	return &s.Jobs[s.CurrentIndex]
}

// ResultFor returns the accumulated result for a job, creating it on first
// use so steps can always record into it.
func (s *State) ResultFor(jobID string) *domain.JobResult {
	if s.Results == nil {
		s.Results = make(map[string]*domain.JobResult)
	}
	res, ok := s.Results[jobID]
	if !ok {
		res = &domain.JobResult{JobID: jobID, StepStatuses: make(map[string]domain.StepStatus)}
		s.Results[jobID] = res
	}
	return res
}

// Terminal reports whether the loop is done: queue exhausted or the running
// flag cleared.
func (s *State) Terminal() bool {
	return !s.Running || s.CurrentIndex >= len(s.Jobs)
}

// Event is a small helper for steps producing client-visible events.
func Event(t domain.EventType, source, message string, data map[string]any) domain.AgentEvent {
	return domain.AgentEvent{
		Type:    t,
		Source:  source,
		Message: message,
		Data:    data,
		Ts:      time.Now().UnixMilli(),
	}
}

// NewState seeds a fresh run state from caller configuration.
func NewState(runID string, req domain.StartRunRequest, defaultThreshold, defaultMaxJobs int) *State {
	threshold := req.ScoreThreshold
	if threshold == 0 {
		threshold = defaultThreshold
	}
	maxJobs := req.MaxJobs
	if maxJobs == 0 {
		maxJobs = defaultMaxJobs
	}
	boolOr := func(v *bool, def bool) bool {
		if v == nil {
			return def
		}
		return *v
	}
	return &State{
		RunID:          runID,
		SessionID:      req.SessionID,
		Query:          req.Query,
		Location:       req.Location,
		MaxJobs:        maxJobs,
		ScoreThreshold: threshold,
		Research:       boolOr(req.Research, true),
		Tailoring:      boolOr(req.Tailoring, true),
		Outreach:       boolOr(req.Outreach, true),
		Results:        make(map[string]*domain.JobResult),
		StepStatuses:   make(map[string]domain.StepStatus),
		Running:        true,
	}
}
