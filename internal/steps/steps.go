// Package steps wires the pipeline's named steps and their routing edges.
//
// Step business logic lives behind small collaborator interfaces so the
// pipeline can run against local implementations or real integrations. A
// step that cannot complete its task records a FAILED status and an error
// message in its own result rather than failing the run.
package steps

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/domain"
	"github.com/Harish24-10-2005/JobStream-backend-sub000/internal/pipeline"
)

// Enrichment sub-step names. They form the job result's uniform status
// vector together with score and apply.
const (
	SubStepResearch = "research"
	SubStepTailor   = "tailor"
	SubStepOutreach = "outreach"
)

// Searcher discovers job postings.
type Searcher interface {
	Search(ctx context.Context, query, location string, limit int) ([]domain.Job, error)
}

// ProfileLoader loads the candidate profile at run start.
type ProfileLoader interface {
	Load(ctx context.Context) (*domain.Profile, error)
}

// Scorer rates how well the profile fits a job, 0-100.
type Scorer interface {
	Score(ctx context.Context, profile *domain.Profile, job domain.Job) (int, string, error)
}

// Researcher gathers company background for a qualified job.
type Researcher interface {
	Research(ctx context.Context, job domain.Job) (string, error)
}

// Tailor produces a job-specific resume and returns its location.
type Tailor interface {
	TailorResume(ctx context.Context, profile *domain.Profile, job domain.Job, notes string) (string, error)
}

// OutreachWriter composes an outreach message to the hiring contact.
type OutreachWriter interface {
	Compose(ctx context.Context, profile *domain.Profile, job domain.Job, notes string) (string, error)
}

// Submitter fills and submits the application form, returning a receipt id.
type Submitter interface {
	Submit(ctx context.Context, profile *domain.Profile, job domain.Job, resumePath string) (string, error)
}

// PolicyEngine decides whether an application may be submitted without a
// human: "auto", "review" or "block".
type PolicyEngine interface {
	Evaluate(ctx context.Context, input interface{}) (string, string, error)
}

// HumanGate opens a human-in-the-loop request and blocks on its outcome.
type HumanGate interface {
	Open(ctx context.Context, runID, sessionID, question string, timeout time.Duration, kind domain.HITLKind) (domain.HITLOutcome, error)
}

// Recorder persists business records produced by steps. Optional.
type Recorder interface {
	UpsertJob(ctx context.Context, job *domain.Job) error
	CreateApplication(ctx context.Context, app *domain.Application) error
}

// Deps carries the collaborators for all steps.
type Deps struct {
	Searcher Searcher
	Profiles ProfileLoader
	Scorer   Scorer

	Researcher Researcher
	Tailor     Tailor
	Outreach   OutreachWriter

	Submitter Submitter
	Policy    PolicyEngine
	HITL      HumanGate
	Recorder  Recorder

	HITLTimeout time.Duration
}

// NewRegistry builds the step registry. Entry is load_profile; the entry
// chain routes on checkpoint restoration so a resumed run jumps straight
// back into the loop with its restored queue and index instead of
// re-discovering jobs.
func NewRegistry(d Deps) *pipeline.Registry {
	r := pipeline.NewRegistry(pipeline.StepLoadProfile)

	r.Register(pipeline.StepLoadProfile, d.loadProfile, func(s *pipeline.State) string {
		if s.Resumed && len(s.Jobs) > 0 {
			if s.CurrentIndex >= len(s.Jobs) {
				return pipeline.StepEnd
			}
			return pipeline.StepScore
		}
		return pipeline.StepSearch
	})

	r.Register(pipeline.StepSearch, d.search, func(s *pipeline.State) string {
		if s.CurrentIndex >= len(s.Jobs) {
			return pipeline.StepEnd
		}
		return pipeline.StepScore
	})

	r.Register(pipeline.StepScore, d.score, func(s *pipeline.State) string {
		// Score gate: a disqualified or unscored job skips the whole
		// enrichment chain and goes straight to collection.
		job := s.CurrentJob()
		if job == nil {
			return pipeline.StepCollect
		}
		res := s.ResultFor(job.JobID)
		if res.StepStatuses[pipeline.StepScore] != domain.StepStatusCompleted || res.FitScore < s.ScoreThreshold {
			return pipeline.StepCollect
		}
		return pipeline.StepEnrich
	})

	r.Register(pipeline.StepEnrich, d.enrich, func(*pipeline.State) string {
		return pipeline.StepApply
	})

	r.Register(pipeline.StepApply, d.apply, func(*pipeline.State) string {
		return pipeline.StepCollect
	})

	r.Register(pipeline.StepCollect, d.collect, func(*pipeline.State) string {
		return pipeline.StepAdvance
	})

	r.Register(pipeline.StepAdvance, d.advance, func(s *pipeline.State) string {
		if s.CurrentIndex >= len(s.Jobs) {
			return pipeline.StepEnd
		}
		return pipeline.StepScore
	})

	return r
}

func (d Deps) loadProfile(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	profile, err := d.Profiles.Load(ctx)
	if err != nil {
		return pipeline.StepResult{
			StepStatuses: map[string]domain.StepStatus{pipeline.StepLoadProfile: domain.StepStatusFailed},
			Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepLoadProfile,
				"failed to load profile: "+err.Error(), map[string]any{"status": string(domain.StepStatusFailed)})},
		}, nil
	}
	return pipeline.StepResult{
		Profile:      profile,
		StepStatuses: map[string]domain.StepStatus{pipeline.StepLoadProfile: domain.StepStatusCompleted},
		Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepLoadProfile,
			"profile loaded", map[string]any{"name": profile.Name})},
	}, nil
}

func (d Deps) search(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	if s.Resumed && len(s.Jobs) > 0 {
		// Restored queue: do not overwrite it.
		return pipeline.StepResult{
			StepStatuses: map[string]domain.StepStatus{pipeline.StepSearch: domain.StepStatusSkipped},
		}, nil
	}

	jobs, err := d.Searcher.Search(ctx, s.Query, s.Location, s.MaxJobs)
	if err != nil {
		return pipeline.StepResult{
			StepStatuses: map[string]domain.StepStatus{pipeline.StepSearch: domain.StepStatusFailed},
			Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepSearch,
				"search failed: "+err.Error(), map[string]any{"status": string(domain.StepStatusFailed)})},
		}, nil
	}

	if d.Recorder != nil {
		for i := range jobs {
			if err := d.Recorder.UpsertJob(ctx, &jobs[i]); err != nil {
				return pipeline.StepResult{}, fmt.Errorf("failed to record job: %w", err)
			}
		}
	}

	return pipeline.StepResult{
		Jobs:         jobs,
		StepStatuses: map[string]domain.StepStatus{pipeline.StepSearch: domain.StepStatusCompleted},
		Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepSearch,
			fmt.Sprintf("found %d jobs", len(jobs)), map[string]any{"count": len(jobs)})},
	}, nil
}

func (d Deps) score(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	job := s.CurrentJob()
	if job == nil {
		return pipeline.StepResult{}, fmt.Errorf("score invoked past end of queue (index %d)", s.CurrentIndex)
	}
	res := resultFor(s, job.JobID)

	score, reason, err := d.Scorer.Score(ctx, s.Profile, *job)
	if err != nil {
		res.StepStatuses[pipeline.StepScore] = domain.StepStatusFailed
		res.Error = err.Error()
		return pipeline.StepResult{
			Results: map[string]*domain.JobResult{job.JobID: res},
			Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepScore,
				"scoring failed: "+err.Error(), map[string]any{"job_id": job.JobID, "status": string(domain.StepStatusFailed)})},
		}, nil
	}

	res.FitScore = score
	res.ScoreReason = reason
	res.StepStatuses[pipeline.StepScore] = domain.StepStatusCompleted
	qualified := score >= s.ScoreThreshold
	return pipeline.StepResult{
		Results: map[string]*domain.JobResult{job.JobID: res},
		Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeJobScored, pipeline.StepScore,
			fmt.Sprintf("%s at %s scored %d", job.Title, job.Company, score),
			map[string]any{"job_id": job.JobID, "score": score, "qualified": qualified})},
	}, nil
}

type subResult struct {
	status domain.StepStatus
	value  string
	event  domain.AgentEvent
}

// enrich fans out the research, tailoring and outreach sub-steps and joins
// them. A disabled sub-step still runs its node and reports SKIPPED
// immediately, keeping the status vector uniform. Sub-results are merged in
// fixed order so event delivery stays deterministic.
func (d Deps) enrich(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	job := s.CurrentJob()
	if job == nil {
		return pipeline.StepResult{}, fmt.Errorf("enrich invoked past end of queue (index %d)", s.CurrentIndex)
	}
	res := resultFor(s, job.JobID)

	run := func(name string, enabled bool, fn func(ctx context.Context) (string, error)) func() subResult {
		return func() subResult {
			if !enabled {
				return subResult{
					status: domain.StepStatusSkipped,
					event: pipeline.Event(domain.EventTypeStepCompleted, name, name+" disabled",
						map[string]any{"job_id": job.JobID, "status": string(domain.StepStatusSkipped)}),
				}
			}
			value, err := fn(ctx)
			if err != nil {
				return subResult{
					status: domain.StepStatusFailed,
					event: pipeline.Event(domain.EventTypeStepCompleted, name, name+" failed: "+err.Error(),
						map[string]any{"job_id": job.JobID, "status": string(domain.StepStatusFailed)}),
				}
			}
			return subResult{
				status: domain.StepStatusCompleted,
				value:  value,
				event: pipeline.Event(domain.EventTypeStepCompleted, name, name+" completed",
					map[string]any{"job_id": job.JobID, "status": string(domain.StepStatusCompleted)}),
			}
		}
	}

	research := run(SubStepResearch, s.Research, func(ctx context.Context) (string, error) {
		return d.Researcher.Research(ctx, *job)
	})
	tailor := run(SubStepTailor, s.Tailoring, func(ctx context.Context) (string, error) {
		return d.Tailor.TailorResume(ctx, s.Profile, *job, res.ResearchNotes)
	})
	outreach := run(SubStepOutreach, s.Outreach, func(ctx context.Context) (string, error) {
		return d.Outreach.Compose(ctx, s.Profile, *job, res.ResearchNotes)
	})

	var wg sync.WaitGroup
	out := make([]subResult, 3)
	for i, fn := range []func() subResult{research, tailor, outreach} {
		wg.Add(1)
		go func(i int, fn func() subResult) {
			defer wg.Done()
			out[i] = fn()
		}(i, fn)
	}
	wg.Wait()

	res.StepStatuses[SubStepResearch] = out[0].status
	res.ResearchNotes = out[0].value
	res.StepStatuses[SubStepTailor] = out[1].status
	res.TailoredPath = out[1].value
	res.StepStatuses[SubStepOutreach] = out[2].status
	res.Outreach = out[2].value

	events := make([]domain.AgentEvent, 0, 3)
	for _, sr := range out {
		events = append(events, sr.event)
	}

	return pipeline.StepResult{
		Results:      map[string]*domain.JobResult{job.JobID: res},
		StepStatuses: map[string]domain.StepStatus{pipeline.StepEnrich: domain.StepStatusCompleted},
		Events:       events,
	}, nil
}

func (d Deps) apply(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	job := s.CurrentJob()
	if job == nil {
		return pipeline.StepResult{}, fmt.Errorf("apply invoked past end of queue (index %d)", s.CurrentIndex)
	}
	res := resultFor(s, job.JobID)

	decision := "auto"
	reason := ""
	if d.Policy != nil {
		minSalary := 0
		if s.Profile != nil {
			minSalary = s.Profile.MinSalary
		}
		var err error
		decision, reason, err = d.Policy.Evaluate(ctx, map[string]interface{}{
			"company":      job.Company,
			"fit_score":    res.FitScore,
			"salary_floor": job.SalaryFloor,
			"min_salary":   minSalary,
		})
		if err != nil {
			return d.applyOutcome(s, job, res, domain.StepStatusFailed, "policy evaluation failed: "+err.Error()), nil
		}
	}

	switch decision {
	case "block":
		if reason == "" {
			reason = "blocked by policy"
		}
		return d.applyOutcome(s, job, res, domain.StepStatusSkipped, reason), nil

	case "review":
		question := fmt.Sprintf("Submit application for %s at %s (fit %d)? Reply yes or no.",
			job.Title, job.Company, res.FitScore)
		outcome, err := d.HITL.Open(ctx, s.RunID, s.SessionID, question, d.HITLTimeout, domain.HITLKindApproval)
		if err != nil {
			return d.applyOutcome(s, job, res, domain.StepStatusFailed, "approval request failed: "+err.Error()), nil
		}
		switch outcome.Status {
		case domain.HITLOutcomeNoAnswer:
			return d.applyOutcome(s, job, res, domain.StepStatusSkipped, "no answer before deadline"), nil
		case domain.HITLOutcomeCancelled:
			return d.applyOutcome(s, job, res, domain.StepStatusSkipped, "run cancelled while waiting"), nil
		}
		if !affirmative(outcome.Answer) {
			return d.applyOutcome(s, job, res, domain.StepStatusSkipped, "declined by user"), nil
		}
	}

	receipt, err := d.Submitter.Submit(ctx, s.Profile, *job, res.TailoredPath)
	if err != nil {
		return d.applyOutcome(s, job, res, domain.StepStatusFailed, "submission failed: "+err.Error()), nil
	}
	res.ApplicationID = receipt

	if d.Recorder != nil {
		app := &domain.Application{
			ApplicationID: receipt,
			RunID:         s.RunID,
			JobID:         job.JobID,
			Status:        "SUBMITTED",
			Receipt:       receipt,
			CreatedAt:     time.Now(),
		}
		if err := d.Recorder.CreateApplication(ctx, app); err != nil {
			return pipeline.StepResult{}, fmt.Errorf("failed to record application: %w", err)
		}
	}

	return d.applyOutcome(s, job, res, domain.StepStatusCompleted, "application submitted"), nil
}

func (d Deps) applyOutcome(s *pipeline.State, job *domain.Job, res *domain.JobResult, status domain.StepStatus, message string) pipeline.StepResult {
	res.StepStatuses[pipeline.StepApply] = status
	if status == domain.StepStatusFailed {
		res.Error = message
	}
	return pipeline.StepResult{
		Results: map[string]*domain.JobResult{job.JobID: res},
		Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepApply,
			message, map[string]any{"job_id": job.JobID, "status": string(status)})},
	}
}

// collect normalizes the job's status vector: any sub-step that never ran
// (for example the enrichment chain of a disqualified job) reads SKIPPED, so
// every job reports the same set of statuses.
func (d Deps) collect(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	job := s.CurrentJob()
	if job == nil {
		return pipeline.StepResult{}, fmt.Errorf("collect invoked past end of queue (index %d)", s.CurrentIndex)
	}
	res := resultFor(s, job.JobID)

	for _, name := range []string{pipeline.StepScore, SubStepResearch, SubStepTailor, SubStepOutreach, pipeline.StepApply} {
		if _, ok := res.StepStatuses[name]; !ok {
			res.StepStatuses[name] = domain.StepStatusSkipped
		}
	}

	return pipeline.StepResult{
		Results:      map[string]*domain.JobResult{job.JobID: res},
		StepStatuses: map[string]domain.StepStatus{pipeline.StepCollect: domain.StepStatusCompleted},
		Events: []domain.AgentEvent{pipeline.Event(domain.EventTypeStepCompleted, pipeline.StepCollect,
			fmt.Sprintf("collected results for %s at %s", job.Title, job.Company),
			map[string]any{"job_id": job.JobID, "fit_score": res.FitScore})},
	}, nil
}

func (d Deps) advance(ctx context.Context, s *pipeline.State) (pipeline.StepResult, error) {
	return pipeline.StepResult{AdvanceIndex: true}, nil
}

// resultFor clones the accumulated result so the step mutates its own copy
// and the executor merge stays the single writer of state.
func resultFor(s *pipeline.State, jobID string) *domain.JobResult {
	existing := s.ResultFor(jobID)
	clone := *existing
	clone.StepStatuses = make(map[string]domain.StepStatus, len(existing.StepStatuses))
	for k, v := range existing.StepStatuses {
		clone.StepStatuses[k] = v
	}
	return &clone
}

func affirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y", "approve", "approved", "ok", "submit":
		return true
	}
	return false
}
