package pipeline

import (
	"context"
	"fmt"
)

// StepEnd is the terminal routing marker.
const StepEnd = ""

// Canonical step names. The only loop in the pipeline is the per-job
// enrichment cycle: score → enrich → apply → collect → advance → score.
const (
	StepLoadProfile = "load_profile"
	StepSearch      = "search"
	StepScore       = "score"
	StepEnrich      = "enrich"
	StepApply       = "apply"
	StepCollect     = "collect"
	StepAdvance     = "advance"
)

// StepFunc is a unit of work. A step that cannot complete its task records a
// FAILED status and an error message in its own result rather than
// returning an error; an error return is reserved for unexpected failures,
// which the executor maps to FAILED itself and keeps routing.
type StepFunc func(ctx context.Context, s *State) (StepResult, error)

// RouteFunc selects the next step name from the merged state, or StepEnd.
// It is pure and is evaluated strictly after the step's result is merged.
type RouteFunc func(s *State) string

// Registry holds named steps with their routing edges.
type Registry struct {
	entry  string
	steps  map[string]StepFunc
	routes map[string]RouteFunc
}

// NewRegistry creates a registry with the given entry step.
func NewRegistry(entry string) *Registry {
	return &Registry{
		entry:  entry,
		steps:  make(map[string]StepFunc),
		routes: make(map[string]RouteFunc),
	}
}

// Register adds a step and its routing function.
func (r *Registry) Register(name string, step StepFunc, route RouteFunc) {
	r.steps[name] = step
	r.routes[name] = route
}

// Entry returns the fixed entry step name.
func (r *Registry) Entry() string { return r.entry }

// Step looks up a step by name.
func (r *Registry) Step(name string) (StepFunc, error) {
	fn, ok := r.steps[name]
	if !ok {
		return nil, fmt.Errorf("step %q is not registered", name)
	}
	return fn, nil
}

// Route computes the successor of name against the current state.
func (r *Registry) Route(name string, s *State) (string, error) {
	route, ok := r.routes[name]
	if !ok {
		return StepEnd, fmt.Errorf("no route registered for step %q", name)
	}
	next := route(s)
	if next == StepEnd {
		return StepEnd, nil
	}
	if _, ok := r.steps[next]; !ok {
		return StepEnd, fmt.Errorf("step %q routes to unknown step %q", name, next)
	}
	return next, nil
}
