// Package domain defines the core domain models for the pipeline backend.
package domain

// RunStatus represents the status of a pipeline run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "CREATED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusPaused    RunStatus = "PAUSED"
	RunStatusDone      RunStatus = "DONE"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// StepStatus represents the status of a single pipeline step for one job.
type StepStatus string

const (
	StepStatusPending   StepStatus = "PENDING"
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusCompleted StepStatus = "COMPLETED"
	StepStatusFailed    StepStatus = "FAILED"
	StepStatusSkipped   StepStatus = "SKIPPED"
)

// EventType represents the type of an event.
type EventType string

const (
	EventTypeConnected     EventType = "connected"
	EventTypeRunStarted    EventType = "run_started"
	EventTypeStepStarted   EventType = "step_started"
	EventTypeStepCompleted EventType = "step_completed"
	EventTypeJobScored     EventType = "job_scored"
	EventTypeHITLRequest   EventType = "hitl_request"
	EventTypeHITLResolved  EventType = "hitl_resolved"
	EventTypeChat          EventType = "chat"
	EventTypeRunDone       EventType = "run_done"
	EventTypeRunFailed     EventType = "run_failed"
	EventTypeRunCancelled  EventType = "run_cancelled"
)

// HITLKind classifies what a human-in-the-loop request is asking for.
type HITLKind string

const (
	HITLKindQuestion HITLKind = "question"
	HITLKindApproval HITLKind = "approval"
	HITLKindField    HITLKind = "field"
)

// HITLOutcomeStatus describes how a HITL request was concluded.
type HITLOutcomeStatus string

const (
	HITLOutcomeAnswered  HITLOutcomeStatus = "ANSWERED"
	HITLOutcomeNoAnswer  HITLOutcomeStatus = "NO_ANSWER"
	HITLOutcomeCancelled HITLOutcomeStatus = "CANCELLED"
)

// NegotiationStatus represents the status of a salary negotiation.
type NegotiationStatus string

const (
	NegotiationStatusActive    NegotiationStatus = "ACTIVE"
	NegotiationStatusWon       NegotiationStatus = "WON"
	NegotiationStatusLost      NegotiationStatus = "LOST"
	NegotiationStatusStalemate NegotiationStatus = "STALEMATE"
)

// NegotiationPhase is derived from the turn counter.
type NegotiationPhase string

const (
	NegotiationPhaseOpening   NegotiationPhase = "OPENING"
	NegotiationPhaseCounter   NegotiationPhase = "COUNTER"
	NegotiationPhaseObjection NegotiationPhase = "OBJECTION"
	NegotiationPhaseFinal     NegotiationPhase = "FINAL"
)

// NegotiationSignal is an explicit outcome signal from the response generator.
type NegotiationSignal string

const (
	NegotiationSignalNone NegotiationSignal = "none"
	NegotiationSignalWin  NegotiationSignal = "win"
	NegotiationSignalLose NegotiationSignal = "lose"
)
