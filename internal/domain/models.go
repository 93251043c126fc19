package domain

import (
	"encoding/json"
	"time"
)

// Session represents a client-facing connection session.
type Session struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// Run represents a single execution of the application pipeline.
type Run struct {
	RunID     string          `json:"run_id"`
	SessionID string          `json:"session_id"`
	Query     string          `json:"query"`
	Status    RunStatus       `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Job is a single job posting discovered by the search step.
type Job struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	SalaryFloor int    `json:"salary_floor,omitempty"`
}

// Profile is the candidate profile loaded at run start. It is a live handle
// and is never persisted into a checkpoint.
type Profile struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Headline   string   `json:"headline,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	ResumePath string   `json:"resume_path,omitempty"`
	MinSalary  int      `json:"min_salary,omitempty"`
}

// JobResult accumulates per-job outcomes across the enrichment loop.
type JobResult struct {
	JobID         string                `json:"job_id"`
	FitScore      int                   `json:"fit_score"`
	ScoreReason   string                `json:"score_reason,omitempty"`
	ResearchNotes string                `json:"research_notes,omitempty"`
	TailoredPath  string                `json:"tailored_path,omitempty"`
	Outreach      string                `json:"outreach,omitempty"`
	ApplicationID string                `json:"application_id,omitempty"`
	StepStatuses  map[string]StepStatus `json:"step_statuses"`
	Error         string                `json:"error,omitempty"`
}

// AgentEvent is a client-visible progress event. Events are append-only
// within a run and delivered in production order.
type AgentEvent struct {
	Type    EventType      `json:"type"`
	Source  string         `json:"source"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Ts      int64          `json:"ts"` // Unix milliseconds
}

// Event is a journaled trace event for replay via the HTTP API.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Seq     int64           `json:"seq"`
	Ts      int64           `json:"ts"`
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Application is a submitted (or attempted) job application.
type Application struct {
	ApplicationID string    `json:"application_id"`
	RunID         string    `json:"run_id"`
	JobID         string    `json:"job_id"`
	Status        string    `json:"status"`
	Receipt       string    `json:"receipt,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HITLRequest is a pending human-in-the-loop request.
type HITLRequest struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	SessionID string        `json:"session_id"`
	Question  string        `json:"question"`
	Kind      HITLKind      `json:"kind"`
	Timeout   time.Duration `json:"-"`
	CreatedAt time.Time     `json:"created_at"`
}

// HITLOutcome is the single-assignment result of a HITL request. A timeout
// yields the NO_ANSWER sentinel rather than an error.
type HITLOutcome struct {
	Answer string            `json:"answer,omitempty"`
	Status HITLOutcomeStatus `json:"status"`
}

// NegotiationTurn is one exchange in a negotiation.
type NegotiationTurn struct {
	Turn     int              `json:"turn"`
	Phase    NegotiationPhase `json:"phase"`
	Inbound  string           `json:"inbound"`
	Response string           `json:"response"`
	At       time.Time        `json:"at"`
}

// Negotiation is the caller-persisted state of a turn-based negotiation.
type Negotiation struct {
	NegotiationID string            `json:"negotiation_id"`
	SessionID     string            `json:"session_id"`
	JobID         string            `json:"job_id,omitempty"`
	Turn          int               `json:"turn"`
	MaxTurns      int               `json:"max_turns"`
	Phase         NegotiationPhase  `json:"phase"`
	Status        NegotiationStatus `json:"status"`
	TargetSalary  int               `json:"target_salary,omitempty"`
	History       []NegotiationTurn `json:"history,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NegotiationReply is what the response generator produces for one turn.
type NegotiationReply struct {
	Text   string            `json:"text"`
	Signal NegotiationSignal `json:"signal"`
}
