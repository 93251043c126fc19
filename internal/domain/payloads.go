package domain

// StartRunRequest is the request to start a pipeline run.
type StartRunRequest struct {
	SessionID      string `json:"session_id"`
	Query          string `json:"query"`
	Location       string `json:"location,omitempty"`
	MaxJobs        int    `json:"max_jobs,omitempty"`
	ScoreThreshold int    `json:"score_threshold,omitempty"`
	Research       *bool  `json:"research,omitempty"`
	Tailoring      *bool  `json:"tailoring,omitempty"`
	Outreach       *bool  `json:"outreach,omitempty"`
}

// StartRunResponse is returned after a run has been accepted.
type StartRunResponse struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
}

// RunStartedPayload is the payload for the run_started event.
type RunStartedPayload struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// StepCompletedPayload is the payload for the step_completed event.
type StepCompletedPayload struct {
	Step   string     `json:"step"`
	JobID  string     `json:"job_id,omitempty"`
	Status StepStatus `json:"status"`
}

// JobScoredPayload is the payload for the job_scored event.
type JobScoredPayload struct {
	JobID     string `json:"job_id"`
	Score     int    `json:"score"`
	Qualified bool   `json:"qualified"`
}

// HITLRequestPayload is the payload for the hitl_request event.
type HITLRequestPayload struct {
	ID         string   `json:"id"`
	Question   string   `json:"question"`
	Kind       HITLKind `json:"kind"`
	DeadlineTs int64    `json:"deadline_ts"`
}

// RunFailedPayload is the payload for the run_failed event.
type RunFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateNegotiationRequest starts a new negotiation.
type CreateNegotiationRequest struct {
	SessionID    string `json:"session_id"`
	JobID        string `json:"job_id,omitempty"`
	MaxTurns     int    `json:"max_turns,omitempty"`
	TargetSalary int    `json:"target_salary,omitempty"`
}

// NegotiationMessageRequest carries one inbound human utterance.
type NegotiationMessageRequest struct {
	Message string `json:"message"`
}

// NegotiationMessageResponse is returned after one negotiation turn.
type NegotiationMessageResponse struct {
	NegotiationID string            `json:"negotiation_id"`
	Turn          int               `json:"turn"`
	Phase         NegotiationPhase  `json:"phase"`
	Status        NegotiationStatus `json:"status"`
	Response      string            `json:"response"`
}
