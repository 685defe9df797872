package api

import "time"

type (
	// OutcomeStatus describes what happened when a step was attempted
	OutcomeStatus string

	// SessionStatus represents the lifecycle of a walkthrough session
	SessionStatus string

	// Progress captures where a run is: the recorded state and the index of
	// the next step to execute
	Progress struct {
		State StepState `json:"state"`
		Next  int       `json:"next"`
		Total int       `json:"total"`
	}

	// Outcome reports the result of a single step attempt
	Outcome struct {
		Directive *Directive    `json:"directive"`
		Result    *RenderResult `json:"result,omitempty"`
		StepID    StepID        `json:"step_id"`
		Name      string        `json:"name"`
		Status    OutcomeStatus `json:"status"`
		Error     string        `json:"error,omitempty"`
	}

	// Session is an in-flight run of a recipe held by the service host
	Session struct {
		CreatedAt   time.Time     `json:"created_at"`
		UpdatedAt   time.Time     `json:"updated_at"`
		LastOutcome *Outcome      `json:"last_outcome,omitempty"`
		ID          SessionID     `json:"id"`
		Recipe      RecipeID      `json:"recipe"`
		Status      SessionStatus `json:"status"`
		Progress    Progress      `json:"progress"`
	}
)

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeStuck     OutcomeStatus = "stuck"
	OutcomeFailed    OutcomeStatus = "failed"

	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Done reports whether every step of the run has been recorded
func (p Progress) Done() bool {
	return p.Total > 0 && p.Next >= p.Total
}

// Advanced reports whether the attempt recorded the step
func (o *Outcome) Advanced() bool {
	return o != nil && o.Status == OutcomeCompleted
}
