package api

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

type (
	// StepResult is the recorded output of a completed step
	StepResult struct {
		Data   Args `json:"data"`
		Status int  `json:"status,omitempty"`
	}

	// StepState accumulates the results of completed steps, keyed by step.
	// It is append-only: once recorded, an entry is never replaced
	StepState map[StepID]*StepResult

	// Requirement names a data field a step reads from a preceding step
	Requirement struct {
		Step  StepID `json:"step"`
		Field Name   `json:"field"`
	}

	// Resolved holds the values found for a set of requirements
	Resolved map[Requirement]any
)

var (
	ErrStepAlreadyRecorded = errors.New("step already recorded")
	ErrNilStepResult       = errors.New("step result is nil")
)

// Get returns the recorded result for a step, if any
func (s StepState) Get(id StepID) (*StepResult, bool) {
	res, ok := s[id]
	return res, ok
}

// Has reports whether a step has been recorded
func (s StepState) Has(id StepID) bool {
	_, ok := s[id]
	return ok
}

// With returns a new StepState with the result recorded under the step key.
// The receiver is left untouched
func (s StepState) With(id StepID, res *StepResult) (StepState, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilStepResult, id)
	}
	if s.Has(id) {
		return nil, fmt.Errorf("%w: %s", ErrStepAlreadyRecorded, id)
	}
	next := make(StepState, len(s)+1)
	maps.Copy(next, s)
	next[id] = res.Clone()
	return next, nil
}

// Clone returns a copy of the state that shares no step results with the
// receiver, so recorded entries cannot be altered through it
func (s StepState) Clone() StepState {
	if s == nil {
		return nil
	}
	res := make(StepState, len(s))
	for id, r := range s {
		res[id] = r.Clone()
	}
	return res
}

// Clone returns a copy of the result with its own Data
func (r *StepResult) Clone() *StepResult {
	if r == nil {
		return nil
	}
	return &StepResult{
		Data:   maps.Clone(r.Data),
		Status: r.Status,
	}
}

// Steps returns the recorded step keys in sorted order
func (s StepState) Steps() []StepID {
	ids := slices.Collect(maps.Keys(s))
	slices.Sort(ids)
	return ids
}

// Resolve looks up each requirement in the state. It returns the values that
// were found and the requirements that were absent or empty, in the order
// they were declared
func (s StepState) Resolve(reqs ...Requirement) (Resolved, []Requirement) {
	found := make(Resolved, len(reqs))
	var missing []Requirement
	for _, req := range reqs {
		res, ok := s[req.Step]
		if !ok || res == nil || !res.Data.Present(req.Field) {
			missing = append(missing, req)
			continue
		}
		found[req] = res.Data[req.Field]
	}
	return found, missing
}

// Require creates a Requirement on a field of a preceding step
func Require(step StepID, field Name) Requirement {
	return Requirement{
		Step:  step,
		Field: field,
	}
}

// String renders the requirement as step.field
func (r Requirement) String() string {
	return fmt.Sprintf("%s.%s", r.Step, r.Field)
}

// String returns the resolved value for a requirement as a string
func (r Resolved) String(req Requirement) string {
	return stringify(r[req])
}
