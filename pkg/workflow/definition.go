package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
)

type (
	// Definition is an ordered, immutable collection of steps. Execution
	// order is the order in which steps were added
	Definition struct {
		steps []StepSpec
		index map[api.StepID]int
	}

	// StepSpec pairs a step key and display name with its callback
	StepSpec struct {
		Callback StepCallback
		ID       api.StepID
		Name     string
	}

	// StepCallback produces the directive for a step from the state of the
	// steps that ran before it. It must not return an endpoint directive
	// built from incomplete data
	StepCallback func(*StepContext) *api.Directive

	// StepContext is handed to each step invocation
	StepContext struct {
		State  api.StepState
		Portal Portal
		Logger *slog.Logger
		ID     api.StepID
		Name   string
	}

	// Portal exposes host-provided settings to step callbacks
	Portal interface {
		Lookup(key string) (string, bool)
	}

	// PortalMap is a Portal backed by a static map
	PortalMap map[string]string

	// Factory builds a fresh Definition for a run. It is the sole surface a
	// host invokes to obtain the sequence
	Factory func(context.Context, Portal) (*Definition, error)

	// Builder accumulates steps into a Definition. Each method returns a new
	// Builder, leaving the receiver untouched
	Builder struct {
		steps []StepSpec
	}
)

var (
	ErrNoSteps        = errors.New("definition has no steps")
	ErrDuplicateStep  = errors.New("duplicate step key")
	ErrStepIDEmpty    = errors.New("step key empty")
	ErrStepNameEmpty  = errors.New("step name empty")
	ErrNilCallback    = errors.New("step callback is nil")
	ErrStepNotDefined = errors.New("step not defined")
)

// NewBuilder returns an empty definition builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Step appends a step to the definition being built
func (b *Builder) Step(
	id api.StepID, name string, cb StepCallback,
) *Builder {
	res := *b
	res.steps = make([]StepSpec, len(b.steps), len(b.steps)+1)
	copy(res.steps, b.steps)
	res.steps = append(res.steps, StepSpec{
		ID:       id,
		Name:     name,
		Callback: cb,
	})
	return &res
}

// Build validates the accumulated steps and returns the Definition
func (b *Builder) Build() (*Definition, error) {
	return NewDefinition(b.steps...)
}

// NewDefinition creates a Definition from steps in execution order
func NewDefinition(steps ...StepSpec) (*Definition, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	def := &Definition{
		steps: slices.Clone(steps),
		index: make(map[api.StepID]int, len(steps)),
	}
	for i, s := range def.steps {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, ok := def.index[s.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStep, s.ID)
		}
		def.index[s.ID] = i
	}
	return def, nil
}

// Validate checks that the step can be placed in a Definition
func (s *StepSpec) Validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}
	if s.Name == "" {
		return fmt.Errorf("%w: %s", ErrStepNameEmpty, s.ID)
	}
	if s.Callback == nil {
		return fmt.Errorf("%w: %s", ErrNilCallback, s.ID)
	}
	return nil
}

// Len returns the number of steps
func (d *Definition) Len() int {
	return len(d.steps)
}

// Steps returns the steps in execution order
func (d *Definition) Steps() []StepSpec {
	return slices.Clone(d.steps)
}

// At returns the step at the given position in execution order
func (d *Definition) At(i int) (StepSpec, bool) {
	if i < 0 || i >= len(d.steps) {
		return StepSpec{}, false
	}
	return d.steps[i], true
}

// Step returns the step registered under the key
func (d *Definition) Step(id api.StepID) (StepSpec, bool) {
	i, ok := d.index[id]
	if !ok {
		return StepSpec{}, false
	}
	return d.steps[i], true
}

// IndexOf returns the execution position of a step key
func (d *Definition) IndexOf(id api.StepID) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

// Info summarizes the steps for listing
func (d *Definition) Info() []api.StepInfo {
	res := make([]api.StepInfo, len(d.steps))
	for i, s := range d.steps {
		res[i] = api.StepInfo{ID: s.ID, Name: s.Name}
	}
	return res
}

// Invoke runs the callback of a step against the given state without
// recording anything. It is the unit a Runner executes, exposed for hosts
// that preview directives
func (d *Definition) Invoke(
	id api.StepID, state api.StepState, portal Portal, logger *slog.Logger,
) (*api.Directive, error) {
	spec, ok := d.Step(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotDefined, id)
	}
	return spec.invoke(state, portal, logger)
}

func (s *StepSpec) invoke(
	state api.StepState, portal Portal, logger *slog.Logger,
) (*api.Directive, error) {
	if state == nil {
		state = api.StepState{}
	}
	if portal == nil {
		portal = PortalMap{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		log.StepID(s.ID),
		slog.String("step_name", s.Name),
	)
	logger.Debug("Step entered")

	dir := s.Callback(&StepContext{
		State:  state,
		Portal: portal,
		Logger: logger,
		ID:     s.ID,
		Name:   s.Name,
	})
	if dir == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilDirective, s.ID)
	}
	if err := dir.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBadDirective, s.ID, err)
	}
	return dir, nil
}

// Resolve looks up the step's requirements in the accumulated state
func (c *StepContext) Resolve(
	reqs ...api.Requirement,
) (api.Resolved, []api.Requirement) {
	return c.State.Resolve(reqs...)
}

// Setting returns a portal setting, or def when the portal has none
func (c *StepContext) Setting(key, def string) string {
	if c.Portal == nil {
		return def
	}
	if v, ok := c.Portal.Lookup(key); ok && v != "" {
		return v
	}
	return def
}

// Lookup implements Portal
func (p PortalMap) Lookup(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}
