package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
)

// Runner executes the steps of a Definition one at a time, in order,
// carrying forward the StepState of completed steps
type Runner struct {
	def    *Definition
	host   Host
	portal Portal
	logger *slog.Logger
	state  api.StepState
	next   int
	mu     sync.Mutex
}

var (
	ErrRunComplete     = errors.New("run already complete")
	ErrNilDirective    = errors.New("step returned no directive")
	ErrBadDirective    = errors.New("step returned invalid directive")
	ErrNilDefinition   = errors.New("definition is nil")
	ErrNilHost         = errors.New("host is nil")
	ErrInvalidProgress = errors.New("progress does not match definition")
)

// NewRunner creates a Runner positioned at the first step with an empty
// StepState, unless WithProgress resumes an earlier position
func NewRunner(def *Definition, host Host, apps ...Applier) (*Runner, error) {
	if def == nil {
		return nil, ErrNilDefinition
	}
	if host == nil {
		return nil, ErrNilHost
	}

	opts := DefaultOptions(apps...)
	r := &Runner{
		def:    def,
		host:   host,
		portal: opts.Portal,
		logger: opts.Logger,
		state:  api.StepState{},
	}

	if opts.Progress != nil {
		if err := r.restore(*opts.Progress); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Next attempts the step at the current position. A step whose directive
// is degraded content comes back stuck, and a step whose response fails
// verification comes back failed; neither is recorded, and both may be
// attempted again. Host errors are returned without recording anything
func (r *Runner) Next(ctx context.Context) (*api.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec, ok := r.def.At(r.next)
	if !ok {
		return nil, ErrRunComplete
	}

	dir, err := spec.invoke(r.state.Clone(), r.portal, r.logger)
	if err != nil {
		return nil, err
	}

	res, err := Render(WithStep(ctx, spec.ID), r.host, dir)
	if err != nil {
		r.logger.Error("Step render failed",
			log.StepID(spec.ID),
			log.Error(err))
		return nil, err
	}
	if res == nil {
		res = &api.RenderResult{Verified: dir.IsContent()}
	}

	out := &api.Outcome{
		Directive: dir,
		Result:    res,
		StepID:    spec.ID,
		Name:      spec.Name,
	}

	switch {
	case dir.Blocked():
		out.Status = api.OutcomeStuck
		out.Error = dir.Content.Markup
	case dir.IsEndpoint() && !res.Verified:
		out.Status = api.OutcomeFailed
		out.Error = res.Error
		if out.Error == "" {
			out.Error = DefaultVerifyError
		}
	default:
		state, err := r.state.With(spec.ID, res.Record())
		if err != nil {
			return nil, err
		}
		r.state = state
		r.next++
		out.Status = api.OutcomeCompleted
	}

	r.logger.Debug("Step attempted",
		log.StepID(spec.ID),
		log.Status(out.Status))
	return out, nil
}

// Run attempts steps until the run completes or a step does not advance,
// returning every outcome in order
func (r *Runner) Run(ctx context.Context) ([]*api.Outcome, error) {
	var res []*api.Outcome
	for !r.Done() {
		out, err := r.Next(ctx)
		if err != nil {
			return res, err
		}
		res = append(res, out)
		if !out.Advanced() {
			break
		}
	}
	return res, nil
}

// Done reports whether every step has been recorded
func (r *Runner) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next >= r.def.Len()
}

// Current returns the step that Next would attempt
func (r *Runner) Current() (StepSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.def.At(r.next)
}

// State returns a copy of the accumulated StepState
func (r *Runner) State() api.StepState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// Progress captures the run's position for later resumption
func (r *Runner) Progress() api.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return api.Progress{
		State: r.state.Clone(),
		Next:  r.next,
		Total: r.def.Len(),
	}
}

func (r *Runner) restore(p api.Progress) error {
	if p.Next < 0 || p.Next > r.def.Len() {
		return fmt.Errorf("%w: next step %d of %d",
			ErrInvalidProgress, p.Next, r.def.Len())
	}
	for id := range p.State {
		i, ok := r.def.IndexOf(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrStepNotDefined, id)
		}
		if i >= p.Next {
			return fmt.Errorf("%w: %s recorded ahead of position",
				ErrInvalidProgress, id)
		}
	}
	for i := range p.Next {
		spec, _ := r.def.At(i)
		if !p.State.Has(spec.ID) {
			return fmt.Errorf("%w: %s not recorded",
				ErrInvalidProgress, spec.ID)
		}
	}
	r.state = p.State.Clone()
	if r.state == nil {
		r.state = api.StepState{}
	}
	r.next = p.Next
	return nil
}
