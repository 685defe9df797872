package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kode4food/walkthrough/internal/host"
	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type (
	// Manager starts walkthrough runs and advances them one step at a time
	Manager struct {
		store   Store
		recipes *recipes.Registry
		hosts   HostFactory
		portal  workflow.Portal
		logger  *slog.Logger
		timeout time.Duration
	}

	// Host renders a session's steps and reports recorded outcomes
	Host interface {
		workflow.Host
		Recorded(context.Context, *api.Outcome, api.Progress)
	}

	// HostFactory creates the Host that renders steps for a session
	HostFactory func(api.SessionID) Host

	// Options configures a Manager
	Options struct {
		Portal      workflow.Portal
		Logger      *slog.Logger
		StepTimeout time.Duration
	}

	// Applier mutates Options during Manager setup
	Applier func(*Options)
)

var ErrRunComplete = workflow.ErrRunComplete

// NewManager creates a Manager keeping runs in store
func NewManager(
	store Store, reg *recipes.Registry, hosts HostFactory, apps ...Applier,
) *Manager {
	opts := &Options{
		Portal: workflow.PortalMap{},
		Logger: slog.Default(),
	}
	for _, app := range apps {
		app(opts)
	}
	return &Manager{
		store:   store,
		recipes: reg,
		hosts:   hosts,
		portal:  opts.Portal,
		logger:  opts.Logger,
		timeout: opts.StepTimeout,
	}
}

// WithPortal sets the settings handed to step callbacks
func WithPortal(p workflow.Portal) Applier {
	return func(opts *Options) {
		if p != nil {
			opts.Portal = p
		}
	}
}

// WithLogger sets the logger used for run diagnostics
func WithLogger(l *slog.Logger) Applier {
	return func(opts *Options) {
		if l != nil {
			opts.Logger = l
		}
	}
}

// WithStepTimeout bounds the time a single step may take to render
func WithStepTimeout(d time.Duration) Applier {
	return func(opts *Options) {
		opts.StepTimeout = d
	}
}

// Recipes returns the registry runs are started from
func (m *Manager) Recipes() *recipes.Registry {
	return m.recipes
}

// Describe returns a recipe and its steps as a run would see them
func (m *Manager) Describe(
	ctx context.Context, id api.RecipeID,
) (*api.RecipeInfo, error) {
	rec, err := m.recipes.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.Info(ctx, m.portal)
}

// Start creates a session for a fresh run of the recipe
func (m *Manager) Start(
	ctx context.Context, id api.RecipeID,
) (*api.Session, error) {
	def, err := m.recipes.Build(ctx, id, m.portal)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &api.Session{
		ID:        api.SessionID(uuid.NewString()),
		Recipe:    id,
		Status:    api.SessionActive,
		CreatedAt: now,
		UpdatedAt: now,
		Progress: api.Progress{
			State: api.StepState{},
			Total: def.Len(),
		},
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("Session started",
		log.SessionID(s.ID),
		log.RecipeID(id))
	return s, nil
}

// Get returns a session
func (m *Manager) Get(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	return m.store.Get(ctx, id)
}

// Next attempts the session's current step and stores the result. Stuck
// and failed outcomes leave the run where it was
func (m *Manager) Next(
	ctx context.Context, id api.SessionID,
) (*api.Outcome, *api.Session, error) {
	h := m.hosts(id)
	logger := m.logger.With(log.SessionID(id))

	var out *api.Outcome
	s, err := m.store.Update(ctx, id, func(s *api.Session) error {
		if s.Status == api.SessionCompleted {
			return fmt.Errorf("%w: %s", ErrRunComplete, id)
		}

		def, err := m.recipes.Build(ctx, s.Recipe, m.portal)
		if err != nil {
			return err
		}
		r, err := workflow.NewRunner(def, h,
			workflow.WithPortal(m.portal),
			workflow.WithLogger(logger),
			workflow.WithProgress(s.Progress),
		)
		if err != nil {
			return err
		}

		stepCtx, cancel := m.stepContext(ctx)
		defer cancel()
		res, err := r.Next(stepCtx)
		if err != nil {
			return err
		}

		out = redactOutcome(res)
		s.Progress = r.Progress()
		s.LastOutcome = out
		s.UpdatedAt = time.Now()
		if r.Done() {
			s.Status = api.SessionCompleted
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRunComplete) && !errors.Is(err, ErrNotFound) {
			logger.Error("Step attempt failed", log.Error(err))
		}
		return nil, nil, err
	}

	h.Recorded(ctx, out, s.Progress)
	logger.Info("Step attempted",
		log.StepID(out.StepID),
		log.Status(out.Status))
	return out, s, nil
}

// Delete abandons a run
func (m *Manager) Delete(ctx context.Context, id api.SessionID) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("Session deleted", log.SessionID(id))
	return nil
}

func (m *Manager) stepContext(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

func redactOutcome(out *api.Outcome) *api.Outcome {
	res := *out
	if out.Directive != nil && out.Directive.Endpoint != nil {
		call := *out.Directive.Endpoint
		call.Args = host.Redact(call.Args)
		dir := *out.Directive
		dir.Endpoint = &call
		res.Directive = &dir
	}
	return &res
}
