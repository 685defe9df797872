package host

import (
	"context"
	"log/slog"
	"maps"
	"strings"

	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/client"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type (
	// Host performs endpoint directives over HTTP
	Host struct {
		catalog  *catalog.Catalog
		client   client.Client
		observer Observer
		logger   *slog.Logger
		session  api.SessionID
	}

	// Observer receives the events a Host raises while rendering
	Observer interface {
		Publish(api.Event)
	}

	// ObserverFunc adapts a function to the Observer interface
	ObserverFunc func(api.Event)

	// Options configures a Host
	Options struct {
		Observer Observer
		Logger   *slog.Logger
		Session  api.SessionID
	}

	// Applier mutates Options during Host setup
	Applier func(*Options)
)

// Redacted replaces secret values in published events
const Redacted = "[redacted]"

var (
	secretHeaders = []string{"Authorization"}
	secretFields  = []api.Name{"client_secret"}
)

var _ workflow.Host = (*Host)(nil)

// New creates a Host that resolves permalinks against cat and performs
// requests with cl
func New(cat *catalog.Catalog, cl client.Client, apps ...Applier) *Host {
	opts := &Options{
		Observer: ObserverFunc(func(api.Event) {}),
		Logger:   slog.Default(),
	}
	for _, app := range apps {
		app(opts)
	}
	return &Host{
		catalog:  cat,
		client:   cl,
		observer: opts.Observer,
		logger:   opts.Logger,
		session:  opts.Session,
	}
}

// WithObserver sets the Observer events are published to
func WithObserver(o Observer) Applier {
	return func(opts *Options) {
		if o != nil {
			opts.Observer = o
		}
	}
}

// WithLogger sets the logger used for diagnostics
func WithLogger(l *slog.Logger) Applier {
	return func(opts *Options) {
		if l != nil {
			opts.Logger = l
		}
	}
}

// WithSession stamps published events with a session ID
func WithSession(id api.SessionID) Applier {
	return func(opts *Options) {
		opts.Session = id
	}
}

// ShowContent publishes the content. Content always renders successfully
func (h *Host) ShowContent(
	ctx context.Context, c *api.ContentDirective,
) (*api.RenderResult, error) {
	h.publish(ctx, api.EventTypeContentShown, &api.ContentShownEvent{
		Markup:  c.Markup,
		Missing: c.Missing,
	})
	return &api.RenderResult{
		Data:     api.Args{},
		Verified: true,
	}, nil
}

// ShowEndpoint performs the call and applies its verify function. A
// permalink the catalog cannot resolve is an error. A request that never
// produced a response renders as unverified, so the step can be retried
func (h *Host) ShowEndpoint(
	ctx context.Context, call *api.EndpointCall,
) (*api.RenderResult, error) {
	ep, err := h.catalog.Resolve(call.Permalink)
	if err != nil {
		return nil, err
	}
	target, _, err := ep.URL(call.Args.Params)
	if err != nil {
		return nil, err
	}

	h.publish(ctx, api.EventTypeEndpointCalled, &api.EndpointCalledEvent{
		Permalink:   call.Permalink,
		Description: call.Description,
		Method:      ep.Method,
		URL:         target,
		Args:        Redact(call.Args),
	})

	resp, err := h.client.Invoke(ctx, ep, &call.Args)
	if err != nil {
		h.logger.Warn("Endpoint call failed",
			log.Permalink(call.Permalink),
			log.Error(err))
		res := &api.RenderResult{
			Data:  api.Args{},
			Error: err.Error(),
		}
		h.publish(ctx, api.EventTypeResponseReceived,
			&api.ResponseReceivedEvent{Error: res.Error},
		)
		return res, nil
	}

	ok, reason := workflow.Verify(call, resp)
	h.publish(ctx, api.EventTypeResponseReceived, &api.ResponseReceivedEvent{
		Response: resp,
		Verified: ok,
		Error:    reason,
	})
	if !ok {
		h.logger.Info("Endpoint response rejected",
			log.Permalink(call.Permalink),
			slog.Int("status_code", resp.StatusCode),
			log.ErrorString(reason))
	}

	return &api.RenderResult{
		Data:     resp.Data,
		Response: resp,
		Verified: ok,
		Error:    reason,
	}, nil
}

// Recorded publishes what a step attempt did to the run: a recorded step,
// and the completion of the run once the last step is recorded
func (h *Host) Recorded(
	ctx context.Context, out *api.Outcome, p api.Progress,
) {
	if !out.Advanced() {
		return
	}
	ctx = workflow.WithStep(ctx, out.StepID)
	h.publish(ctx, api.EventTypeStepRecorded, &api.StepRecordedEvent{
		Result: p.State[out.StepID],
		Next:   p.Next,
		Total:  p.Total,
	})
	if p.Done() {
		h.publish(ctx, api.EventTypeRunCompleted, &api.RunCompletedEvent{
			Steps: p.State.Steps(),
		})
	}
}

func (h *Host) publish(ctx context.Context, typ api.EventType, data any) {
	step, _ := workflow.StepFromContext(ctx)
	ev := api.NewEvent(typ, step, data)
	ev.SessionID = h.session
	h.observer.Publish(ev)
}

// Redact returns a copy of the request arguments with secret headers and
// fields masked
func Redact(args api.RequestArgs) api.RequestArgs {
	return api.RequestArgs{
		Headers: redactHeaders(args.Headers),
		Body:    redactFields(args.Body),
		Params:  redactFields(args.Params),
	}
}

// Publish implements Observer
func (f ObserverFunc) Publish(ev api.Event) {
	f(ev)
}

func redactHeaders(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	res := maps.Clone(h)
	for k := range res {
		for _, secret := range secretHeaders {
			if strings.EqualFold(k, secret) {
				res[k] = Redacted
			}
		}
	}
	return res
}

func redactFields(a api.Args) api.Args {
	if a == nil {
		return nil
	}
	res := maps.Clone(a)
	for _, secret := range secretFields {
		if _, ok := res[secret]; ok {
			res[secret] = Redacted
		}
	}
	return res
}
