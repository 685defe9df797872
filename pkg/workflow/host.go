package workflow

import (
	"context"
	"fmt"

	"github.com/kode4food/walkthrough/pkg/api"
)

// Host renders directives on behalf of the sequencer. ShowEndpoint performs
// the API call, applies the call's verify function, and reports the outcome
// in the RenderResult. Errors are reserved for failures to render at all
type Host interface {
	ShowContent(context.Context, *api.ContentDirective) (*api.RenderResult, error)
	ShowEndpoint(context.Context, *api.EndpointCall) (*api.RenderResult, error)
}

// Render dispatches a directive to the matching Host method
func Render(
	ctx context.Context, host Host, dir *api.Directive,
) (*api.RenderResult, error) {
	if err := dir.Validate(); err != nil {
		return nil, err
	}
	switch dir.Type {
	case api.DirectiveContent:
		return host.ShowContent(ctx, dir.Content)
	case api.DirectiveEndpoint:
		return host.ShowEndpoint(ctx, dir.Endpoint)
	default:
		return nil, fmt.Errorf("%w: %q", api.ErrDirectiveInvalid, dir.Type)
	}
}

type stepKey struct{}

// WithStep returns a context carrying the ID of the step being rendered
func WithStep(ctx context.Context, id api.StepID) context.Context {
	return context.WithValue(ctx, stepKey{}, id)
}

// StepFromContext returns the ID of the step being rendered, if any
func StepFromContext(ctx context.Context) (api.StepID, bool) {
	id, ok := ctx.Value(stepKey{}).(api.StepID)
	return id, ok
}
