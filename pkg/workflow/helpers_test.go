package workflow_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type stubHost struct {
	responses map[string][]*api.Response
	errors    map[string]error
	contents  []string
	steps     []api.StepID
	calls     []string
	active    atomic.Int32
	overlap   atomic.Bool
	mu        sync.Mutex
}

func newStubHost() *stubHost {
	return &stubHost{
		responses: map[string][]*api.Response{},
		errors:    map[string]error{},
	}
}

func (h *stubHost) respond(permalink string, resps ...*api.Response) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses[permalink] = append(h.responses[permalink], resps...)
}

func (h *stubHost) ShowContent(
	ctx context.Context, c *api.ContentDirective,
) (*api.RenderResult, error) {
	defer h.enter()()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.track(ctx)
	h.contents = append(h.contents, c.Markup)
	return &api.RenderResult{Data: api.Args{}, Verified: true}, nil
}

func (h *stubHost) ShowEndpoint(
	ctx context.Context, call *api.EndpointCall,
) (*api.RenderResult, error) {
	defer h.enter()()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.track(ctx)
	h.calls = append(h.calls, call.Permalink)
	if err, ok := h.errors[call.Permalink]; ok {
		return nil, err
	}

	resp := &api.Response{StatusCode: 200, Data: api.Args{}}
	if queued := h.responses[call.Permalink]; len(queued) > 0 {
		resp = queued[0]
		h.responses[call.Permalink] = queued[1:]
	}

	ok, reason := workflow.Verify(call, resp)
	return &api.RenderResult{
		Data:     resp.Data,
		Response: resp,
		Verified: ok,
		Error:    reason,
	}, nil
}

func (h *stubHost) enter() func() {
	if h.active.Add(1) > 1 {
		h.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	return func() { h.active.Add(-1) }
}

func (h *stubHost) track(ctx context.Context) {
	if id, ok := workflow.StepFromContext(ctx); ok {
		h.steps = append(h.steps, id)
	}
}

func tokenStep(*workflow.StepContext) *api.Directive {
	return workflow.Endpoint(&api.EndpointCall{
		Permalink:   "$e/auth/token",
		Description: "get a token",
		Verify:      workflow.ExpectOK("no token"),
	})
}

func useTokenStep(ctx *workflow.StepContext) *api.Directive {
	req := api.Require("token", "access_token")
	found, missing := ctx.Resolve(req)
	if len(missing) > 0 {
		return workflow.Missing("missing token", missing)
	}
	return workflow.Endpoint(&api.EndpointCall{
		Permalink: "$e/data/get",
		Args: api.RequestArgs{
			Headers: map[string]string{
				"Authorization": "Bearer " + found.String(req),
			},
		},
		Verify: workflow.ExpectOK("no data"),
	})
}

func introStep(*workflow.StepContext) *api.Directive {
	return workflow.Content("# Welcome")
}

func testDefinition() *workflow.Definition {
	def, err := workflow.NewBuilder().
		Step("intro", "Intro", introStep).
		Step("token", "Token", tokenStep).
		Step("data", "Data", useTokenStep).
		Build()
	if err != nil {
		panic(err)
	}
	return def
}
