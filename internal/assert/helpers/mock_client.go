package helpers

import (
	"context"
	"maps"
	"sync"

	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/client"
	"github.com/kode4food/walkthrough/internal/recipes/balance"
	"github.com/kode4food/walkthrough/pkg/api"
)

// MockClient is a simple mock implementation of client.Client for testing.
// Responses and errors are keyed by endpoint permalink
type MockClient struct {
	responses map[string]*api.Response
	errors    map[string]error
	invoked   []string
	args      map[string][]api.RequestArgs
	mu        sync.Mutex
}

var _ client.Client = (*MockClient)(nil)

// NewMockClient creates a mock client that answers 200 with empty data
// unless a response or error is configured for a permalink
func NewMockClient() *MockClient {
	return &MockClient{
		responses: map[string]*api.Response{},
		errors:    map[string]error{},
		invoked:   []string{},
		args:      map[string][]api.RequestArgs{},
	}
}

// NewBalanceClient creates a mock client that answers every step of the
// balance check recipe successfully
func NewBalanceClient() *MockClient {
	c := NewMockClient()
	c.SetOK(balance.PermalinkToken, api.Args{"access_token": "client-tok"})
	c.SetOK(balance.PermalinkUser, api.Args{"user_id": "u1"})
	c.SetOK(balance.PermalinkDelegate, api.Args{"code": "c0de"})
	c.SetOK(balance.PermalinkReport, api.Args{"id": "c0de"})
	return c
}

// Invoke records the invocation and returns the configured response or error
func (c *MockClient) Invoke(
	_ context.Context, ep *catalog.Endpoint, args *api.RequestArgs,
) (*api.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invoked = append(c.invoked, ep.Permalink)
	if args != nil {
		c.args[ep.Permalink] = append(c.args[ep.Permalink], *args)
	}

	if err, ok := c.errors[ep.Permalink]; ok {
		return nil, err
	}

	if resp, ok := c.responses[ep.Permalink]; ok {
		res := *resp
		res.Data = maps.Clone(resp.Data)
		return &res, nil
	}

	return &api.Response{StatusCode: 200, Data: api.Args{}}, nil
}

// SetResponse configures the mock to return a specific response
func (c *MockClient) SetResponse(permalink string, resp *api.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[permalink] = resp
}

// SetOK configures the mock to return 200 with the given data
func (c *MockClient) SetOK(permalink string, data api.Args) {
	c.SetResponse(permalink, &api.Response{StatusCode: 200, Data: data})
}

// SetStatus configures the mock to return an empty response with the given
// status code
func (c *MockClient) SetStatus(permalink string, status int) {
	c.SetResponse(permalink, &api.Response{StatusCode: status})
}

// SetError configures the mock to fail requests to a permalink
func (c *MockClient) SetError(permalink string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[permalink] = err
}

// ClearError removes any configured error for a permalink
func (c *MockClient) ClearError(permalink string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.errors, permalink)
}

// GetInvocations returns the permalinks that were invoked, in order
func (c *MockClient) GetInvocations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	res := make([]string, len(c.invoked))
	copy(res, c.invoked)
	return res
}

// WasInvoked reports whether a permalink was invoked at least once
func (c *MockClient) WasInvoked(permalink string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.args[permalink]
	return ok
}

// LastArgs returns the arguments of the most recent call to a permalink
func (c *MockClient) LastArgs(permalink string) (api.RequestArgs, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	calls := c.args[permalink]
	if len(calls) == 0 {
		return api.RequestArgs{}, false
	}
	return calls[len(calls)-1], true
}
