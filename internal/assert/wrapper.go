package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/walkthrough/internal/config"
	"github.com/kode4food/walkthrough/pkg/api"
)

// Wrapper wraps testify assertions with walkthrough-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus walkthrough-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// ContentDirective asserts that a directive displays the expected markup
func (w *Wrapper) ContentDirective(dir *api.Directive, markup string) {
	w.Helper()
	if !w.NotNil(dir) {
		return
	}
	w.NoError(dir.Validate())
	if w.True(dir.IsContent(), "expected content directive, got %s", dir.Type) {
		w.Equal(markup, dir.Content.Markup)
	}
}

// BlockedDirective asserts that a directive is degraded content naming the
// missing requirements
func (w *Wrapper) BlockedDirective(
	dir *api.Directive, missing ...api.Requirement,
) {
	w.Helper()
	if !w.NotNil(dir) {
		return
	}
	if w.True(dir.Blocked(), "expected blocked directive") {
		w.Equal(missing, dir.Content.Missing)
	}
}

// EndpointDirective asserts that a directive calls the expected endpoint
// and returns the call for further checks
func (w *Wrapper) EndpointDirective(
	dir *api.Directive, permalink string,
) *api.EndpointCall {
	w.Helper()
	if !w.NotNil(dir) {
		return nil
	}
	w.NoError(dir.Validate())
	if !w.True(dir.IsEndpoint(), "expected endpoint directive, got %s", dir.Type) {
		return nil
	}
	w.Equal(permalink, dir.Endpoint.Permalink)
	w.NotNil(dir.Endpoint.Verify, "endpoint call should verify responses")
	return dir.Endpoint
}

// OutcomeStatus asserts the status of a step attempt
func (w *Wrapper) OutcomeStatus(out *api.Outcome, expected api.OutcomeStatus) {
	w.Helper()
	if w.NotNil(out) {
		w.Equal(expected, out.Status, "step %s: %s", out.StepID, out.Error)
	}
}

// SessionAt asserts a session's status and position
func (w *Wrapper) SessionAt(
	s *api.Session, status api.SessionStatus, next int,
) {
	w.Helper()
	if w.NotNil(s) {
		w.Equal(status, s.Status)
		w.Equal(next, s.Progress.Next)
	}
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= config.MaxTCPPort)
	w.True(cfg.StepTimeout > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
