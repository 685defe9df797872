package workflow

import (
	"net/http"

	"github.com/kode4food/walkthrough/pkg/api"
)

// DefaultVerifyError is reported when a verify function rejects a response
// without saying why
const DefaultVerifyError = "response verification failed"

// Content creates a directive that displays markup
func Content(markup string) *api.Directive {
	return &api.Directive{
		Type:    api.DirectiveContent,
		Content: &api.ContentDirective{Markup: markup},
	}
}

// Missing creates the degraded content directive a step returns when the
// data it needs from earlier steps is absent
func Missing(markup string, missing []api.Requirement) *api.Directive {
	return &api.Directive{
		Type: api.DirectiveContent,
		Content: &api.ContentDirective{
			Markup:  markup,
			Missing: missing,
		},
	}
}

// Endpoint creates a directive asking the host to perform an API call
func Endpoint(call *api.EndpointCall) *api.Directive {
	return &api.Directive{
		Type:     api.DirectiveEndpoint,
		Endpoint: call,
	}
}

// ExpectStatus builds a verify function that accepts a response only when
// its status code equals code, reporting message otherwise
func ExpectStatus(code int, message string) api.VerifyFunc {
	return func(resp *api.Response, setError func(string)) bool {
		if resp == nil || resp.StatusCode != code {
			setError(message)
			return false
		}
		return true
	}
}

// ExpectOK is ExpectStatus for 200 OK
func ExpectOK(message string) api.VerifyFunc {
	return ExpectStatus(http.StatusOK, message)
}

// Verify applies the call's verify function to a response. A call without
// a verify function accepts any response. A rejection always carries a
// non-empty reason
func Verify(call *api.EndpointCall, resp *api.Response) (bool, string) {
	if call == nil || call.Verify == nil {
		return true, ""
	}
	var reason string
	ok := call.Verify(resp, func(msg string) {
		reason = msg
	})
	if ok {
		return true, ""
	}
	if reason == "" {
		reason = DefaultVerifyError
	}
	return false, reason
}
