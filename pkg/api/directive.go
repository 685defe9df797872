package api

import (
	"errors"
	"fmt"
)

type (
	// DirectiveType discriminates the variants of a Directive
	DirectiveType string

	// Directive tells the host what a step wants displayed: either static
	// content or a live API call
	Directive struct {
		Content  *ContentDirective `json:"content,omitempty"`
		Endpoint *EndpointCall     `json:"endpoint,omitempty"`
		Type     DirectiveType     `json:"type"`
	}

	// ContentDirective carries markup to display. A non-empty Missing list
	// marks content produced because upstream data was absent
	ContentDirective struct {
		Markup  string        `json:"markup"`
		Missing []Requirement `json:"missing,omitempty"`
	}

	// EndpointCall describes an API call the host should perform on the
	// user's behalf, and how to decide whether its response counts
	EndpointCall struct {
		Verify      VerifyFunc  `json:"-"`
		Permalink   string      `json:"permalink"`
		Description string      `json:"description"`
		Args        RequestArgs `json:"args"`
	}

	// RequestArgs are the values the host substitutes into the request.
	// Params fill path placeholders first; the remainder become form fields
	// or query parameters depending on the endpoint's content type
	RequestArgs struct {
		Headers map[string]string `json:"headers,omitempty"`
		Body    Args              `json:"body,omitempty"`
		Params  Args              `json:"params,omitempty"`
	}

	// VerifyFunc decides whether a response allows the run to advance. When
	// it returns false it should report why through setError
	VerifyFunc func(resp *Response, setError func(string)) bool

	// Response is the envelope of a performed API call
	Response struct {
		Header     map[string]string `json:"header,omitempty"`
		Data       Args              `json:"data,omitempty"`
		Body       string            `json:"body,omitempty"`
		StatusCode int               `json:"status_code"`
	}

	// RenderResult is what the host reports back after rendering a directive
	RenderResult struct {
		Data     Args      `json:"data,omitempty"`
		Response *Response `json:"response,omitempty"`
		Error    string    `json:"error,omitempty"`
		Verified bool      `json:"verified"`
	}
)

const (
	DirectiveContent  DirectiveType = "content"
	DirectiveEndpoint DirectiveType = "endpoint"
)

var (
	ErrDirectiveEmpty   = errors.New("directive has no payload")
	ErrDirectiveInvalid = errors.New("invalid directive type")
)

// Validate checks that the directive payload matches its type
func (d *Directive) Validate() error {
	switch d.Type {
	case DirectiveContent:
		if d.Content == nil {
			return fmt.Errorf("%w: %s", ErrDirectiveEmpty, d.Type)
		}
	case DirectiveEndpoint:
		if d.Endpoint == nil {
			return fmt.Errorf("%w: %s", ErrDirectiveEmpty, d.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrDirectiveInvalid, d.Type)
	}
	return nil
}

// IsContent reports whether the directive displays static content
func (d *Directive) IsContent() bool {
	return d.Type == DirectiveContent && d.Content != nil
}

// IsEndpoint reports whether the directive describes an API call
func (d *Directive) IsEndpoint() bool {
	return d.Type == DirectiveEndpoint && d.Endpoint != nil
}

// Blocked reports whether the directive was degraded due to missing
// upstream data. A blocked step is not recorded and does not advance
func (d *Directive) Blocked() bool {
	return d.IsContent() && len(d.Content.Missing) > 0
}

// Record converts a verified render result into the entry stored in
// StepState
func (r *RenderResult) Record() *StepResult {
	res := &StepResult{Data: Args{}}
	if r == nil {
		return res
	}
	for k, v := range r.Data {
		res.Data[k] = v
	}
	if r.Response != nil {
		res.Status = r.Response.StatusCode
	}
	return res
}
