package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/walkthrough/internal/host"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type (
	// terminal prints run events as a readable walkthrough
	terminal struct {
		out io.Writer
		mu  sync.Mutex
	}

	requestPreview struct {
		Method  string            `yaml:"method"`
		URL     string            `yaml:"url"`
		Headers map[string]string `yaml:"headers,omitempty"`
		Params  map[string]any    `yaml:"params,omitempty"`
		Body    map[string]any    `yaml:"body,omitempty"`
	}

	responsePreview struct {
		Status   int            `yaml:"status"`
		Verified bool           `yaml:"verified"`
		Error    string         `yaml:"error,omitempty"`
		Data     map[string]any `yaml:"data,omitempty"`
	}
)

const rule = "────────────────────────────────────────"

var _ host.Observer = (*terminal)(nil)

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

// Publish implements host.Observer
func (t *terminal) Publish(ev api.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch data := ev.Data.(type) {
	case *api.ContentShownEvent:
		t.printf("\n%s\n%s\n%s\n", rule, ev.StepID, rule)
		t.printf("%s\n", strings.TrimSpace(data.Markup))
		for _, req := range data.Missing {
			t.printf("  missing: %s\n", req)
		}

	case *api.EndpointCalledEvent:
		t.printf("\n%s\n%s: %s\n%s\n", rule, ev.StepID, data.Description, rule)
		t.yaml("request", requestPreview{
			Method:  data.Method,
			URL:     data.URL,
			Headers: data.Args.Headers,
			Params:  plain(data.Args.Params),
			Body:    plain(data.Args.Body),
		})

	case *api.ResponseReceivedEvent:
		res := responsePreview{
			Verified: data.Verified,
			Error:    data.Error,
		}
		if data.Response != nil {
			res.Status = data.Response.StatusCode
			res.Data = plain(data.Response.Data)
		}
		t.yaml("response", res)

	case *api.StepRecordedEvent:
		t.printf("✓ %s recorded (%d/%d)\n", ev.StepID, data.Next, data.Total)

	case *api.RunCompletedEvent:
		t.printf("\n%s\nRun completed: %d steps recorded\n", rule,
			len(data.Steps))
	}
}

func (t *terminal) prompt(spec workflow.StepSpec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("\nPress Enter to run %s (%s)... ", spec.ID, spec.Name)
}

func (t *terminal) outcome(out *api.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.printf("✗ %s %s", out.StepID, out.Status)
	if out.Error != "" {
		t.printf(": %s", out.Error)
	}
	t.printf("\n")
}

func (t *terminal) yaml(label string, v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		t.printf("%s: <%v>\n", label, err)
		return
	}
	t.printf("%s:\n", label)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for _, line := range lines {
		t.printf("  %s\n", line)
	}
}

func (t *terminal) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format, args...)
}

func plain(a api.Args) map[string]any {
	if len(a) == 0 {
		return nil
	}
	res := make(map[string]any, len(a))
	for k, v := range a {
		res[string(k)] = v
	}
	return res
}
