package catalog

import (
	"cmp"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// Catalog indexes the operations of an OpenAPI document by permalink
	Catalog struct {
		endpoints map[string]*Endpoint
		baseURL   string
	}

	// Endpoint is a resolved API operation
	Endpoint struct {
		Permalink   string `json:"permalink"`
		Method      string `json:"method"`
		Path        string `json:"path"`
		BaseURL     string `json:"base_url"`
		ContentType string `json:"content_type,omitempty"`
		Summary     string `json:"summary,omitempty"`
	}

	// Options configures how a Catalog is loaded
	Options struct {
		BaseURL string
	}

	// Applier mutates Options during loading
	Applier func(*Options)
)

const (
	PermalinkPrefix = "$e/"

	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

var (
	ErrUnknownEndpoint  = errors.New("unknown endpoint")
	ErrBadPermalink     = errors.New("malformed endpoint permalink")
	ErrMissingPathParam = errors.New("missing path parameter")
	ErrInvalidDocument  = errors.New("invalid OpenAPI document")
	ErrNoServer         = errors.New("OpenAPI document declares no server")
)

//go:embed specs/tink.yaml
var tinkSpec []byte

// WithBaseURL overrides the server declared by the document
func WithBaseURL(u string) Applier {
	return func(o *Options) {
		if u != "" {
			o.BaseURL = strings.TrimRight(u, "/")
		}
	}
}

// Tink loads the bundled Tink API document
func Tink(ctx context.Context, apps ...Applier) (*Catalog, error) {
	return Load(ctx, tinkSpec, apps...)
}

// Load parses and validates an OpenAPI document, indexing every tagged
// operation under <tag>/<operationId>
func Load(ctx context.Context, data []byte, apps ...Applier) (*Catalog, error) {
	opts := &Options{}
	for _, app := range apps {
		app(opts)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	base := opts.BaseURL
	if base == "" {
		if len(doc.Servers) == 0 || doc.Servers[0] == nil {
			return nil, ErrNoServer
		}
		base = strings.TrimRight(doc.Servers[0].URL, "/")
	}

	res := &Catalog{
		endpoints: map[string]*Endpoint{},
		baseURL:   base,
	}
	for path, item := range doc.Paths.Map() {
		for method, op := range item.Operations() {
			if op.OperationID == "" || len(op.Tags) == 0 {
				continue
			}
			key := op.Tags[0] + "/" + op.OperationID
			res.endpoints[key] = &Endpoint{
				Permalink:   PermalinkPrefix + escapeKey(op.Tags[0], op.OperationID),
				Method:      method,
				Path:        path,
				BaseURL:     base,
				ContentType: contentType(op),
				Summary:     op.Summary,
			}
		}
	}
	return res, nil
}

// Resolve returns the endpoint a permalink refers to
func (c *Catalog) Resolve(permalink string) (*Endpoint, error) {
	key, err := parsePermalink(permalink)
	if err != nil {
		return nil, err
	}
	ep, ok := c.endpoints[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, permalink)
	}
	res := *ep
	return &res, nil
}

// Endpoints returns every indexed endpoint, sorted by permalink
func (c *Catalog) Endpoints() []*Endpoint {
	res := make([]*Endpoint, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		cpy := *ep
		res = append(res, &cpy)
	}
	slices.SortFunc(res, func(a, b *Endpoint) int {
		return cmp.Compare(a.Permalink, b.Permalink)
	})
	return res
}

// BaseURL returns the server every endpoint is resolved against
func (c *Catalog) BaseURL() string {
	return c.baseURL
}

// URL builds the request URL, substituting {name} placeholders in the path
// from params. Params not consumed by the path are returned
func (e *Endpoint) URL(params api.Args) (string, api.Args, error) {
	rest := api.Args{}
	maps.Copy(rest, params)

	var sb strings.Builder
	path := e.Path
	for {
		start := strings.IndexByte(path, '{')
		if start < 0 {
			sb.WriteString(path)
			break
		}
		end := strings.IndexByte(path[start:], '}')
		if end < 0 {
			sb.WriteString(path)
			break
		}
		end += start

		name := api.Name(path[start+1 : end])
		if !rest.Present(name) {
			return "", nil, fmt.Errorf("%w: %s", ErrMissingPathParam, name)
		}
		sb.WriteString(path[:start])
		sb.WriteString(url.PathEscape(rest.Strings()[string(name)]))
		delete(rest, name)
		path = path[end+1:]
	}
	return e.BaseURL + sb.String(), rest, nil
}

// IsForm reports whether the endpoint takes a form-encoded body
func (e *Endpoint) IsForm() bool {
	return e.ContentType == ContentTypeForm
}

func parsePermalink(permalink string) (string, error) {
	raw, ok := strings.CutPrefix(permalink, PermalinkPrefix)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBadPermalink, permalink)
	}
	key, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadPermalink, permalink)
	}
	i := strings.LastIndexByte(key, '/')
	if i <= 0 || i == len(key)-1 {
		return "", fmt.Errorf("%w: %s", ErrBadPermalink, permalink)
	}
	return key, nil
}

func escapeKey(tag, opID string) string {
	return url.PathEscape(tag) + "/" + url.PathEscape(opID)
}

func contentType(op *openapi3.Operation) string {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return ""
	}
	content := op.RequestBody.Value.Content
	if content.Get(ContentTypeForm) != nil {
		return ContentTypeForm
	}
	if content.Get(ContentTypeJSON) != nil {
		return ContentTypeJSON
	}
	if keys := slices.Sorted(maps.Keys(content)); len(keys) > 0 {
		return keys[0]
	}
	return ""
}
