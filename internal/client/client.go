package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
)

type (
	// Client performs the HTTP request an endpoint directive describes
	Client interface {
		Invoke(
			context.Context, *catalog.Endpoint, *api.RequestArgs,
		) (*api.Response, error)
	}

	// HTTPClient is a Client backed by net/http
	HTTPClient struct {
		httpClient *http.Client
		logger     *slog.Logger
	}
)

const UserAgent = "Walkthrough/1.0"

var (
	ErrRequestFailed = errors.New("request failed")
	ErrEncodeRequest = errors.New("failed to encode request")
	ErrNilEndpoint   = errors.New("endpoint is nil")
)

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client whose requests time out after timeout
func NewHTTPClient(timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Invoke performs the request. Any HTTP status is returned as a Response;
// only transport and encoding failures are errors
func (c *HTTPClient) Invoke(
	ctx context.Context, ep *catalog.Endpoint, args *api.RequestArgs,
) (*api.Response, error) {
	if ep == nil {
		return nil, ErrNilEndpoint
	}
	if args == nil {
		args = &api.RequestArgs{}
	}

	httpReq, err := buildRequest(ctx, ep, args)
	if err != nil {
		c.logger.Error("Failed to create HTTP request",
			log.Permalink(ep.Permalink),
			log.Error(err))
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)

	if err != nil {
		c.logger.Error("HTTP request failed",
			log.Permalink(ep.Permalink),
			slog.Duration("duration", dur),
			log.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read response body",
			log.Permalink(ep.Permalink),
			log.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	c.logger.Debug("HTTP request completed",
		log.Permalink(ep.Permalink),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", dur))

	return &api.Response{
		StatusCode: resp.StatusCode,
		Header:     flattenHeader(resp.Header),
		Body:       string(respBody),
		Data:       parseData(respBody),
	}, nil
}

func buildRequest(
	ctx context.Context, ep *catalog.Endpoint, args *api.RequestArgs,
) (*http.Request, error) {
	target, rest, err := ep.URL(args.Params)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	var contentType string
	switch {
	case ep.IsForm():
		body = strings.NewReader(encodeValues(rest))
		contentType = catalog.ContentTypeForm
	default:
		if len(rest) > 0 {
			target += "?" + encodeValues(rest)
		}
		if args.Body != nil {
			data, err := json.Marshal(args.Body)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrEncodeRequest, err)
			}
			body = bytes.NewReader(data)
			contentType = catalog.ContentTypeJSON
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, ep.Method, target, body)
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", UserAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for k, v := range args.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func encodeValues(args api.Args) string {
	vals := url.Values{}
	for k, v := range args.Strings() {
		vals.Set(k, v)
	}
	return vals.Encode()
}

func flattenHeader(h http.Header) map[string]string {
	res := make(map[string]string, len(h))
	for k, v := range h {
		res[k] = strings.Join(v, ", ")
	}
	return res
}

func parseData(body []byte) api.Args {
	res := api.Args{}
	if !gjson.ValidBytes(body) {
		return res
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return res
	}
	parsed.ForEach(func(key, value gjson.Result) bool {
		res[api.Name(key.String())] = value.Value()
		return true
	})
	return res
}
