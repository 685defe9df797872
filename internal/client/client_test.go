package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/client"
	"github.com/kode4food/walkthrough/pkg/api"
)

func formEndpoint(base string) *catalog.Endpoint {
	return &catalog.Endpoint{
		Permalink:   "$e/General.OAuth/token",
		Method:      http.MethodPost,
		Path:        "/api/v1/oauth/token",
		BaseURL:     base,
		ContentType: catalog.ContentTypeForm,
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := client.NewHTTPClient(30*time.Second, nil)
	assert.NotNil(t, c)
}

func TestFormRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/oauth/token", r.URL.Path)
			assert.Equal(t,
				catalog.ContentTypeForm, r.Header.Get("Content-Type"),
			)
			assert.Equal(t, client.UserAgent, r.Header.Get("User-Agent"))

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "a,b", r.PostForm.Get("scope"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(
				`{"access_token":"tok","expires_in":3600}`,
			))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5*time.Second, nil)
	resp, err := cl.Invoke(context.Background(), formEndpoint(server.URL),
		&api.RequestArgs{
			Params: api.Args{
				"grant_type": "client_credentials",
				"scope":      "a,b",
			},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tok", resp.Data["access_token"])
	assert.Equal(t, float64(3600), resp.Data["expires_in"])
	assert.Equal(t, "application/json", resp.Header["Content-Type"])
}

func TestJSONRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			assert.Equal(t, "1", r.URL.Query().Get("page"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "US", body["market"])
			assert.Contains(t, body, "external_user_id")
			assert.Nil(t, body["external_user_id"])

			_, _ = w.Write([]byte(`{"user_id":"u1"}`))
		},
	))
	defer server.Close()

	ep := &catalog.Endpoint{
		Permalink:   "$e/General.User/createUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/user/create",
		BaseURL:     server.URL,
		ContentType: catalog.ContentTypeJSON,
	}

	cl := client.NewHTTPClient(5*time.Second, nil)
	resp, err := cl.Invoke(context.Background(), ep, &api.RequestArgs{
		Headers: map[string]string{"Authorization": "Bearer tok"},
		Body: api.Args{
			"external_user_id": nil,
			"market":           "US",
		},
		Params: api.Args{"page": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.Data["user_id"])
}

func TestPathParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t,
				"/data/v1/account-verification-reports/r1", r.URL.Path,
			)
			assert.Empty(t, r.URL.RawQuery)
			body, _ := io.ReadAll(r.Body)
			assert.Empty(t, body)
			_, _ = w.Write([]byte(`{"id":"r1"}`))
		},
	))
	defer server.Close()

	ep := &catalog.Endpoint{
		Method:  http.MethodGet,
		Path:    "/data/v1/account-verification-reports/{id}",
		BaseURL: server.URL,
	}

	cl := client.NewHTTPClient(5*time.Second, nil)
	resp, err := cl.Invoke(context.Background(), ep, &api.RequestArgs{
		Params: api.Args{"id": "r1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.Data["id"])

	_, err = cl.Invoke(context.Background(), ep, nil)
	assert.ErrorIs(t, err, catalog.ErrMissingPathParam)
}

func TestErrorStatusIsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("unauthorized"))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5*time.Second, nil)
	resp, err := cl.Invoke(
		context.Background(), formEndpoint(server.URL), nil,
	)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", resp.Body)
	assert.Empty(t, resp.Data)
}

func TestNonObjectBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[1,2,3]`))
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(5*time.Second, nil)
	resp, err := cl.Invoke(
		context.Background(), formEndpoint(server.URL), nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", resp.Body)
	assert.Empty(t, resp.Data)
}

func TestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		},
	))
	defer server.Close()

	cl := client.NewHTTPClient(20*time.Millisecond, nil)
	_, err := cl.Invoke(context.Background(), formEndpoint(server.URL), nil)
	assert.ErrorIs(t, err, client.ErrRequestFailed)
}

func TestConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	cl := client.NewHTTPClient(time.Second, nil)
	_, err := cl.Invoke(context.Background(), formEndpoint(base), nil)
	assert.ErrorIs(t, err, client.ErrRequestFailed)

	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
}

func TestNilEndpoint(t *testing.T) {
	cl := client.NewHTTPClient(time.Second, nil)
	_, err := cl.Invoke(context.Background(), nil, nil)
	assert.ErrorIs(t, err, client.ErrNilEndpoint)
}
