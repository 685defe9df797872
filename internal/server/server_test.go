package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/kode4food/walkthrough"
	"github.com/kode4food/walkthrough/internal/assert/helpers"
	"github.com/kode4food/walkthrough/internal/recipes/balance"
	"github.com/kode4food/walkthrough/internal/server"
	"github.com/kode4food/walkthrough/pkg/api"
)

type testServerEnv struct {
	Server *server.Server
	*helpers.TestEnv
}

func TestHealthEndpoint(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.HealthResponse
	decode(t, w, &resp)
	assert.Equal(t, app.Name, resp.Service)
	assert.Equal(t, server.HealthHealthy, resp.Status)
}

func TestCORSPreflight(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("OPTIONS", "/sessions", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestListRecipes(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("GET", "/recipes", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp api.RecipesListResponse
	decode(t, w, &resp)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Recipes, 1)
	assert.Equal(t, balance.ID, resp.Recipes[0].ID)
	assert.Len(t, resp.Recipes[0].Steps, 5)
}

func TestGetRecipe(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("GET", "/recipes/"+string(balance.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var info api.RecipeInfo
	decode(t, w, &info)
	assert.Equal(t, balance.Title, info.Title)
	require.Len(t, info.Steps, 5)
	assert.Equal(t, balance.StepClientToken, info.Steps[1].ID)
}

func TestGetRecipeNotFound(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("GET", "/recipes/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp api.ErrorResponse
	decode(t, w, &resp)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Contains(t, resp.Error, "recipe not found")
}

func TestStartSession(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	w := env.do("POST", "/sessions", api.CreateSessionRequest{
		Recipe: balance.ID,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var sess api.Session
	decode(t, w, &sess)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, balance.ID, sess.Recipe)
	assert.Equal(t, api.SessionActive, sess.Status)
	assert.Equal(t, 0, sess.Progress.Next)
	assert.Equal(t, 5, sess.Progress.Total)
}

func TestStartSessionErrors(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	t.Run("invalid_json", func(t *testing.T) {
		req := httptest.NewRequest(
			"POST", "/sessions", bytes.NewReader([]byte("{bad")),
		)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.Server.SetupRoutes().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing_recipe", func(t *testing.T) {
		w := env.do("POST", "/sessions", api.CreateSessionRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown_recipe", func(t *testing.T) {
		w := env.do("POST", "/sessions", api.CreateSessionRequest{
			Recipe: "missing",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRunThroughAPI(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	id := env.start(t)
	for i := range 5 {
		w := env.do("POST", "/sessions/"+string(id)+"/next", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp api.NextStepResponse
		decode(t, w, &resp)
		assert.Equal(t, api.OutcomeCompleted, resp.Outcome.Status)
		assert.Equal(t, i+1, resp.Session.Progress.Next)
	}

	w := env.do("GET", "/sessions/"+string(id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var sess api.Session
	decode(t, w, &sess)
	assert.Equal(t, api.SessionCompleted, sess.Status)
	report := sess.Progress.State[balance.StepReport]
	require.NotNil(t, report)
	assert.Equal(t, "c0de", report.Data["id"])

	w = env.do("POST", "/sessions/"+string(id)+"/next", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestNextFailedStep(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	env.MockClient.SetStatus(balance.PermalinkToken, http.StatusUnauthorized)
	id := env.start(t)

	w := env.do("POST", "/sessions/"+string(id)+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("POST", "/sessions/"+string(id)+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.NextStepResponse
	decode(t, w, &resp)
	assert.Equal(t, api.OutcomeFailed, resp.Outcome.Status)
	assert.Equal(t, balance.ErrTokenNotReceived, resp.Outcome.Error)
	assert.Equal(t, 1, resp.Session.Progress.Next)
}

func TestNextRedactsSecret(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	id := env.start(t)
	env.do("POST", "/sessions/"+string(id)+"/next", nil)
	w := env.do("POST", "/sessions/"+string(id)+"/next", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.NotContains(t, w.Body.String(), balance.DefaultClientSecret)
	assert.Contains(t, w.Body.String(), "[redacted]")
}

func TestSessionNotFound(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	for _, tc := range []struct {
		method string
		path   string
	}{
		{"GET", "/sessions/missing"},
		{"POST", "/sessions/missing/next"},
		{"DELETE", "/sessions/missing"},
		{"GET", "/sessions/missing/ws"},
	} {
		w := env.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)
	}
}

func TestDeleteSession(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	id := env.start(t)
	w := env.do("DELETE", "/sessions/"+string(id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	_, err := env.Manager.Get(context.Background(), id)
	assert.Error(t, err)
}

func TestWebSocketEndpoint(t *testing.T) {
	env := testServer(t)
	defer env.Cleanup()

	id := env.start(t)
	w := env.do("GET", "/sessions/"+string(id)+"/ws", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func testServer(t *testing.T) *testServerEnv {
	t.Helper()

	env := helpers.NewTestEnv(t)
	srv := server.NewServer(env.Manager, env.Hub, nil)

	return &testServerEnv{
		Server:  srv,
		TestEnv: env,
	}
}

func (e *testServerEnv) do(
	method, path string, body any,
) *httptest.ResponseRecorder {
	var data []byte
	if body != nil {
		data, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()

	router := e.Server.SetupRoutes()
	router.ServeHTTP(w, req)
	return w
}

func (e *testServerEnv) start(t *testing.T) api.SessionID {
	t.Helper()
	sess, err := e.Manager.Start(context.Background(), balance.ID)
	require.NoError(t, err)
	return sess.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}
