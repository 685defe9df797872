package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/internal/recipes/balance"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func tinkServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/oauth/token",
		func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.PostForm.Get("client_secret") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, map[string]any{"access_token": "client-tok"})
		},
	)
	mux.HandleFunc("POST /api/v1/user/create",
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"user_id": "u1"})
		},
	)
	mux.HandleFunc("POST /api/v1/oauth/authorization-grant/delegate",
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"code": "c0de"})
		},
	)
	mux.HandleFunc("GET /data/v1/account-verification-reports/{id}",
		func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"id": r.PathValue("id")})
		},
	)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func execute(
	t *testing.T, stdin string, args ...string,
) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestStepsCommand(t *testing.T) {
	out, err := execute(t, "", "steps")
	require.NoError(t, err)
	assert.Contains(t, out, balance.Title)
	assert.Contains(t, out, "1. Intro")
	assert.Contains(t, out, "5. Step 4")
}

func TestStepsUnknownRecipe(t *testing.T) {
	_, err := execute(t, "", "steps", "missing")
	assert.ErrorIs(t, err, recipes.ErrRecipeNotFound)
}

func TestListSteps(t *testing.T) {
	var out bytes.Buffer
	err := listSteps(t.Context(), &out, recipes.Builtin(), nil,
		string(balance.ID),
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 6)
	assert.Equal(t, "Tink Balance Check (US) (tink-balance-check)", lines[0])
}

func TestRunCommand(t *testing.T) {
	srv := tinkServer(t)
	t.Setenv("TINK_BASE_URL", srv.URL)
	t.Setenv("TINK_CLIENT_SECRET", "secret")

	out, err := execute(t, "", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "request:")
	assert.Contains(t, out, "[redacted]")
	assert.NotContains(t, out, "client_secret: secret")
	assert.Contains(t, out, "✓ Step 4 recorded (5/5)")
	assert.Contains(t, out, "Run completed: 5 steps recorded")
}

func TestRunBaseURLFlag(t *testing.T) {
	srv := tinkServer(t)
	t.Setenv("TINK_CLIENT_SECRET", "secret")

	out, err := execute(t, "", "run", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL+"/api/v1/oauth/token")
}

func TestRunStopsOnFailure(t *testing.T) {
	srv := tinkServer(t)
	t.Setenv("TINK_BASE_URL", srv.URL)
	t.Setenv("TINK_CLIENT_SECRET", "wrong")

	out, err := execute(t, "", "run")
	assert.ErrorIs(t, err, ErrStepNotAdvanced)
	assert.Contains(t, out, "✗ Step 1 failed: "+balance.ErrTokenNotReceived)
	assert.NotContains(t, out, "Run completed")
}

func TestRunPause(t *testing.T) {
	srv := tinkServer(t)
	t.Setenv("TINK_BASE_URL", srv.URL)
	t.Setenv("TINK_CLIENT_SECRET", "secret")

	t.Run("completes", func(t *testing.T) {
		out, err := execute(t, strings.Repeat("\n", 5), "run", "--pause")
		require.NoError(t, err)
		assert.Contains(t, out, "Press Enter to run Intro")
		assert.Contains(t, out, "Run completed")
	})

	t.Run("stops_at_end_of_input", func(t *testing.T) {
		out, err := execute(t, "\n", "run", "--pause")
		require.NoError(t, err)
		assert.Contains(t, out, "✓ Intro recorded (1/5)")
		assert.NotContains(t, out, "Run completed")
	})
}

func TestRunUnknownRecipe(t *testing.T) {
	_, err := execute(t, "", "run", "missing")
	assert.ErrorIs(t, err, recipes.ErrRecipeNotFound)
}
