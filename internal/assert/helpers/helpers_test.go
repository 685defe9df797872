package helpers_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/walkthrough/internal/assert/helpers"
	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/config"
	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/internal/recipes/balance"
	"github.com/kode4food/walkthrough/pkg/api"
)

func endpoint(permalink string) *catalog.Endpoint {
	return &catalog.Endpoint{Permalink: permalink}
}

func TestMockClient(t *testing.T) {
	cl := helpers.NewMockClient()
	assert.NotNil(t, cl)
}

func TestSetResponse(t *testing.T) {
	cl := helpers.NewMockClient()
	cl.SetOK("$e/a/b", api.Args{"result": "success"})

	resp, err := cl.Invoke(
		context.Background(), endpoint("$e/a/b"), &api.RequestArgs{},
	)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "success", resp.Data["result"])
}

func TestSetStatus(t *testing.T) {
	cl := helpers.NewMockClient()
	cl.SetStatus("$e/a/b", 401)

	resp, err := cl.Invoke(context.Background(), endpoint("$e/a/b"), nil)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestSetError(t *testing.T) {
	cl := helpers.NewMockClient()
	cl.SetError("$e/a/b", assert.AnError)

	_, err := cl.Invoke(context.Background(), endpoint("$e/a/b"), nil)
	assert.Equal(t, assert.AnError, err)

	cl.ClearError("$e/a/b")
	_, err = cl.Invoke(context.Background(), endpoint("$e/a/b"), nil)
	assert.NoError(t, err)
}

func TestTracksInvocations(t *testing.T) {
	cl := helpers.NewMockClient()
	ctx := context.Background()

	_, _ = cl.Invoke(ctx, endpoint("$e/a/one"), &api.RequestArgs{
		Params: api.Args{"x": "1"},
	})
	_, _ = cl.Invoke(ctx, endpoint("$e/a/two"), &api.RequestArgs{})

	assert.True(t, cl.WasInvoked("$e/a/one"))
	assert.True(t, cl.WasInvoked("$e/a/two"))
	assert.False(t, cl.WasInvoked("$e/a/three"))
	assert.Equal(t, []string{"$e/a/one", "$e/a/two"}, cl.GetInvocations())

	args, ok := cl.LastArgs("$e/a/one")
	assert.True(t, ok)
	assert.Equal(t, "1", args.Params["x"])

	_, ok = cl.LastArgs("$e/a/three")
	assert.False(t, ok)
}

func TestDefaultResponse(t *testing.T) {
	cl := helpers.NewMockClient()

	resp, err := cl.Invoke(context.Background(), endpoint("$e/x/y"), nil)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Empty(t, resp.Data)
}

func TestResponseIsolation(t *testing.T) {
	cl := helpers.NewMockClient()
	cl.SetOK("$e/a/b", api.Args{"k": "v"})

	first, err := cl.Invoke(context.Background(), endpoint("$e/a/b"), nil)
	require.NoError(t, err)
	first.Data["k"] = "changed"

	second, err := cl.Invoke(context.Background(), endpoint("$e/a/b"), nil)
	require.NoError(t, err)
	assert.Equal(t, "v", second.Data["k"])
}

func TestThreadSafe(t *testing.T) {
	cl := helpers.NewMockClient()
	cl.SetOK("$e/a/b", api.Args{"result": "value"})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = cl.Invoke(context.Background(), endpoint("$e/a/b"), nil)
		}()
	}
	wg.Wait()

	assert.Len(t, cl.GetInvocations(), 10)
}

func TestConfig(t *testing.T) {
	cfg := helpers.NewTestConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestEnv(t *testing.T) {
	env := helpers.NewTestEnv(t)
	defer env.Cleanup()

	assert.NotNil(t, env.Config)
	assert.NotNil(t, env.Catalog)
	assert.NotNil(t, env.MockClient)
	assert.NotNil(t, env.Hub)
	assert.NotNil(t, env.Store)
	assert.NotNil(t, env.Manager)
	assert.Nil(t, env.Redis)
}

func TestBalanceRun(t *testing.T) {
	run := func(t *testing.T, env *helpers.TestEnv) {
		ctx := context.Background()
		s, err := env.Manager.Start(ctx, balance.ID)
		require.NoError(t, err)

		sub := env.Hub.Subscribe(events.AndFilters(
			events.FilterSession(s.ID),
			events.FilterTypes(api.EventTypeRunCompleted),
		))
		defer sub.Close()

		for range 5 {
			out, _, err := env.Manager.Next(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, api.OutcomeCompleted, out.Status, out.Error)
		}

		got, err := env.Manager.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, api.SessionCompleted, got.Status)

		select {
		case ev := <-sub.Receive():
			assert.Equal(t, api.EventTypeRunCompleted, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatal("run_completed not published")
		}
	}

	t.Run("memory", func(t *testing.T) {
		helpers.WithTestEnv(t, func(env *helpers.TestEnv) { run(t, env) })
	})
	t.Run("redis", func(t *testing.T) {
		helpers.WithRedisTestEnv(t, func(env *helpers.TestEnv) {
			assert.NotNil(t, env.Redis)
			run(t, env)
		})
	})
	t.Run("timebox", func(t *testing.T) {
		helpers.WithTimeboxTestEnv(t, func(env *helpers.TestEnv) {
			assert.Equal(t, config.StoreTimebox, env.Config.SessionStore.Type)
			run(t, env)
		})
	})
}

func TestBalanceClient(t *testing.T) {
	cl := helpers.NewBalanceClient()

	resp, err := cl.Invoke(
		context.Background(), endpoint(balance.PermalinkDelegate), nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "c0de", resp.Data["code"])
}
