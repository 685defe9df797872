package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kode4food/timebox"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/config"
	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/internal/host"
	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/internal/session"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

// TestEnv holds all the components needed for walkthrough testing
type TestEnv struct {
	Config     *config.Config
	Catalog    *catalog.Catalog
	MockClient *MockClient
	Hub        *events.Hub
	Store      session.Store
	Manager    *session.Manager
	Redis      *miniredis.Miniredis
	Cleanup    func()
}

const testSessionTTL = 5 * time.Minute

// NewTestConfig creates a default configuration with debug logging enabled
func NewTestConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.LogLevel = "debug"
	return cfg
}

// NewTestEnv creates a fully configured test environment with an in-memory
// session store and a mock HTTP client answering the balance check recipe
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	store := session.NewMemoryStore(100, testSessionTTL)
	env := newTestEnv(t, store)
	return env
}

// NewRedisTestEnv creates a test environment whose sessions are kept in an
// in-memory Redis server
func NewRedisTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	cl := redis.NewClient(&redis.Options{Addr: server.Addr()})
	store := session.NewRedisStore(cl, "test-session:", testSessionTTL)

	env := newTestEnv(t, store)
	env.Redis = server
	cleanup := env.Cleanup
	env.Cleanup = func() {
		cleanup()
		_ = cl.Close()
		server.Close()
	}
	return env
}

// NewTimeboxTestEnv creates a test environment whose sessions are kept as
// timebox event logs in an in-memory Redis server
func NewTimeboxTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	server, err := miniredis.Run()
	assert.NoError(t, err)

	cfg := NewTestConfig()
	cfg.SessionStore.Type = config.StoreTimebox
	cfg.SessionStore.Addr = server.Addr()
	tbCfg := cfg.SessionStore.TimeboxConfig()
	tbCfg.Workers = false

	tb, err := timebox.NewTimebox(tbCfg)
	assert.NoError(t, err)
	tbStore, err := tb.NewStore(tbCfg.Store)
	assert.NoError(t, err)

	store := session.NewTimeboxStore(tbStore, testSessionTTL)
	env := newTestEnv(t, store)
	env.Config = cfg
	env.Redis = server
	cleanup := env.Cleanup
	env.Cleanup = func() {
		cleanup()
		_ = tbStore.Close()
		_ = tb.Close()
		server.Close()
	}
	return env
}

func newTestEnv(t *testing.T, store session.Store) *TestEnv {
	t.Helper()

	cat, err := catalog.Tink(context.Background())
	assert.NoError(t, err)

	env := &TestEnv{
		Config:     NewTestConfig(),
		Catalog:    cat,
		MockClient: NewBalanceClient(),
		Hub:        events.NewHub(),
		Store:      store,
	}
	env.Manager = session.NewManager(store, recipes.Builtin(), env.HostFor,
		session.WithPortal(workflow.PortalMap(env.Config.Tink.Settings())),
		session.WithStepTimeout(env.Config.StepTimeout),
	)
	env.Cleanup = env.Hub.Close
	return env
}

// HostFor creates a host rendering a session's steps through the mock
// client and publishing to the environment's hub
func (e *TestEnv) HostFor(id api.SessionID) session.Host {
	return host.New(e.Catalog, e.MockClient,
		host.WithObserver(e.Hub),
		host.WithSession(id),
	)
}

// WithTestEnv creates a test environment, executes the provided function
// with it, and ensures cleanup happens automatically
func WithTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	env := NewTestEnv(t)
	defer env.Cleanup()
	fn(env)
}

// WithRedisTestEnv is WithTestEnv backed by an in-memory Redis server
func WithRedisTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	env := NewRedisTestEnv(t)
	defer env.Cleanup()
	fn(env)
}

// WithTimeboxTestEnv is WithTestEnv backed by a timebox event store
func WithTimeboxTestEnv(t *testing.T, fn func(*TestEnv)) {
	t.Helper()
	env := NewTimeboxTestEnv(t)
	defer env.Cleanup()
	fn(env)
}
