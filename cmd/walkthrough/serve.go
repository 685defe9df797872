package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kode4food/timebox"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	app "github.com/kode4food/walkthrough"
	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/client"
	"github.com/kode4food/walkthrough/internal/config"
	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/internal/host"
	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/internal/server"
	"github.com/kode4food/walkthrough/internal/session"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type walkthrough struct {
	cfg        *config.Config
	logger     *slog.Logger
	redis      *redis.Client
	timebox    *timebox.Timebox
	tbStore    *timebox.Store
	store      session.Store
	catalog    *catalog.Catalog
	apiClient  client.Client
	hub        *events.Hub
	sessions   *session.Manager
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrConnectRedis  = errors.New("failed to connect to session redis")
	ErrCreateTimebox = errors.New("failed to create timebox")
	ErrCreateStore   = errors.New("failed to create session event store")
	ErrLoadCatalog   = errors.New("failed to load API catalog")
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve walkthrough sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s := &walkthrough{
				cfg:    cfg,
				logger: newLogger(cfg, os.Stdout),
				quit:   make(chan os.Signal, 1),
			}
			return s.run(cmd.Context())
		},
	}
}

func (s *walkthrough) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.logConfig()

	if err := s.initializeStore(ctx); err != nil {
		return err
	}
	if err := s.initializeSessions(ctx); err != nil {
		s.closeStore()
		return err
	}
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *walkthrough) logConfig() {
	s.logger.Info("Walkthrough starting",
		slog.String("log_level", s.cfg.LogLevel))

	s.logger.Info("Configuration loaded",
		slog.String("session_store", s.cfg.SessionStore.Type),
		slog.String("session_redis_addr", s.cfg.SessionStore.Addr),
		slog.Int("session_redis_db", s.cfg.SessionStore.DB),
		slog.Duration("session_ttl", s.cfg.SessionStore.TTL),
		slog.String("tink_base_url", s.cfg.Tink.BaseURL),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort))
}

func (s *walkthrough) initializeStore(ctx context.Context) error {
	sc := s.cfg.SessionStore
	switch sc.Type {
	case config.StoreRedis:
		return s.initializeRedisStore(ctx)
	case config.StoreTimebox:
		return s.initializeTimeboxStore()
	default:
		s.store = session.NewMemoryStore(sc.CacheSize, sc.TTL)
		return nil
	}
}

func (s *walkthrough) initializeRedisStore(ctx context.Context) error {
	sc := s.cfg.SessionStore
	s.redis = redis.NewClient(&redis.Options{
		Addr:     sc.Addr,
		Password: sc.Password,
		DB:       sc.DB,
	})
	store := session.NewRedisStore(s.redis, sc.Prefix, sc.TTL)
	if err := store.Ping(ctx); err != nil {
		_ = s.redis.Close()
		s.redis = nil
		return fmt.Errorf("%w: %w", ErrConnectRedis, err)
	}
	s.store = store
	return nil
}

func (s *walkthrough) initializeTimeboxStore() error {
	tbCfg := s.cfg.SessionStore.TimeboxConfig()

	var err error
	s.timebox, err = timebox.NewTimebox(tbCfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateTimebox, err)
	}

	s.tbStore, err = s.timebox.NewStore(tbCfg.Store)
	if err != nil {
		_ = s.timebox.Close()
		s.timebox = nil
		return fmt.Errorf("%w: %w", ErrCreateStore, err)
	}
	s.store = session.NewTimeboxStore(s.tbStore, s.cfg.SessionStore.TTL)
	return nil
}

func (s *walkthrough) initializeSessions(ctx context.Context) error {
	cat, err := catalog.Tink(ctx, catalog.WithBaseURL(s.cfg.Tink.BaseURL))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	s.catalog = cat
	s.apiClient = client.NewHTTPClient(s.cfg.StepTimeout, s.logger)
	s.hub = events.NewHub()

	s.sessions = session.NewManager(s.store, recipes.Builtin(), s.hostFor,
		session.WithPortal(workflow.PortalMap(s.cfg.Tink.Settings())),
		session.WithLogger(s.logger),
		session.WithStepTimeout(s.cfg.StepTimeout),
	)
	return nil
}

func (s *walkthrough) hostFor(id api.SessionID) session.Host {
	return host.New(s.catalog, s.apiClient,
		host.WithObserver(s.hub),
		host.WithLogger(s.logger),
		host.WithSession(id),
	)
}

func (s *walkthrough) startServer() {
	s.apiServer = server.NewServer(s.sessions, s.hub, s.logger)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		s.logger.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr),
			slog.String("version", app.Version))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *walkthrough) shutdown() {
	s.logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.hub.Close()
	s.closeStore()

	s.logger.Info("Server exited")
}

func (s *walkthrough) closeStore() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.tbStore != nil {
		_ = s.tbStore.Close()
	}
	if s.timebox != nil {
		_ = s.timebox.Close()
	}
}
