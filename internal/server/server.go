package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"

	"github.com/kode4food/walkthrough/internal/events"
	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/internal/session"
	"github.com/kode4food/walkthrough/pkg/api"
)

// Server implements the HTTP API server for walkthrough sessions
type Server struct {
	sessions *session.Manager
	hub      *events.Hub
	logger   *slog.Logger
	sockets  map[*Client]struct{}
	mu       sync.Mutex
}

var (
	ErrInvalidJSON   = errors.New("invalid JSON request")
	ErrListRecipes   = errors.New("failed to list recipes")
	ErrStartSession  = errors.New("failed to start session")
	ErrGetSession    = errors.New("failed to get session")
	ErrAdvance       = errors.New("failed to advance session")
	ErrDeleteSession = errors.New("failed to delete session")
)

// NewServer creates a new HTTP API server
func NewServer(
	mgr *session.Manager, hub *events.Hub, logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions: mgr,
		hub:      hub,
		logger:   logger,
		sockets:  map[*Client]struct{}{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", s.handleHealth)

	// Recipe endpoints
	router.GET("/recipes", s.listRecipes)
	router.GET("/recipes/:recipeID", s.getRecipe)

	// Session endpoints
	sessions := router.Group("/sessions")
	{
		sessions.POST("", s.startSession)
		sessions.GET("/:sessionID", s.getSession)
		sessions.POST("/:sessionID/next", s.nextStep)
		sessions.DELETE("/:sessionID", s.deleteSession)

		// WebSocket
		sessions.GET("/:sessionID/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[c] = struct{}{}
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, recipes.ErrRecipeNotFound),
		errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrRunComplete),
		errors.Is(err, session.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, wrap, err error) {
	status := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = fmt.Sprintf("%s: %v", wrap, err)
	}
	c.JSON(status, api.ErrorResponse{
		Error:  msg,
		Status: status,
	})
}
