package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joestump/refselect/api"
	"github.com/joestump/refselect/internal/branches"
	"github.com/joestump/refselect/internal/config"
	"github.com/joestump/refselect/internal/db"
	"github.com/joestump/refselect/internal/plugin"
)

// Selector runs branch selections. *plugin.Processor implements it.
type Selector interface {
	Select(ctx context.Context, req plugin.SelectBranchesRequest) ([]branches.BranchContext, error)
	Process(ctx context.Context, pluginID string, req plugin.Request) plugin.Response
}

// Feed streams JSON-encoded selection events. *hub.Hub implements it.
type Feed interface {
	Subscribe() (<-chan string, func())
}

// Server is the HTTP API server.
type Server struct {
	cfg    *config.Config
	db     *db.DB
	proc   Selector
	feed   Feed
	logger *zap.Logger
	mux    *http.ServeMux
	server *http.Server
}

// ServerOption configures optional Server dependencies.
type ServerOption func(*Server)

// WithFeed enables the selection event stream.
func WithFeed(f Feed) ServerOption {
	return func(s *Server) {
		s.feed = f
	}
}

// New creates a new API server. database may be nil, in which case the
// selections endpoint reports the audit log as unavailable.
func New(cfg *config.Config, database *db.DB, proc Selector, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		db:     database,
		proc:   proc,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // ref listing of large remotes can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins serving HTTP requests. It blocks until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("api listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, for embedding in tests or other servers.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleAPIHealth)
	s.mux.HandleFunc("POST /api/v1/plugin-requests", s.handleAPIPluginRequest)
	s.mux.HandleFunc("POST /api/v1/branches/select", s.handleAPISelectBranches)
	s.mux.HandleFunc("POST /api/v1/refs/parse", s.handleAPIParseRefs)
	s.mux.HandleFunc("GET /api/v1/selections", s.handleAPIListSelections)
	s.mux.HandleFunc("GET /api/v1/selections/stream", s.handleSelectionStream)

	s.mux.HandleFunc("GET /api/openapi.yaml", s.handleOpenAPISpec)
}

// handleOpenAPISpec serves the embedded openapi.yaml.
func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(api.OpenAPISpec)
}
