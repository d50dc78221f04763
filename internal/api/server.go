package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aweiler/nbconv/internal/config"
	"github.com/aweiler/nbconv/internal/executor"
)

// Server exposes notebook conversion over HTTP: upload an .ipynb, get
// back the hierarchy document and the rendered fragment markup.
type Server struct {
	router chi.Router
	exec   *executor.Executor
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(cfg config.Config, log *slog.Logger) *Server {
	s := &Server{
		exec: executor.New(cfg.JupyterBin, cfg.Kernel, cfg.ExecTimeout),
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		// Auth is optional: without a configured key the API is open.
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}
		r.Post("/api/convert", s.handleConvert)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
