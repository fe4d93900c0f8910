package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	xlog "github.com/ytget/yt-bot/internal/log"
)

const (
	maxUpdateBytes    = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

// UpdateHandler consumes inbound updates
type UpdateHandler interface {
	HandleUpdate(u Update)
}

// ServerConfig wires a Server
type ServerConfig struct {
	Addr        string
	WebhookPath string // empty disables the webhook route
	Updates     UpdateHandler
	Metrics     http.Handler // defaults to the prometheus default registry
}

// Server exposes the health check, metrics and the webhook endpoint
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer builds the router and the underlying http.Server
func NewServer(cfg ServerConfig) *Server {
	s := &Server{logger: xlog.WithComponent("telegram.server")}
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	if cfg.WebhookPath != "" && cfg.Updates != nil {
		r.Post(cfg.WebhookPath, s.webhook(cfg.Updates))
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) webhook(updates UpdateHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u Update
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&u); err != nil {
			s.logger.Warn().Err(err).Msg("bad webhook payload")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		updates.HandleUpdate(u)
		_, _ = w.Write([]byte("ok"))
	}
}

// ListenAndServe serves on the configured address until Shutdown
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. A graceful shutdown is not an error.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
