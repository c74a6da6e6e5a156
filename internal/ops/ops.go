// Package ops serves the operational HTTP endpoint: liveness and counters.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/ratebot/core/buildinfo"
	"github.com/m3rciful/ratebot/core/logger"
)

// Stats is the /stats payload.
type Stats struct {
	Sessions         int    `json:"sessions"`
	DispatcherErrors uint64 `json:"dispatcher_errors"`
	Queued           int    `json:"queued"`
	Updates          uint64 `json:"updates"`
	HandlerErrors    uint64 `json:"handler_errors"`
	Lookups          *int64 `json:"lookups"`
	Version          string `json:"version"`
	Commit           string `json:"commit"`
}

// StatsSource collects live counters.
type StatsSource interface {
	Stats(ctx context.Context) Stats
}

// StatsFunc adapts a function to StatsSource.
type StatsFunc func(ctx context.Context) Stats

// Stats calls f.
func (f StatsFunc) Stats(ctx context.Context) Stats { return f(ctx) }

// NewRouter wires the ops routes.
func NewRouter(src StatsSource) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		st := src.Stats(r.Context())
		st.Version = buildinfo.Version
		st.Commit = buildinfo.Commit
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			logger.Warn(r.Context(), "ops", "stats.encode", slog.String("err", err.Error()))
		}
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		ctx := logger.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		logger.Debug(ctx, "ops", "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", ww.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}

// Server runs the ops router on a listener in the background.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan error
}

// Start listens on addr and serves in a goroutine.
func Start(ctx context.Context, addr string, src StatsSource) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		srv: &http.Server{
			Handler:           NewRouter(src),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ln:   ln,
		done: make(chan error, 1),
	}
	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	logger.Info(ctx, "ops", "listen", slog.String("listen", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	if serveErr := <-s.done; serveErr != nil && err == nil {
		err = serveErr
	}
	return err
}
