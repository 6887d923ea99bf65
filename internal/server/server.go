// Package server exposes the HTTP and websocket surface: the static UI,
// asset and upload routes, and JSON-RPC over POST and websocket.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sparod/melo/internal/event"
	"github.com/sparod/melo/internal/jsonrpc"
	"github.com/sparod/melo/internal/registry"
)

// Config configures the HTTP server.
type Config struct {
	Addr     string
	UIDir    string
	CoverDir string
	AuthUser string
	AuthPass string
}

// Server routes HTTP and websocket traffic to the JSON-RPC registry and the
// event bus.
type Server struct {
	log *zap.Logger
	cfg Config
	rpc *jsonrpc.Registry
	reg *registry.Registry
	bus *event.Bus
}

// New creates the server.
func New(log *zap.Logger, cfg Config, rpc *jsonrpc.Registry, reg *registry.Registry, bus *event.Bus) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, cfg: cfg, rpc: rpc, reg: reg, bus: bus}
}

// Router builds the chi route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.cfg.AuthUser != "" {
		r.Use(middleware.BasicAuth("melo", map[string]string{
			s.cfg.AuthUser: s.cfg.AuthPass,
		}))
	}

	r.Post("/api/jsonrpc", s.handleRPC)
	r.Get("/api/request/{kind}", s.handleRequestWS)
	r.Get("/api/request/{kind}/{id}", s.handleRequestWS)
	r.Get("/api/event/{kind}", s.handleEventWS)
	r.Get("/api/event/{kind}/{id}", s.handleEventWS)
	r.Get("/asset/browser/{id}/*", s.handleBrowserAsset)
	r.Get("/asset/player/{id}/*", s.handlePlayerAsset)
	r.Get("/asset/{name}", s.handleCover)
	r.Put("/media/{id}/*", s.handleUpload)

	if s.cfg.UIDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.UIDir)))
	} else {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unknown path", http.StatusBadRequest)
		})
	}
	return r
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:     s.Router(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handleRPC serves single-shot JSON-RPC over POST.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, 1<<20)
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	resp := s.rpc.Handle(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(nil, r.Body, limit))
}
