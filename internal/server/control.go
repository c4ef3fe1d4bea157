package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sahmadiut/pgw-sim/internal/constants"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// controlPlane owns the HTTP listener for status queries and shutdown.
type controlPlane struct {
	server   *http.Server
	listener net.Listener
	log      *logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// listenControl binds addr synchronously so a bind failure aborts startup.
func listenControl(addr string, handler http.Handler, log *logger.Logger) (*controlPlane, error) {
	ln, err := net.Listen("tcp4", addr)
	if err != nil {
		return nil, pgwerrors.NewPGWError("listen", pgwerrors.ErrListenerSetup, err, addr)
	}
	return &controlPlane{
		listener: ln,
		log:      log,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Addr returns the bound listener address.
func (c *controlPlane) Addr() net.Addr {
	return c.listener.Addr()
}

func (c *controlPlane) serve() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.log.Info().Str("addr", c.Addr().String()).Msg("Control plane listening")
		if err := c.server.Serve(c.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error().Err(err).Msg("Control plane error")
		}
	}()
}

// stop shuts the listener down once and waits for Serve to return.
// Concurrent callers block until the first one finishes.
func (c *controlPlane) stop() {
	c.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := c.server.Shutdown(ctx); err != nil {
			c.log.Warn().Err(err).Msg("Control plane shutdown incomplete")
			_ = c.server.Close()
		}
		c.log.Info().Msg("Control plane stopped")
	})
}

// stopAsync stops the listener from inside one of its own handlers.
// Shutdown waits for active handlers, so it must not run on the handler goroutine.
func (c *controlPlane) stopAsync() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.stop()
	}()
}

// wait blocks until Serve and any asynchronous stop have returned.
func (c *controlPlane) wait() {
	c.wg.Wait()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /check_subscriber", s.handleCheckSubscriber)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.Handle("GET /metrics", s.metricsHandler)
	mux.HandleFunc("GET /healthz", s.health.Healthz())
	mux.HandleFunc("GET /readyz", s.health.Readyz())
	return mux
}

func (s *Server) handleCheckSubscriber(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has("imsi") {
		writeText(w, http.StatusBadRequest, "Missing 'imsi' parameter\n")
		return
	}

	imsi := query.Get("imsi")
	if s.table.Contains(imsi) {
		writeText(w, http.StatusOK, "active\n")
		return
	}
	writeText(w, http.StatusOK, "not active\n")
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.log.Info().Str("remote_addr", r.RemoteAddr).Msg("Stop requested over control plane")
	s.Shutdown()

	writeText(w, http.StatusOK, "stopping\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	if c := s.controlPlane(); c != nil {
		c.stopAsync()
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}
