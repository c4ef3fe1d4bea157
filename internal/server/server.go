// Package server implements the PGW request server: an epoll-driven UDP
// event loop feeding a worker pool, a session expiry sweeper, and an HTTP
// control plane that shares one shutdown path with OS signals.
package server

import (
	"context"
	"io"
	"net/http"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/sahmadiut/pgw-sim/internal/cdr"
	"github.com/sahmadiut/pgw-sim/internal/config"
	"github.com/sahmadiut/pgw-sim/internal/constants"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/internal/health"
	"github.com/sahmadiut/pgw-sim/internal/metrics"
	"github.com/sahmadiut/pgw-sim/internal/netpoll"
	"github.com/sahmadiut/pgw-sim/internal/session"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// Option customises a Server.
type Option func(*Server)

// WithSocketFactory replaces the UDP socket constructor.
func WithSocketFactory(f SocketFactory) Option {
	return func(s *Server) {
		s.newSocket = f
	}
}

// WithClock replaces the session table clock.
func WithClock(c session.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithRecorder replaces the CDR file named in the configuration.
func WithRecorder(r cdr.Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithMetrics uses c instead of a private collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// Server is the PGW request server.
type Server struct {
	config *config.ServerConfig
	log    *logger.Logger

	newSocket SocketFactory
	clock     session.Clock
	recorder  cdr.Recorder
	cdrCloser io.Closer

	table      *session.Table
	dispatcher *Dispatcher
	pool       *WorkerPool
	sweeper    *session.Sweeper

	metrics        *metrics.Collector
	metricsHandler http.Handler
	health         *health.Handler

	running atomic.Bool
	started atomic.Bool

	mu      sync.Mutex
	poller  *netpoll.Poller
	control *controlPlane
	udpAddr netip.AddrPort
	ready   chan struct{}
}

// New creates a server from a validated configuration. The CDR file is
// opened here unless a recorder is supplied.
func New(cfg *config.ServerConfig, log *logger.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultServerConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}

	s := &Server{
		config:    cfg,
		log:       log,
		newSocket: ListenUDP,
		ready:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.recorder == nil {
		w, err := cdr.Open(cfg.CDRFile)
		if err != nil {
			return nil, err
		}
		s.recorder = w
		s.cdrCloser = w
	}

	if s.metrics == nil {
		s.metrics = metrics.NewCollector()
	}
	s.metricsHandler = metrics.Handler(metrics.NewRegistry(s.metrics))

	s.table = session.NewTable(s.clock)
	s.dispatcher = NewDispatcher(s.table, cfg.Blacklist, s.recorder, s.metrics, log.WithStr("component", "dispatcher"))
	s.pool = NewWorkerPool(cfg.Workers, s.dispatcher.Handle, s.metrics, log.WithStr("component", "pool"))
	s.sweeper = session.NewSweeper(s.table, session.SweeperConfig{
		Timeout:  cfg.SessionTimeout(),
		Interval: cfg.SweepInterval,
	}, s.onExpire, log.WithStr("component", "sweeper"))

	s.health = health.NewHandler(constants.HealthCheckTimeout)
	s.health.RegisterCheck("event_loop", health.FlagCheck(s.Running, "shutdown in progress"))
	s.health.RegisterCheck("worker_pool", health.FlagCheck(s.PoolRunning, "worker pool stopped"))

	s.running.Store(true)
	return s, nil
}

func (s *Server) onExpire(imsi string) {
	s.metrics.RecordSessionExpired()
	if err := s.recorder.Write(imsi, constants.ActionTimeout); err != nil {
		s.log.Error().Err(err).Str("imsi", imsi).Msg("Failed to write CDR")
		s.metrics.RecordCDRError()
	}
}

// Running reports whether the event loop and sweeper should keep going.
func (s *Server) Running() bool {
	return s.running.Load()
}

// PoolRunning reports whether workers still accept tasks.
func (s *Server) PoolRunning() bool {
	return s.pool.Running()
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.table.Len()
}

// Table exposes the session table for status queries.
func (s *Server) Table() *session.Table {
	return s.table
}

// Ready is closed once both listeners are bound and the loop is about to wait.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// UDPAddr returns the bound request socket address, valid after Ready.
func (s *Server) UDPAddr() netip.AddrPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.udpAddr
}

// HTTPAddr returns the bound control-plane address, valid after Ready.
func (s *Server) HTTPAddr() string {
	c := s.controlPlane()
	if c == nil {
		return ""
	}
	return c.Addr().String()
}

func (s *Server) controlPlane() *controlPlane {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.control
}

// Shutdown flips the running flag and wakes the event loop. It returns
// immediately; Run performs the teardown. Safe to call from any goroutine,
// any number of times, before or during Run.
func (s *Server) Shutdown() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.log.Info().Msg("Shutdown requested")

	s.mu.Lock()
	p := s.poller
	s.mu.Unlock()
	if p != nil {
		if err := p.Wake(); err != nil {
			s.log.Error().Err(err).Msg("Failed to wake event loop")
		}
	}
}

// Run binds the sockets, starts the control plane, sweeper and workers, and
// serves requests until Shutdown is called or ctx is cancelled. Startup
// failures are returned with every acquired resource released.
func (s *Server) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return pgwerrors.ErrServerRunning
	}
	if !s.Running() {
		s.closeRecorder()
		return pgwerrors.ErrServerStopped
	}

	conn, err := s.newSocket(s.config.UDPIP, s.config.UDPPort)
	if err != nil {
		s.closeRecorder()
		return err
	}

	poller, err := netpoll.NewPoller()
	if err != nil {
		_ = conn.Close()
		s.closeRecorder()
		return err
	}
	if err := poller.Add(conn.Fd()); err != nil {
		_ = poller.Close()
		_ = conn.Close()
		s.closeRecorder()
		return err
	}

	control, err := listenControl(s.config.HTTPAddr(), s.routes(), s.log.WithStr("component", "control"))
	if err != nil {
		_ = poller.Close()
		_ = conn.Close()
		s.closeRecorder()
		return err
	}

	s.mu.Lock()
	s.poller = poller
	s.control = control
	s.udpAddr = conn.LocalAddr()
	s.mu.Unlock()

	control.serve()
	s.sweeper.Start()
	s.pool.Start()

	var watch sync.WaitGroup
	loopDone := make(chan struct{})
	watch.Add(1)
	go func() {
		defer watch.Done()
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-loopDone:
		}
	}()

	s.log.Info().
		Str("udp_addr", conn.LocalAddr().String()).
		Str("http_addr", control.Addr().String()).
		Int("workers", s.pool.Size()).
		Int("blacklisted", len(s.config.Blacklist)).
		Msg("PGW server listening")
	close(s.ready)

	loopErr := s.loop(conn, poller)

	close(loopDone)
	watch.Wait()
	s.teardown(conn, poller, control)
	return loopErr
}

// teardown stops workers and sweeper, then the control plane, then closes
// every descriptor.
func (s *Server) teardown(conn PacketConn, poller *netpoll.Poller, control *controlPlane) {
	s.log.Info().Int("pending", s.pool.Pending()).Msg("Draining")

	s.pool.Stop()
	s.sweeper.Stop()
	control.stop()
	control.wait()

	if err := poller.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close poller")
	}
	if err := conn.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close UDP socket")
	}
	s.closeRecorder()

	s.log.Info().Int("sessions", s.table.Len()).Msg("Server stopped")
}

func (s *Server) closeRecorder() {
	if s.cdrCloser == nil {
		return
	}
	if err := s.cdrCloser.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close CDR file")
	}
}
