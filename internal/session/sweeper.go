package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sahmadiut/pgw-sim/internal/constants"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// SweeperConfig holds eviction settings.
type SweeperConfig struct {
	// Timeout is the maximum session age.
	Timeout time.Duration
	// Interval is the pause between scans. It also bounds Stop latency.
	Interval time.Duration
}

// Sweeper periodically evicts expired sessions on its own goroutine.
type Sweeper struct {
	table   *Table
	config  SweeperConfig
	onEvict func(id string)
	log     *logger.Logger

	running  atomic.Bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	startOne sync.Once
	stopOne  sync.Once
}

// NewSweeper creates a sweeper over table. onEvict runs under the table
// lock for every evicted id.
func NewSweeper(table *Table, config SweeperConfig, onEvict func(id string), log *logger.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = constants.DefaultSweepInterval
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Sweeper{
		table:   table,
		config:  config,
		onEvict: onEvict,
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the sweep loop. Calling it more than once has no effect.
func (s *Sweeper) Start() {
	s.startOne.Do(func() {
		s.running.Store(true)
		go s.loop()
	})
}

// Stop signals the loop and waits for it to exit. Safe to call repeatedly.
// A sweeper stopped before Start never runs.
func (s *Sweeper) Stop() {
	s.startOne.Do(func() { close(s.doneCh) })
	s.stopOne.Do(func() {
		s.running.Store(false)
		close(s.stopCh)
	})
	<-s.doneCh
}

// Running reports whether the sweep loop is active.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// SweepOnce runs a single eviction pass and returns the evicted ids.
func (s *Sweeper) SweepOnce() []string {
	evicted := s.table.Evict(s.config.Timeout, s.onEvict)
	for _, id := range evicted {
		s.log.Info().Str("imsi", id).Msg("Session expired")
	}
	return evicted
}

func (s *Sweeper) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.running.Load() {
				return
			}
			s.SweepOnce()
		}
	}
}
