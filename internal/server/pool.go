package server

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/internal/metrics"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// WorkerPool runs a fixed set of workers draining a shared FIFO of tasks.
// The queue has its own lock, independent of the session table.
type WorkerPool struct {
	size    int
	handler func(Task)
	metrics *metrics.Collector
	log     *logger.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	tasks   *queue.Queue
	stopped bool

	running   atomic.Bool
	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewWorkerPool creates a pool of size workers. A size of zero or less
// means one worker per CPU.
func NewWorkerPool(size int, handler func(Task), m *metrics.Collector, log *logger.Logger) *WorkerPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if m == nil {
		m = metrics.NewCollector()
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &WorkerPool{
		size:    size,
		handler: handler,
		metrics: m,
		log:     log,
		tasks:   queue.New(),
	}
	p.cond = sync.NewCond(&p.mu)
	p.running.Store(true)
	return p
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.size
}

// Running reports whether the pool still accepts work.
func (p *WorkerPool) Running() bool {
	return p.running.Load()
}

// Pending returns the number of queued tasks.
func (p *WorkerPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tasks.Length()
}

// Start launches the workers. Only the first call has an effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.stopped {
			return
		}
		for i := 0; i < p.size; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.log.Debug().Int("workers", p.size).Msg("Worker pool started")
	})
}

// Submit enqueues a task and wakes one worker.
func (p *WorkerPool) Submit(task Task) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return pgwerrors.ErrQueueStopped
	}
	p.tasks.Add(task)
	p.metrics.SetQueueDepth(p.tasks.Length())
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// Stop refuses new work, lets the workers drain the queue and waits for
// them to exit. Safe to call repeatedly.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		p.running.Store(false)
	}
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for !p.stopped && p.tasks.Length() == 0 {
			p.cond.Wait()
		}
		if p.tasks.Length() == 0 {
			p.mu.Unlock()
			p.log.Debug().Int("worker", id).Msg("Worker exiting")
			return
		}
		task := p.tasks.Remove().(Task)
		// The gauge is only written while holding mu.
		p.metrics.SetQueueDepth(p.tasks.Length())
		p.mu.Unlock()

		start := time.Now()
		p.handler(task)
		p.metrics.RecordDispatch(time.Since(start))
	}
}
