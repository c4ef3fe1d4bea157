// Package metrics provides Prometheus metrics for the PGW simulator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is the Prometheus namespace for PGW metrics.
const Namespace = "pgw"

// Drop reasons.
const (
	DropMalformed   = "malformed"
	DropQueueClosed = "queue_closed"
	DropReadError   = "read_error"
)

// Collector holds all Prometheus metrics for the PGW simulator.
type Collector struct {
	// Datagram metrics
	DatagramsReceived prometheus.Counter
	DatagramsDropped  *prometheus.CounterVec
	Replies           *prometheus.CounterVec
	ReplyErrors       prometheus.Counter

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionsExpired prometheus.Counter
	CDRErrors       prometheus.Counter

	// Worker pool metrics
	QueueDepth       prometheus.Gauge
	DispatchDuration prometheus.Histogram
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		DatagramsReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "datagrams_received_total",
				Help:      "Total number of request datagrams read from the UDP socket",
			},
		),
		DatagramsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "datagrams_dropped_total",
				Help:      "Total number of datagrams dropped without a reply",
			},
			[]string{"reason"},
		),
		Replies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "replies_total",
				Help:      "Total number of replies by admission result",
			},
			[]string{"result"}, // "created" or "rejected"
		),
		ReplyErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "reply_errors_total",
				Help:      "Total number of replies that could not be sent",
			},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "active_sessions",
				Help:      "Number of currently active sessions",
			},
		),
		SessionsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "sessions_created_total",
				Help:      "Total number of sessions created",
			},
		),
		SessionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "sessions_expired_total",
				Help:      "Total number of sessions evicted after the idle timeout",
			},
		),
		CDRErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "cdr_errors_total",
				Help:      "Total number of CDR records that failed to write",
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "task_queue_depth",
				Help:      "Number of datagrams waiting for a worker",
			},
		),
		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Time spent handling one datagram",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10us to ~160ms
			},
		),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.DatagramsReceived,
		c.DatagramsDropped,
		c.Replies,
		c.ReplyErrors,
		c.ActiveSessions,
		c.SessionsCreated,
		c.SessionsExpired,
		c.CDRErrors,
		c.QueueDepth,
		c.DispatchDuration,
	}
}

// Register registers all metrics with the given registry.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, collector := range c.collectors() {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordDatagram records a datagram read from the socket.
func (c *Collector) RecordDatagram() {
	c.DatagramsReceived.Inc()
}

// RecordDrop records a datagram dropped for reason.
func (c *Collector) RecordDrop(reason string) {
	c.DatagramsDropped.WithLabelValues(reason).Inc()
}

// RecordReply records a reply by result.
func (c *Collector) RecordReply(result string) {
	c.Replies.WithLabelValues(result).Inc()
}

// RecordReplyError records a failed reply send.
func (c *Collector) RecordReplyError() {
	c.ReplyErrors.Inc()
}

// RecordSessionCreated records a new session creation.
func (c *Collector) RecordSessionCreated() {
	c.ActiveSessions.Inc()
	c.SessionsCreated.Inc()
}

// RecordSessionExpired records a session eviction.
func (c *Collector) RecordSessionExpired() {
	c.ActiveSessions.Dec()
	c.SessionsExpired.Inc()
}

// RecordCDRError records a failed CDR write.
func (c *Collector) RecordCDRError() {
	c.CDRErrors.Inc()
}

// SetQueueDepth sets the current task queue depth.
func (c *Collector) SetQueueDepth(n int) {
	c.QueueDepth.Set(float64(n))
}

// RecordDispatch records how long one datagram took to handle.
func (c *Collector) RecordDispatch(d time.Duration) {
	c.DispatchDuration.Observe(d.Seconds())
}

// NewRegistry returns a registry holding c plus the Go and process collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(c.collectors()...)
	registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
