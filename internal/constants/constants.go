// Package constants provides shared constants for the PGW simulator.
package constants

import "time"

// Subscriber identity.
const (
	// IMSILength is the number of decimal digits in a subscriber identifier.
	IMSILength = 15
)

// Buffer sizes for network I/O.
const (
	// DatagramBufferSize bounds a single inbound request. A 15-digit IMSI
	// packs into 8 bytes, the rest is slack.
	DatagramBufferSize = 16

	// MaxPollEvents is the epoll_wait batch size.
	MaxPollEvents = 1000

	// ReplyBufferSize is the client-side receive buffer for replies.
	ReplyBufferSize = 128
)

// Reply payloads sent back over UDP.
const (
	ReplyCreated  = "created"
	ReplyRejected = "rejected"
)

// CDR actions.
const (
	ActionCreate  = "create"
	ActionTimeout = "timeout"
)

// Timing defaults.
const (
	// DefaultSweepInterval is how often expired sessions are evicted.
	DefaultSweepInterval = time.Second

	// DefaultResponseTimeout is how long the client waits for each reply.
	DefaultResponseTimeout = 5 * time.Second

	// DefaultMaxRetries is the number of client send attempts.
	DefaultMaxRetries = 5

	// ShutdownTimeout bounds the control-plane listener drain.
	ShutdownTimeout = 5 * time.Second

	// HealthCheckTimeout bounds one /readyz pass.
	HealthCheckTimeout = 2 * time.Second

	// MinInterval is the smallest accepted configured period. Anything
	// shorter is almost always a bare number read as nanoseconds.
	MinInterval = 10 * time.Millisecond
)
