// Package client sends subscriber session requests to a PGW server and
// waits for the reply, resending on timeout.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sahmadiut/pgw-sim/internal/bcd"
	"github.com/sahmadiut/pgw-sim/internal/config"
	"github.com/sahmadiut/pgw-sim/internal/constants"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/internal/retry"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// Config holds client configuration.
type Config struct {
	// ServerAddr is the PGW server UDP address.
	ServerAddr netip.AddrPort
	// ResponseTimeout bounds the wait for each reply.
	ResponseTimeout time.Duration
	// Retry controls how many times a request is sent.
	Retry *retry.Config
}

// DefaultConfig returns default client configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:      netip.MustParseAddrPort("127.0.0.1:9000"),
		ResponseTimeout: constants.DefaultResponseTimeout,
		Retry:           retry.DefaultConfig(),
	}
}

// ConfigFrom converts a loaded client configuration.
func ConfigFrom(cfg *config.ClientConfig) (*Config, error) {
	addr, err := netip.ParseAddrPort(cfg.ServerAddr())
	if err != nil {
		return nil, pgwerrors.NewPGWError("config", pgwerrors.ErrInvalidConfig, err, cfg.ServerAddr())
	}
	return &Config{
		ServerAddr:      addr,
		ResponseTimeout: cfg.ResponseTimeout,
		Retry: &retry.Config{
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     cfg.RetryMaxDelay,
			Multiplier:   cfg.RetryMultiplier,
			Jitter:       cfg.RetryJitter,
			MaxAttempts:  cfg.MaxRetries,
		},
	}, nil
}

// Client is a PGW request client.
type Client struct {
	config *Config
	log    *logger.Logger
}

// New creates a new client.
func New(config *Config, log *logger.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = constants.DefaultResponseTimeout
	}
	if config.Retry == nil {
		config.Retry = retry.DefaultConfig()
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Client{config: config, log: log}
}

// Send requests a session for imsi and returns the server's reply,
// "created" or "rejected". A missing reply is retried up to the configured
// number of attempts; anything else fails immediately.
func (c *Client) Send(ctx context.Context, imsi string) (string, error) {
	if !bcd.ValidIMSI(imsi) {
		return "", pgwerrors.NewPGWError("send", pgwerrors.ErrInvalidIMSI, nil, imsi)
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return "", pgwerrors.Wrap("socket", pgwerrors.ErrSocketSetup, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	payload := bcd.Encode(imsi)
	requestID := uuid.New().String()
	log := c.log.WithStr("request_id", requestID).WithStr("imsi", imsi)
	attempt := 0

	return retry.DoWithResult(ctx, retry.New(c.config.Retry), func(ctx context.Context) (string, error) {
		attempt++
		log.Debug().Int("attempt", attempt).Str("server", c.config.ServerAddr.String()).Msg("Sending request")

		reply, err := c.exchange(ctx, conn, payload)
		if err != nil {
			if errors.Is(err, pgwerrors.ErrResponseTimeout) {
				log.Warn().Int("attempt", attempt).Dur("timeout", c.config.ResponseTimeout).Msg("No response from server")
			}
			return "", err
		}
		log.Info().Str("reply", reply).Int("attempt", attempt).Msg("Received response")
		return reply, nil
	})
}

func (c *Client) exchange(ctx context.Context, conn *net.UDPConn, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := conn.WriteToUDPAddrPort(payload, c.config.ServerAddr); err != nil {
		return "", pgwerrors.Wrap("write", pgwerrors.ErrSendFailed, err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(c.config.ResponseTimeout)); err != nil {
		return "", pgwerrors.Wrap("deadline", pgwerrors.ErrSocketSetup, err)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	buf := make([]byte, constants.ReplyBufferSize)
	for {
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return "", pgwerrors.ErrResponseTimeout
			}
			return "", pgwerrors.Wrap("read", pgwerrors.ErrSendFailed, fmt.Errorf("receive reply: %w", err))
		}
		if from.Addr().Unmap() != c.config.ServerAddr.Addr() || from.Port() != c.config.ServerAddr.Port() {
			c.log.Debug().Str("from", from.String()).Msg("Ignoring datagram from unexpected peer")
			continue
		}
		return string(buf[:n]), nil
	}
}
