//go:build linux

package client

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/sahmadiut/pgw-sim/internal/cdr"
	"github.com/sahmadiut/pgw-sim/internal/config"
	"github.com/sahmadiut/pgw-sim/internal/server"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

func freePort(t *testing.T, network string) int {
	t.Helper()
	switch network {
	case "udp4":
		c, err := net.ListenPacket(network, "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer c.Close()
		return c.LocalAddr().(*net.UDPAddr).Port
	default:
		ln, err := net.Listen(network, "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer ln.Close()
		return ln.Addr().(*net.TCPAddr).Port
	}
}

// TestEndToEnd drives a real server with the client.
func TestEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping end-to-end test in short mode")
	}

	cfg := config.DefaultServerConfig()
	cfg.UDPIP = "127.0.0.1"
	cfg.UDPPort = freePort(t, "udp4")
	cfg.HTTPIP = "127.0.0.1"
	cfg.HTTPPort = freePort(t, "tcp4")
	cfg.Workers = 2
	cfg.Blacklist = []string{"001010000000001"}

	srv, err := server.New(cfg, logger.Nop(), server.WithRecorder(cdr.New(&strings.Builder{})))
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()
	defer func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	}()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server exited: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}

	c := New(&Config{
		ServerAddr:      netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), uint16(cfg.UDPPort)),
		ResponseTimeout: time.Second,
	}, logger.Nop())

	tests := []struct {
		imsi string
		want string
	}{
		{"001010123456789", "created"},
		{"001010123456789", "created"},
		{"001010000000001", "rejected"},
	}
	for _, tt := range tests {
		got, err := c.Send(context.Background(), tt.imsi)
		if err != nil {
			t.Fatalf("Send(%s): %v", tt.imsi, err)
		}
		if got != tt.want {
			t.Errorf("Send(%s) = %q, want %q", tt.imsi, got, tt.want)
		}
	}

	if n := srv.SessionCount(); n != 1 {
		t.Errorf("expected 1 session, got %d", n)
	}
}
