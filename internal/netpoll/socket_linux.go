//go:build linux

package netpoll

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"golang.org/x/sys/unix"

	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
)

// ErrWouldBlock is returned by ReadFrom when no datagram is pending.
var ErrWouldBlock = errors.New("no datagram pending")

// Socket is a non-blocking IPv4 UDP socket.
type Socket struct {
	fd     int
	local  netip.AddrPort
	closed bool
	mu     sync.RWMutex
}

// ListenUDP creates a non-blocking UDP socket bound to ip:port.
func ListenUDP(ip string, port int) (*Socket, error) {
	if port <= 0 || port > 65535 {
		return nil, pgwerrors.NewPGWError("listen", pgwerrors.ErrSocketSetup, nil, fmt.Sprintf("invalid UDP port %d", port))
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return nil, pgwerrors.NewPGWError("listen", pgwerrors.ErrSocketSetup, err, fmt.Sprintf("invalid IPv4 address %q", ip))
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, pgwerrors.Wrap("socket", pgwerrors.ErrSocketSetup, err)
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: addr.As4()}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, pgwerrors.NewPGWError("bind", pgwerrors.ErrSocketSetup, err, netip.AddrPortFrom(addr, uint16(port)).String())
	}

	return &Socket{
		fd:    fd,
		local: netip.AddrPortFrom(addr, uint16(port)),
	}, nil
}

// Fd returns the socket descriptor for readiness registration.
func (s *Socket) Fd() int {
	return s.fd
}

// LocalAddr returns the bound address.
func (s *Socket) LocalAddr() netip.AddrPort {
	return s.local
}

// ReadFrom reads one datagram. Bytes beyond len(buf) are discarded by the
// kernel. ErrWouldBlock means the readiness was spurious.
func (s *Socket) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, netip.AddrPort{}, unix.EBADF
	}

	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, netip.AddrPort{}, ErrWouldBlock
		}
		return 0, netip.AddrPort{}, fmt.Errorf("recvfrom: %w", err)
	}

	sa, ok := from.(*unix.SockaddrInet4)
	if !ok {
		return n, netip.AddrPort{}, fmt.Errorf("recvfrom: unexpected address family %T", from)
	}
	return n, netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), uint16(sa.Port)), nil
}

// WriteTo sends b as one datagram to the given IPv4 address.
func (s *Socket) WriteTo(b []byte, to netip.AddrPort) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return unix.EBADF
	}
	if !to.Addr().Is4() {
		return fmt.Errorf("sendto %s: not an IPv4 address", to)
	}

	sa := &unix.SockaddrInet4{Port: int(to.Port()), Addr: to.Addr().As4()}
	if err := unix.Sendto(s.fd, b, 0, sa); err != nil {
		return fmt.Errorf("sendto %s: %w", to, err)
	}
	return nil
}

// Close releases the descriptor. Further calls are no-ops.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}
