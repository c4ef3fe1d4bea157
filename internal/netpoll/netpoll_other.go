//go:build !linux

package netpoll

import (
	"errors"
	"net/netip"

	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
)

// ErrWouldBlock is returned by ReadFrom when no datagram is pending.
var ErrWouldBlock = errors.New("no datagram pending")

var errUnsupported = errors.New("epoll event loop requires linux")

// Socket is unavailable on this platform.
type Socket struct{}

// ListenUDP always fails on this platform.
func ListenUDP(ip string, port int) (*Socket, error) {
	return nil, pgwerrors.Wrap("listen", pgwerrors.ErrSocketSetup, errUnsupported)
}

func (s *Socket) Fd() int                                      { return -1 }
func (s *Socket) LocalAddr() netip.AddrPort                    { return netip.AddrPort{} }
func (s *Socket) ReadFrom([]byte) (int, netip.AddrPort, error) { return 0, netip.AddrPort{}, errUnsupported }
func (s *Socket) WriteTo([]byte, netip.AddrPort) error         { return errUnsupported }
func (s *Socket) Close() error                                 { return nil }

// Poller is unavailable on this platform.
type Poller struct{}

// NewPoller always fails on this platform.
func NewPoller() (*Poller, error) {
	return nil, pgwerrors.Wrap("poller", pgwerrors.ErrPollerSetup, errUnsupported)
}

func (p *Poller) Add(int) error        { return errUnsupported }
func (p *Poller) WakeFd() int          { return -1 }
func (p *Poller) Wait() ([]int, error) { return nil, errUnsupported }
func (p *Poller) Wake() error          { return nil }
func (p *Poller) Drain() error         { return nil }
func (p *Poller) Close() error         { return nil }
