package server

import (
	"net/netip"

	"github.com/sahmadiut/pgw-sim/internal/netpoll"
)

// Replier sends a reply datagram to a peer.
type Replier interface {
	WriteTo(b []byte, to netip.AddrPort) error
}

// PacketConn is the non-blocking datagram socket the event loop reads from.
type PacketConn interface {
	Replier
	Fd() int
	ReadFrom(buf []byte) (int, netip.AddrPort, error)
	LocalAddr() netip.AddrPort
	Close() error
}

// SocketFactory binds the request socket. Tests substitute their own.
type SocketFactory func(ip string, port int) (PacketConn, error)

// ListenUDP is the default SocketFactory.
func ListenUDP(ip string, port int) (PacketConn, error) {
	s, err := netpoll.ListenUDP(ip, port)
	if err != nil {
		return nil, err
	}
	return s, nil
}
