// Package netpoll provides the raw UDP socket and readiness multiplexer used
// by the PGW event loop.
//
// The Linux implementation uses golang.org/x/sys/unix directly: a
// non-blocking AF_INET datagram socket, a level-triggered epoll instance and
// an eventfd used to wake the loop for shutdown. Other platforms get stubs
// that fail at construction.
package netpoll
