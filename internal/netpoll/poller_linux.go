//go:build linux

package netpoll

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/sahmadiut/pgw-sim/internal/constants"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
)

// Poller waits for readability on registered descriptors and on an
// internal eventfd used as the wakeup signal.
type Poller struct {
	epfd   int
	wakefd int
	events []unix.EpollEvent
	ready  []int
	closed bool
	mu     sync.Mutex
}

// NewPoller creates the epoll instance and the wakeup eventfd.
func NewPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, pgwerrors.Wrap("epoll_create1", pgwerrors.ErrPollerSetup, err)
	}

	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, pgwerrors.Wrap("eventfd", pgwerrors.ErrPollerSetup, err)
	}

	p := &Poller{
		epfd:   epfd,
		wakefd: wakefd,
		events: make([]unix.EpollEvent, constants.MaxPollEvents),
	}
	if err := p.Add(wakefd); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Add registers fd for level-triggered read readiness.
func (p *Poller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return pgwerrors.Wrap("epoll_ctl", pgwerrors.ErrPollerSetup, err)
	}
	return nil
}

// WakeFd returns the wakeup descriptor as reported by Wait.
func (p *Poller) WakeFd() int {
	return p.wakefd
}

// Wait blocks until at least one registered descriptor is readable and
// returns the ready descriptors. The slice is reused by the next call.
// Interrupted waits are retried.
func (p *Poller) Wait() ([]int, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("epoll_wait: %w", err)
		}

		p.ready = p.ready[:0]
		for i := 0; i < n; i++ {
			p.ready = append(p.ready, int(p.events[i].Fd))
		}
		return p.ready, nil
	}
}

// Wake makes a blocked Wait return the wakeup descriptor. Safe to call from
// any goroutine, and after Close.
func (p *Poller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}

	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(p.wakefd, buf[:]); err != nil && err != unix.EAGAIN {
		return fmt.Errorf("eventfd write: %w", err)
	}
	return nil
}

// Drain resets the wakeup counter.
func (p *Poller) Drain() error {
	var buf [8]byte
	n, err := unix.Read(p.wakefd, buf[:])
	if err != nil {
		if err == unix.EAGAIN {
			return nil
		}
		return fmt.Errorf("eventfd read: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("eventfd read: expected %d bytes, got %d", len(buf), n)
	}
	return nil
}

// Close releases the epoll and eventfd descriptors. Further calls are no-ops.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return errors.Join(unix.Close(p.epfd), unix.Close(p.wakefd))
}
