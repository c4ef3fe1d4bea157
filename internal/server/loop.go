package server

import (
	"errors"

	"github.com/sahmadiut/pgw-sim/internal/constants"
	pgwerrors "github.com/sahmadiut/pgw-sim/internal/errors"
	"github.com/sahmadiut/pgw-sim/internal/metrics"
	"github.com/sahmadiut/pgw-sim/internal/netpoll"
)

// loop waits for readiness on the request socket and the wake descriptor.
// Each socket readiness yields exactly one datagram read. The loop returns
// nil once woken for shutdown, or the wait error that forced it to stop.
func (s *Server) loop(conn PacketConn, poller *netpoll.Poller) error {
	buf := make([]byte, constants.DatagramBufferSize)
	wakeFd := poller.WakeFd()
	connFd := conn.Fd()

	for s.Running() {
		ready, err := poller.Wait()
		if err != nil {
			s.log.Error().Err(err).Msg("Readiness wait failed, draining")
			s.Shutdown()
			return pgwerrors.Wrap("wait", pgwerrors.ErrPollerSetup, err)
		}

		for _, fd := range ready {
			switch fd {
			case wakeFd:
				if err := poller.Drain(); err != nil {
					s.log.Warn().Err(err).Msg("Failed to drain wake descriptor")
				}
				return nil
			case connFd:
				s.readOne(conn, buf)
			}
		}
	}
	return nil
}

func (s *Server) readOne(conn PacketConn, buf []byte) {
	n, from, err := conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, netpoll.ErrWouldBlock) {
			return
		}
		s.log.Warn().Err(err).Msg("Failed to read datagram")
		s.metrics.RecordDrop(metrics.DropReadError)
		return
	}
	s.metrics.RecordDatagram()

	if err := s.pool.Submit(NewTask(buf[:n], from, conn)); err != nil {
		s.log.Debug().Err(err).Str("from", from.String()).Msg("Dropping datagram, pool stopped")
		s.metrics.RecordDrop(metrics.DropQueueClosed)
	}
}
