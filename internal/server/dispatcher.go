package server

import (
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/sahmadiut/pgw-sim/internal/bcd"
	"github.com/sahmadiut/pgw-sim/internal/cdr"
	"github.com/sahmadiut/pgw-sim/internal/constants"
	"github.com/sahmadiut/pgw-sim/internal/metrics"
	"github.com/sahmadiut/pgw-sim/internal/session"
	"github.com/sahmadiut/pgw-sim/pkg/logger"
)

// Task is one inbound datagram waiting for a worker.
type Task struct {
	ID       uuid.UUID
	Payload  []byte
	From     netip.AddrPort
	Replier  Replier
	Received time.Time
}

// NewTask copies payload so the caller may reuse its read buffer.
func NewTask(payload []byte, from netip.AddrPort, replier Replier) Task {
	return Task{
		ID:       uuid.New(),
		Payload:  append([]byte(nil), payload...),
		From:     from,
		Replier:  replier,
		Received: time.Now(),
	}
}

// Dispatcher applies admission policy to decoded requests.
type Dispatcher struct {
	table     *session.Table
	blacklist map[string]struct{}
	recorder  cdr.Recorder
	metrics   *metrics.Collector
	log       *logger.Logger
}

// NewDispatcher builds a dispatcher. The blacklist is copied and never
// modified afterwards.
func NewDispatcher(table *session.Table, blacklist []string, recorder cdr.Recorder, m *metrics.Collector, log *logger.Logger) *Dispatcher {
	if m == nil {
		m = metrics.NewCollector()
	}
	if log == nil {
		log = logger.Nop()
	}
	set := make(map[string]struct{}, len(blacklist))
	for _, imsi := range blacklist {
		set[imsi] = struct{}{}
	}
	return &Dispatcher{
		table:     table,
		blacklist: set,
		recorder:  recorder,
		metrics:   m,
		log:       log,
	}
}

// Blacklisted reports whether imsi is refused service.
func (d *Dispatcher) Blacklisted(imsi string) bool {
	_, ok := d.blacklist[imsi]
	return ok
}

// Handle decodes the task payload, admits or rejects the subscriber and
// sends the reply. Malformed payloads are dropped without a reply.
func (d *Dispatcher) Handle(task Task) {
	imsi := bcd.Decode(task.Payload)
	if !bcd.ValidIMSI(imsi) {
		d.log.Warn().
			Str("task_id", task.ID.String()).
			Str("from", task.From.String()).
			Str("decoded", imsi).
			Int("length", len(task.Payload)).
			Msg("Dropping malformed request")
		d.metrics.RecordDrop(metrics.DropMalformed)
		return
	}

	reply := d.Admit(imsi)
	d.metrics.RecordReply(reply)

	if err := task.Replier.WriteTo([]byte(reply), task.From); err != nil {
		d.log.Error().Err(err).
			Str("imsi", imsi).
			Str("to", task.From.String()).
			Msg("Failed to send reply")
		d.metrics.RecordReplyError()
		return
	}

	d.log.Debug().
		Str("task_id", task.ID.String()).
		Str("imsi", imsi).
		Str("reply", reply).
		Msg("Request handled")
}

// Admit applies the admission policy to a valid IMSI and returns the reply.
// A repeat request for a live session is answered but never refreshes it.
func (d *Dispatcher) Admit(imsi string) string {
	if d.Blacklisted(imsi) {
		d.log.Info().Str("imsi", imsi).Msg("Rejected blacklisted subscriber")
		return constants.ReplyRejected
	}

	created := d.table.Insert(imsi, func(id string) {
		d.metrics.RecordSessionCreated()
		if d.recorder == nil {
			return
		}
		if err := d.recorder.Write(id, constants.ActionCreate); err != nil {
			d.log.Error().Err(err).Str("imsi", id).Msg("Failed to write CDR")
			d.metrics.RecordCDRError()
		}
	})
	if created {
		d.log.Info().Str("imsi", imsi).Msg("Session created")
	}
	return constants.ReplyCreated
}
