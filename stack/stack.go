// Package stack is the receive path: it polls devices into the receive
// queue and dispatches queued packets to network-layer handlers, one packet
// per scheduler turn.
package stack

import (
	"fmt"
	"log/slog"

	"netcore/lib/ds/queue"
	"netcore/link"
	"netcore/netdev"
	"netcore/network"
	"netcore/network/proto"
	"netcore/pkb"
	"netcore/process"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrUnsupportedProtocol = errors.New("unsupported network-layer protocol")
	ErrNoLinkProtocol      = errors.New("packet has no link-layer protocol")
)

// HandlerError is returned when a network-layer handler fails a packet.
type HandlerError struct {
	Proto proto.Number
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s handler: %s", e.Proto, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
func (e *HandlerError) Cause() error  { return e.Err }

type Options struct {
	// Registerer receives the receive-path metrics. Nil keeps them unregistered.
	Registerer    prometheus.Registerer
	// QueueCapacity preallocates room in the receive queue.
	// The queue grows past it as needed.
	QueueCapacity uint
}

type Stack struct {
	protocols *network.Registry
	devices   *netdev.Registry
	logger    *slog.Logger

	rxq     queue.Queue[*pkb.Buffer]
	metrics *metrics
}

var (
	_ netdev.Receiver = (*Stack)(nil)
	_ process.Process = (*Stack)(nil)
)

func New(
	protocols *network.Registry,
	devices *netdev.Registry,
	logger *slog.Logger,
	opts Options,
) (*Stack, error) {
	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	return &Stack{
		protocols: protocols,
		devices:   devices,
		logger:    logger,
		rxq:       queue.NewLocked[*pkb.Buffer](queue.NewFIFO[*pkb.Buffer](opts.QueueCapacity)),
		metrics:   m,
	}, nil
}

// RegisterDevice adds dev to the set of polled devices.
// Addresses are bound separately through an address configurator.
func (s *Stack) RegisterDevice(dev netdev.Device) (netdev.ID, error) {
	return s.devices.Register(dev)
}

func (s *Stack) UnregisterDevice(dev netdev.Device) error {
	return s.devices.Unregister(dev)
}

// Rx queues a frame received by dev. The stack takes ownership of b.
// Rx may be called from any goroutine.
func (s *Stack) Rx(dev netdev.Device, b *pkb.Buffer) {
	b = b.Take()
	b.SetLinkProtocol(dev.LinkProtocol())

	s.rxq.Enqueue(b)
	s.metrics.received.Inc()
	s.metrics.queueDepth.Set(float64(s.rxq.Len()))
}

// Poll polls every registered device, in registration order.
// It reports whether packets are waiting in the receive queue.
func (s *Stack) Poll() bool {
	for _, dev := range s.devices.Devices() {
		dev.Poll(s)
	}
	return s.rxq.Len() > 0
}

// Dequeue removes the oldest queued packet and hands it to the caller.
// It returns nil if the queue is empty.
func (s *Stack) Dequeue() *pkb.Buffer {
	b, err := s.rxq.Dequeue()
	if err != nil {
		return nil
	}
	s.metrics.queueDepth.Set(float64(s.rxq.Len()))
	return b
}

// Len returns the number of queued packets.
func (s *Stack) Len() uint { return s.rxq.Len() }

// Process strips the link-layer header of b and hands the rest to the
// network-layer handler of the encapsulated protocol.
// Process takes ownership of b. Packets of unknown protocols are dropped
// with ErrUnsupportedProtocol. Handler failures come back as *HandlerError.
func (s *Stack) Process(b *pkb.Buffer) error {
	b = b.Take()

	lp := b.LinkProtocol()
	if lp == nil {
		s.drop(b, dropNoLink)
		return ErrNoLinkProtocol
	}

	hdr, err := lp.ParseHeader(b.Bytes())
	if err != nil {
		s.drop(b, dropMalformed)
		return errors.Wrapf(err, "parsing %s header", lp.Name())
	}

	h, err := s.protocols.Lookup(hdr.NetProto)
	if err != nil {
		s.drop(b, dropUnsupported)
		return errors.Wrapf(ErrUnsupportedProtocol, "%s", hdr.NetProto)
	}
	b.SetNetProto(hdr.NetProto)

	if err := b.Pull(hdr.Len); err != nil {
		s.drop(b, dropMalformed)
		return errors.Wrapf(link.ErrMalformedFrame, "stripping %s header: %s", lp.Name(), err.Error())
	}

	s.metrics.dispatched.WithLabelValues(hdr.NetProto.String()).Inc()
	if err := h.Process(b.Take()); err != nil {
		s.metrics.handlerErrors.WithLabelValues(hdr.NetProto.String()).Inc()
		return &HandlerError{Proto: hdr.NetProto, Err: err}
	}
	return nil
}

// Step is one turn of the network stack: poll all devices, process at most
// one received packet, and reschedule.
//
// Processing a packet may queue a reply for transmission, and transmit
// completions are only reaped by polling. Handling one packet per poll keeps
// generated traffic within what small transmit rings can absorb.
func (s *Stack) Step(sched *process.Scheduler) {
	defer sched.Schedule(s)

	s.Poll()

	b := s.Dequeue()
	if b == nil {
		return
	}
	if err := s.Process(b); err != nil {
		s.logProcessError(err)
	}
}

// Start schedules the stack's first step.
func (s *Stack) Start(sched *process.Scheduler) {
	sched.Schedule(s)
}

// Flush drops every queued packet and returns how many were dropped.
func (s *Stack) Flush() int {
	n := 0
	for b := s.Dequeue(); b != nil; b = s.Dequeue() {
		s.drop(b, dropFlushed)
		n++
	}
	return n
}

func (s *Stack) drop(b *pkb.Buffer, reason string) {
	b.Free()
	s.metrics.dropped.WithLabelValues(reason).Inc()
}

func (s *Stack) logProcessError(err error) {
	var herr *HandlerError
	switch {
	case errors.Is(err, ErrUnsupportedProtocol):
		s.logger.Debug("dropped packet of unknown network-layer protocol", "error", err.Error())
	case errors.Is(err, link.ErrMalformedFrame):
		s.logger.Debug("dropped malformed frame", "error", err.Error())
	case errors.As(err, &herr):
		s.logger.Warn("network-layer protocol dropped packet",
			"proto", herr.Proto.String(),
			"error", herr.Err.Error(),
		)
	default:
		s.logger.Warn("failed to process received packet", "error", err.Error())
	}
}
