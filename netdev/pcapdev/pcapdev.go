// Package pcapdev replays a pcap capture as a network device.
package pcapdev

import (
	"io"
	"time"

	"netcore/link"
	"netcore/link/ethernet"
	"netcore/netdev"
	"netcore/pkb"

	"github.com/benbjohnson/clock"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
)

var ErrUnsupportedLinkType = errors.New("unsupported capture link type")

type Options struct {
	// PollBudget caps the frames delivered per Poll. Zero means one.
	PollBudget uint
	// Paced delivers each frame no earlier than its capture timestamp,
	// measured from the first Poll.
	Paced      bool
}

type Device struct {
	name  string
	r     *pcapgo.Reader
	link  link.Protocol
	clock clock.Clock
	opts  Options

	start, first time.Time

	pending    []byte
	pendingAt  time.Time
	hasPending bool

	err error
}

var _ netdev.Device = (*Device)(nil)

func New(name string, r io.Reader, clock clock.Clock, opts Options) (*Device, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading pcap header")
	}

	var l link.Protocol
	switch pr.LinkType() {
	case layers.LinkTypeEthernet:
		l = ethernet.Ethernet{}
	default:
		return nil, errors.Wrapf(ErrUnsupportedLinkType, "%s", pr.LinkType())
	}

	if opts.PollBudget == 0 {
		opts.PollBudget = 1
	}

	return &Device{
		name:  name,
		r:     pr,
		link:  l,
		clock: clock,
		opts:  opts,
	}, nil
}

func (d *Device) Name() string                { return d.name }
func (d *Device) LinkProtocol() link.Protocol { return d.link }

// Err returns io.EOF once the capture is exhausted, or the read error
// that stopped the replay.
func (d *Device) Err() error { return d.err }

func (d *Device) Done() bool { return d.err != nil }

func (d *Device) Poll(rx netdev.Receiver) {
	for n := uint(0); n < d.opts.PollBudget; n++ {
		if !d.hasPending && !d.next() {
			return
		}

		if d.opts.Paced && d.clock.Since(d.start) < d.pendingAt.Sub(d.first) {
			return
		}

		frame := d.pending
		d.pending, d.hasPending = nil, false
		rx.Rx(d, pkb.New(frame))
	}
}

func (d *Device) next() bool {
	if d.err != nil {
		return false
	}

	data, ci, err := d.r.ReadPacketData()
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = errors.Wrap(err, "truncated capture")
		}
		d.err = err
		return false
	}

	if d.start.IsZero() {
		d.start = d.clock.Now()
		d.first = ci.Timestamp
	}

	d.pending, d.pendingAt, d.hasPending = data, ci.Timestamp, true
	return true
}
