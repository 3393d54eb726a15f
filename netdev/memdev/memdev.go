// Package memdev provides a software network device whose "hardware" is an
// in-memory backlog of frames.
package memdev

import (
	"sync/atomic"

	"netcore/link"
	"netcore/netdev"
	"netcore/pkb"
)

type Options struct {
	// Backlog is the number of frames Inject can hold before dropping.
	Backlog    uint
	// PollBudget caps the frames delivered per Poll. Zero means no cap.
	PollBudget uint
}

type Device struct {
	name string
	link link.Protocol
	opts Options

	frames  chan []byte
	dropped atomic.Uint64
}

var _ netdev.Device = (*Device)(nil)

func New(name string, l link.Protocol, opts Options) *Device {
	return &Device{
		name:   name,
		link:   l,
		opts:   opts,
		frames: make(chan []byte, opts.Backlog),
	}
}

func (d *Device) Name() string                { return d.name }
func (d *Device) LinkProtocol() link.Protocol { return d.link }

// Inject queues frame as if it had arrived on the wire.
// It never blocks; false means the backlog was full and frame was dropped.
// Inject is safe to call from any goroutine.
func (d *Device) Inject(frame []byte) bool {
	select {
	case d.frames <- frame:
		return true
	default:
		d.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of frames Inject dropped.
func (d *Device) Dropped() uint64 { return d.dropped.Load() }

// Pending returns the number of frames waiting for the next Poll.
func (d *Device) Pending() int { return len(d.frames) }

func (d *Device) Poll(rx netdev.Receiver) {
	for n := uint(0); d.opts.PollBudget == 0 || n < d.opts.PollBudget; n++ {
		select {
		case frame := <-d.frames:
			rx.Rx(d, pkb.New(frame))
		default:
			return
		}
	}
}
