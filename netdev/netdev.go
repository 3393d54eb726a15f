// Package netdev keeps track of the live network devices and of the
// network-layer addresses bound to each of them.
package netdev

import (
	"netcore/link"
	"netcore/network/proto"
	"netcore/pkb"
)

// ID identifies a registered device. IDs are never reused.
type ID uint32

// Device is a network device as seen by the receive path.
// Implementations must be comparable, typically a pointer.
type Device interface {
	Name() string
	// LinkProtocol returns the framing of frames delivered by this device.
	LinkProtocol() link.Protocol
	// Poll checks the hardware and hands every received frame to rx.
	// It must not block.
	Poll(rx Receiver)
}

// Receiver accepts frames from polled devices.
type Receiver interface {
	// Rx takes ownership of b.
	Rx(dev Device, b *pkb.Buffer)
}

// AddrConfigurator assigns network-layer addresses to devices.
// It is invoked explicitly after a device has been registered,
// and asked to release the addresses when the device goes away.
type AddrConfigurator interface {
	Bind(dev Device, n proto.Number, addr, mask, gateway []byte) error
	Unbind(dev Device) error
}

// NopConfigurator binds nothing.
type NopConfigurator struct{}

func (NopConfigurator) Bind(Device, proto.Number, []byte, []byte, []byte) error { return nil }
func (NopConfigurator) Unbind(Device) error                                     { return nil }

// Address is a network-layer address bound to a device.
type Address struct {
	Proto proto.Number
	Addr  []byte
}
