package main

import (
	"log/slog"

	"netcore/netdev"
	"netcore/network"
	ipv4 "netcore/network/ip/v4"
	"netcore/network/proto"
	"netcore/pkb"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

// ipv4Sink accepts IPv4 datagrams addressed to one of our devices
// and counts everything else.
type ipv4Sink struct {
	devices *netdev.Registry
	logger  *slog.Logger

	delivered, foreign uint64
}

var _ network.Handler = (*ipv4Sink)(nil)

func newIPv4Sink(devices *netdev.Registry, logger *slog.Logger) *ipv4Sink {
	return &ipv4Sink{devices: devices, logger: logger.With("proto", proto.IPv4.String())}
}

func (h *ipv4Sink) AddrLen() int { return ipv4.AddrLen }

func (h *ipv4Sink) Process(b *pkb.Buffer) error {
	defer b.Free()

	var ip layers.IPv4
	if err := ip.DecodeFromBytes(b.Bytes(), gopacket.NilDecodeFeedback); err != nil {
		return errors.Wrap(err, "decoding ipv4 header")
	}

	dev, err := h.devices.FindByAddress(proto.IPv4, ip.DstIP.To4())
	if err != nil {
		h.foreign++
		h.logger.Debug("datagram not addressed to us", "dst", ip.DstIP.String())
		return nil
	}

	h.delivered++
	h.logger.Debug("datagram delivered",
		"device", dev.Name(),
		"src", ip.SrcIP.String(),
		"dst", ip.DstIP.String(),
		"next", ip.Protocol.String(),
		"len", ip.Length,
	)
	return nil
}
