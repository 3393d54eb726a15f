// Package ethernet implements Ethernet II framing, including 802.1Q and
// 802.1ad VLAN tags, on top of gopacket's decoders.
package ethernet

import (
	"net"

	"netcore/link"
	"netcore/network/proto"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

// HeaderLen is the length of an untagged Ethernet II header.
const HeaderLen = 14

const vlanTagLen = 4

type Ethernet struct{}

var _ link.Protocol = Ethernet{}

func (Ethernet) Name() string { return "ethernet" }

func (Ethernet) ParseHeader(frame []byte) (link.Header, error) {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
		return link.Header{}, errors.Wrap(link.ErrMalformedFrame, err.Error())
	}

	hdrLen := len(eth.Contents)
	next := eth.EthernetType

	// Skip VLAN tags until the encapsulated protocol shows up.
	var tag layers.Dot1Q
	for next == layers.EthernetTypeDot1Q || next == layers.EthernetTypeQinQ {
		if len(frame)-hdrLen < vlanTagLen {
			return link.Header{}, errors.Wrap(link.ErrMalformedFrame, "truncated vlan tag")
		}
		if err := tag.DecodeFromBytes(frame[hdrLen:], gopacket.NilDecodeFeedback); err != nil {
			return link.Header{}, errors.Wrap(link.ErrMalformedFrame, err.Error())
		}
		hdrLen += len(tag.Contents)
		next = tag.Type
	}

	if next == layers.EthernetTypeLLC {
		return link.Header{}, errors.Wrap(link.ErrMalformedFrame, "802.3 length frame carries no ethertype")
	}

	return link.Header{Len: hdrLen, NetProto: proto.Number(next)}, nil
}

// Frame serializes an Ethernet II frame around payload.
// Frames shorter than the minimum size are zero-padded.
func Frame(dst, src net.HardwareAddr, t proto.Number, payload []byte) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	eth := &layers.Ethernet{
		DstMAC:       dst,
		SrcMAC:       src,
		EthernetType: layers.EthernetType(t),
	}
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, eth, gopacket.Payload(payload)); err != nil {
		return nil, errors.Wrap(err, "serializing ethernet frame")
	}
	return buf.Bytes(), nil
}
