package link

import (
	"netcore/network/proto"

	"github.com/pkg/errors"
)

var ErrMalformedFrame = errors.New("malformed link-layer frame")

// Header is what a link layer tells the receive path about a frame.
type Header struct {
	// Len is the number of bytes the link-layer header occupies
	// at the front of the frame.
	Len      int
	// NetProto is the encapsulated network-layer protocol.
	NetProto proto.Number
}

// Protocol is a link-layer framing capability.
type Protocol interface {
	Name() string
	// ParseHeader parses the link-layer header at the front of frame.
	// frame must not be retained.
	ParseHeader(frame []byte) (Header, error)
}
