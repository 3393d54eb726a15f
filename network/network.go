package network

import (
	"netcore/pkb"
)

type Addr interface {
	String() string
	Raw() []byte
}

// Handler is the receive entry point of a network-layer protocol.
type Handler interface {
	// Process handles a packet whose link-layer header has been stripped.
	// The handler owns b from the call on, whatever it returns,
	// and is responsible for freeing it.
	Process(b *pkb.Buffer) error
	// AddrLen returns the length in bytes of this protocol's addresses.
	AddrLen() int
}
