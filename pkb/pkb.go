// Package pkb provides the packet buffer handed between the link layer,
// the receive queue and network-layer handlers.
//
// A *Buffer is an owning handle. Passing a buffer to another holder is done
// with [Buffer.Take], which invalidates the caller's handle. Touching an
// invalidated or freed handle panics with [ErrNotOwned].
package pkb

import (
	"netcore/link"
	"netcore/network/proto"

	"github.com/pkg/errors"
)

var (
	ErrNotOwned    = errors.New("packet buffer is not owned by this handle")
	ErrPullOverrun = errors.New("pull exceeds buffer length")
)

type Buffer struct {
	s *state
}

type state struct {
	data []byte

	linkProto link.Protocol
	netProto  proto.Number

	onFree func()
}

// New wraps data in a new buffer. The buffer owns data from now on.
func New(data []byte) *Buffer {
	return &Buffer{s: &state{data: data}}
}

func (b *Buffer) must() *state {
	if b == nil || b.s == nil {
		panic(ErrNotOwned)
	}
	return b.s
}

// Owned reports whether b still holds the buffer.
func (b *Buffer) Owned() bool { return b != nil && b.s != nil }

// Bytes returns the content from the read cursor onward.
// The slice is only valid while b is owned.
func (b *Buffer) Bytes() []byte { return b.must().data }

func (b *Buffer) Len() int { return len(b.must().data) }

// Pull removes n bytes from the head of the buffer.
func (b *Buffer) Pull(n int) error {
	s := b.must()
	if n < 0 || n > len(s.data) {
		return errors.Wrapf(ErrPullOverrun, "pulling %d of %d bytes", n, len(s.data))
	}
	s.data = s.data[n:]
	return nil
}

// LinkProtocol returns the link layer that delivered the buffer.
func (b *Buffer) LinkProtocol() link.Protocol { return b.must().linkProto }

func (b *Buffer) SetLinkProtocol(p link.Protocol) { b.must().linkProto = p }

// NetProto returns the resolved network-layer protocol.
// It is zero until the buffer has been dispatched.
func (b *Buffer) NetProto() proto.Number { return b.must().netProto }

func (b *Buffer) SetNetProto(n proto.Number) { b.must().netProto = n }

// SetFreeHook registers f to be called once when the buffer is freed.
func (b *Buffer) SetFreeHook(f func()) { b.must().onFree = f }

// Take moves the buffer into a new handle. b is unusable afterward.
func (b *Buffer) Take() *Buffer {
	s := b.must()
	b.s = nil
	return &Buffer{s: s}
}

// Free destroys the buffer.
func (b *Buffer) Free() {
	s := b.must()
	b.s = nil

	onFree := s.onFree
	*s = state{}
	if onFree != nil {
		onFree()
	}
}
