package pkb

import (
	"testing"

	"netcore/link"
	"netcore/network/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct{}

func (fakeLink) Name() string                            { return "fake" }
func (fakeLink) ParseHeader([]byte) (link.Header, error) { return link.Header{}, nil }

func TestPull(t *testing.T) {
	testcases := []struct {
		desc     string
		data     []byte
		n        int
		expected []byte
		wantErr  bool
	}{
		{desc: "partial", data: []byte{1, 2, 3, 4}, n: 2, expected: []byte{3, 4}},
		{desc: "nothing", data: []byte{1, 2}, n: 0, expected: []byte{1, 2}},
		{desc: "everything", data: []byte{1, 2}, n: 2, expected: []byte{}},
		{desc: "overrun", data: []byte{1, 2}, n: 3, expected: []byte{1, 2}, wantErr: true},
		{desc: "negative", data: []byte{1, 2}, n: -1, expected: []byte{1, 2}, wantErr: true},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			b := New(tc.data)

			err := b.Pull(tc.n)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrPullOverrun)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, b.Bytes())
			assert.Equal(t, len(tc.expected), b.Len())
		})
	}
}

func TestTags(t *testing.T) {
	b := New(make([]byte, 8))

	assert.Nil(t, b.LinkProtocol())
	assert.Zero(t, b.NetProto())

	b.SetLinkProtocol(fakeLink{})
	b.SetNetProto(proto.IPv4)

	assert.Equal(t, fakeLink{}, b.LinkProtocol())
	assert.Equal(t, proto.IPv4, b.NetProto())
}

func TestTakeMovesOwnership(t *testing.T) {
	b := New([]byte{1, 2, 3})
	b.SetNetProto(proto.ARP)

	moved := b.Take()

	assert.False(t, b.Owned())
	assert.True(t, moved.Owned())
	assert.Equal(t, []byte{1, 2, 3}, moved.Bytes())
	assert.Equal(t, proto.ARP, moved.NetProto())

	assert.PanicsWithValue(t, ErrNotOwned, func() { b.Len() })
	assert.PanicsWithValue(t, ErrNotOwned, func() { _ = b.Pull(1) })
	assert.PanicsWithValue(t, ErrNotOwned, func() { b.Take() })
}

func TestFree(t *testing.T) {
	b := New([]byte{1, 2, 3})

	freed := 0
	b.SetFreeHook(func() { freed++ })

	b.Free()
	require.Equal(t, 1, freed)
	assert.False(t, b.Owned())

	// Double free is a use of a dead handle.
	assert.PanicsWithValue(t, ErrNotOwned, func() { b.Free() })
	assert.Equal(t, 1, freed)
}

func TestFreeAfterTake(t *testing.T) {
	b := New([]byte{1})

	freed := 0
	b.SetFreeHook(func() { freed++ })

	moved := b.Take()
	moved.Free()

	assert.Equal(t, 1, freed)
	assert.False(t, moved.Owned())
}

func TestNilBuffer(t *testing.T) {
	var b *Buffer
	assert.False(t, b.Owned())
	assert.PanicsWithValue(t, ErrNotOwned, func() { b.Bytes() })
}
