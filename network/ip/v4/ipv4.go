package ipv4

import (
	"encoding/binary"
	"math/bits"
	"strconv"
	"strings"

	"netcore/network"

	"github.com/pkg/errors"
)

// AddrLen is the length of an IPv4 address in bytes.
const AddrLen = 4

type Addr [AddrLen]byte

var _ network.Addr = Addr{}

// Broadcast doubles as "no address", e.g. an absent gateway.
var Broadcast = Addr{0xFF, 0xFF, 0xFF, 0xFF}

func ParseAddr(s string) (Addr, error) {
	digits := strings.Split(s, ".")
	if len(digits) != 4 {
		return Addr{}, errors.New("digits are not properly seperated")
	}

	var addr Addr
	for idx, digit := range digits {
		n, err := strconv.ParseUint(digit, 10, 8)
		if err != nil {
			return Addr{}, errors.Wrap(err, "failed to parse a part into digit")
		}

		if digit[0] == '0' && !(n == 0 && len(digit) == 1) {
			// '00', '01'
			return Addr{}, errors.New("leading zero is not allowed in digit")
		}
		addr[idx] = byte(n)
	}

	return addr, nil
}

// ParseMask parses a dotted netmask. The set bits must be contiguous.
func ParseMask(s string) (Addr, error) {
	mask, err := ParseAddr(s)
	if err != nil {
		return Addr{}, err
	}

	v := mask.ToUint32()
	if bits.LeadingZeros32(^v) != bits.OnesCount32(v) {
		return Addr{}, errors.Errorf("netmask %s is not contiguous", s)
	}
	return mask, nil
}

func (a Addr) ToUint32() uint32 { return binary.BigEndian.Uint32(a[:]) }

func (a Addr) Raw() []byte { return a[:] }

func (a Addr) String() string {
	return strconv.Itoa(int(a[0])) + "." +
		strconv.Itoa(int(a[1])) + "." +
		strconv.Itoa(int(a[2])) + "." +
		strconv.Itoa(int(a[3]))
}
