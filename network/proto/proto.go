package proto

import "fmt"

// Number identifies a network-layer protocol as carried in a link-layer
// header. Values are the EtherType, decoded from network byte order.
//
// Reference: https://www.iana.org/assignments/ieee-802-numbers/ieee-802-numbers.xhtml
type Number uint16

const (
	IPv4 Number = 0x0800
	ARP  Number = 0x0806
	IPv6 Number = 0x86DD
)

func (n Number) String() string {
	switch n {
	case IPv4:
		return "IPv4"
	case ARP:
		return "ARP"
	case IPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("0x%04x", uint16(n))
	}
}
