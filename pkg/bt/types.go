package bt

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Address is a Bluetooth device address in colon-separated upper-case hex
// form ("F0:F1:F2:F3:F4:F5").
type Address string

// NewRandomAddress generates a random static address. The two most
// significant bits of a random static address must be 0b11.
func NewRandomAddress() Address {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("bt: reading random bytes: %v", err))
	}
	b[0] |= 0xC0
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return Address(strings.Join(parts, ":"))
}

// Normalize returns the address in canonical upper-case form. Endpoint
// callback payloads compare addresses as strings, so both sides must agree
// on case.
func (a Address) Normalize() Address {
	return Address(strings.ToUpper(string(a)))
}

func (a Address) String() string { return string(a) }

// AddressType is the LE own-address type used when advertising or
// connecting.
type AddressType uint8

const (
	// AddressTypePublic is the public device address.
	AddressTypePublic AddressType = 0x00
	// AddressTypeRandom is a random static device address.
	AddressTypeRandom AddressType = 0x01
)

func (t AddressType) String() string {
	switch t {
	case AddressTypePublic:
		return "public"
	case AddressTypeRandom:
		return "random"
	default:
		return fmt.Sprintf("address_type(%d)", uint8(t))
	}
}

// Transport selects the physical transport of a link.
type Transport uint8

const (
	// TransportLE is the Low Energy transport.
	TransportLE Transport = 0x00
	// TransportClassic is the BR/EDR transport.
	TransportClassic Transport = 0x01
)

func (t Transport) String() string {
	switch t {
	case TransportLE:
		return "le"
	case TransportClassic:
		return "classic"
	default:
		return fmt.Sprintf("transport(%d)", uint8(t))
	}
}

// BondState is the bonding state reported by the DUT adapter callbacks.
// Values match the Android BluetoothDevice BOND_* constants.
type BondState int

const (
	// BondNone means no bond exists with the peer.
	BondNone BondState = 10
	// BondBonding means a bonding procedure is in progress.
	BondBonding BondState = 11
	// BondBonded means authenticated pairing credentials are stored.
	BondBonded BondState = 12
)

func (s BondState) String() string {
	switch s {
	case BondNone:
		return "NONE"
	case BondBonding:
		return "BONDING"
	case BondBonded:
		return "BONDED"
	default:
		return fmt.Sprintf("bond_state(%d)", int(s))
	}
}

// Terminal reports whether the state is an absorbing outcome of a bonding
// attempt. BONDING is transitional and never terminal.
func (s BondState) Terminal() bool {
	return s == BondNone || s == BondBonded
}

// Direction distinguishes which endpoint initiates an operation. It applies
// independently to connection establishment and to pairing initiation:
// DUT-to-REF is outgoing, REF-to-DUT is incoming.
type Direction int

const (
	// DirectionIncoming means the REF endpoint initiates.
	DirectionIncoming Direction = iota + 1
	// DirectionOutgoing means the DUT endpoint initiates.
	DirectionOutgoing
)

func (d Direction) String() string {
	switch d {
	case DirectionIncoming:
		return "incoming"
	case DirectionOutgoing:
		return "outgoing"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Directions lists all directions in enumeration order.
func Directions() []Direction {
	return []Direction{DirectionIncoming, DirectionOutgoing}
}
