package log

import (
	"time"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

// Role identifies which endpoint produced an event.
type Role uint8

const (
	// RoleHarness marks events from the orchestration logic itself.
	RoleHarness Role = 0
	// RoleDut marks events observed on the device under test.
	RoleDut Role = 1
	// RoleRef marks events observed on the reference endpoint.
	RoleRef Role = 2
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleHarness:
		return "harness"
	case RoleDut:
		return "dut"
	case RoleRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryConnection covers link establishment and teardown.
	CategoryConnection Category = 0
	// CategoryPairing covers pairing negotiation milestones.
	CategoryPairing Category = 1
	// CategoryBond covers DUT bond-state transitions.
	CategoryBond Category = 2
	// CategoryError covers failures at any layer.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryConnection:
		return "connection"
	case CategoryPairing:
		return "pairing"
	case CategoryBond:
		return "bond"
	case CategoryError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one record of a conformance run. CBOR encoding uses integer keys
// for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// CaseID identifies the scenario case (UUID per run of a case).
	CaseID string `cbor:"2,keyasint"`

	// Role indicates which endpoint the event concerns.
	Role Role `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// Message is a short human-readable description.
	Message string `cbor:"5,keyasint,omitempty"`

	// PeerAddress is the remote address involved, if any.
	PeerAddress string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (at most one is set).
	Pairing *PairingEventData `cbor:"7,keyasint,omitempty"`
	Bond    *BondEventData    `cbor:"8,keyasint,omitempty"`
	Error   *ErrorEventData   `cbor:"9,keyasint,omitempty"`
}

// PairingEventData records a pairing prompt or answer.
type PairingEventData struct {
	// Method is the reported confirmation method.
	Method string `cbor:"1,keyasint"`

	// Value is the numeric payload, when the method carries one.
	Value *uint32 `cbor:"2,keyasint,omitempty"`

	// Accept is the answer given, for answer events.
	Accept bool `cbor:"3,keyasint,omitempty"`
}

// BondEventData records a DUT bond-state transition.
type BondEventData struct {
	State int `cbor:"1,keyasint"`
}

// ErrorEventData records a failure.
type ErrorEventData struct {
	Message string `cbor:"1,keyasint"`
}

// NewBondEvent builds a bond-state transition event.
func NewBondEvent(caseID string, peer bt.Address, state bt.BondState) Event {
	return Event{
		Timestamp:   time.Now(),
		CaseID:      caseID,
		Role:        RoleDut,
		Category:    CategoryBond,
		PeerAddress: string(peer),
		Bond:        &BondEventData{State: int(state)},
	}
}

// NewPairingEvent builds a pairing milestone event for the given role.
func NewPairingEvent(caseID string, role Role, peer bt.Address, method string, value *uint32) Event {
	return Event{
		Timestamp:   time.Now(),
		CaseID:      caseID,
		Role:        role,
		Category:    CategoryPairing,
		PeerAddress: string(peer),
		Pairing:     &PairingEventData{Method: method, Value: value},
	}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(caseID string, role Role, err error) Event {
	return Event{
		Timestamp: time.Now(),
		CaseID:    caseID,
		Role:      role,
		Category:  CategoryError,
		Error:     &ErrorEventData{Message: err.Error()},
	}
}
