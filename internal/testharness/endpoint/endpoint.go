// Package endpoint defines the control surface the harness drives on both
// sides of a pairing scenario: the reference stack's radio API and the
// DUT's adapter/bond API. Implementations live elsewhere (in-memory
// simulation, remote agents); the orchestrator depends only on these
// interfaces.
package endpoint

import (
	"context"
	"io"

	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

// Event names emitted by Ref.Events().
const (
	// EventConnection delivers a Link when a peer connects to REF.
	EventConnection = "connection"
	// EventAdvertisement delivers an Advertisement per scan report.
	EventAdvertisement = "advertisement"
	// EventDisconnection delivers a Link when it is torn down.
	EventDisconnection = "disconnection"
)

// Event names emitted by Dut.Events().
const (
	// EventPairingRequest delivers a PairingRequest.
	EventPairingRequest = "pairing_request"
	// EventBondStateChanged delivers a BondStateChanged.
	EventBondStateChanged = "bond_state_changed"
)

// PairingRequest is the DUT adapter's pairing prompt callback payload.
type PairingRequest struct {
	Address bt.Address
	Variant bt.PairingVariant

	// Pin is the displayed comparison value for passkey-confirmation
	// prompts, zero otherwise.
	Pin uint32
}

// BondStateChanged is the DUT adapter's bond transition callback payload.
type BondStateChanged struct {
	Address bt.Address
	State   bt.BondState
}

// Advertisement is a scan report observed by the REF radio.
type Advertisement struct {
	Address bt.Address

	// ServiceUUIDs is the complete list of 128-bit service class UUIDs
	// extracted from the advertising data.
	ServiceUUIDs []string
}

// HasService reports whether the advertisement carries the service UUID.
func (a Advertisement) HasService(uuid string) bool {
	for _, s := range a.ServiceUUIDs {
		if s == uuid {
			return true
		}
	}
	return false
}

// Link is an established bidirectional connection between DUT and REF,
// owned jointly by both endpoint sessions until either side disconnects.
type Link interface {
	// PeerAddress returns the remote device address as seen by REF.
	PeerAddress() bt.Address

	// Transport returns the link transport.
	Transport() bt.Transport

	// Outgoing reports whether the DUT initiated the connection.
	Outgoing() bool

	// RequestPairing sends a security request to the peer, asking it to
	// initiate pairing. It does not block on the negotiation.
	RequestPairing() error

	// Pair drives pairing as initiator and blocks until the negotiation
	// settles. Tearing the link down while Pair is outstanding causes it
	// to observe cancellation.
	Pair(ctx context.Context) error

	// Disconnect tears the link down from the REF side.
	Disconnect(ctx context.Context) error

	// ReadRemoteFeatures performs a feature query against the link. The
	// result carries no meaning for the harness; the call exists to force
	// completion of any in-flight connection indication.
	ReadRemoteFeatures(ctx context.Context) error
}

// Ref is the reference endpoint's radio control API.
type Ref interface {
	// Address returns REF's own address of the given type.
	Address(t bt.AddressType) bt.Address

	// StartAdvertising begins connectable advertising using the given own
	// address type.
	StartAdvertising(ctx context.Context, ownAddressType bt.AddressType) error

	// StopAdvertising stops advertising. Safe to call when idle.
	StopAdvertising() error

	// StartScanning begins observing advertisements, delivered via
	// EventAdvertisement.
	StartScanning(ctx context.Context) error

	// StopScanning stops the scanner. Safe to call when idle.
	StopScanning() error

	// Connect establishes an outgoing link to the peer.
	Connect(ctx context.Context, addr bt.Address, transport bt.Transport, ownAddressType bt.AddressType) (Link, error)

	// SetPairingConfig installs the pairing configuration applied to
	// subsequent negotiations on this endpoint.
	SetPairingConfig(cfg *pairing.Config)

	// Events returns the endpoint's event emitter.
	Events() *event.Emitter
}

// AdvertisingHandle controls an advertising set started on the DUT.
type AdvertisingHandle interface {
	// Stop removes the advertisement. Safe to call multiple times.
	Stop()
}

// Dut is the device under test's adapter/bond control API, modeled on a
// mobile OS Bluetooth stack: commands return coarse success booleans and
// outcomes arrive via the callback event stream.
type Dut interface {
	// CreateBond connects (if needed) and initiates pairing with the
	// peer. Returns false if the request was not accepted.
	CreateBond(addr bt.Address, transport bt.Transport, addressType bt.AddressType) bool

	// SetPairingConfirmation answers the outstanding pairing prompt.
	SetPairingConfirmation(addr bt.Address, accept bool) bool

	// ConnectGATT establishes a plain connection to the peer without
	// initiating a bond. The returned closer releases the client.
	ConnectGATT(ctx context.Context, addr bt.Address, addressType bt.AddressType, transport bt.Transport) (io.Closer, error)

	// StartAdvertising begins connectable advertising carrying the given
	// service UUID, using a random own address.
	StartAdvertising(ctx context.Context, serviceUUID string) (AdvertisingHandle, error)

	// Events returns the adapter callback emitter.
	Events() *event.Emitter
}
