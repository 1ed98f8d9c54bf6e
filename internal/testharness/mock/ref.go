package mock

import (
	"context"
	"sync"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

// BondRecord is the key material a mock endpoint persists after a
// successful pairing.
type BondRecord struct {
	LTK    []byte
	Keys   bt.KeyDistribution
	Method bt.PairingMethod
}

// RefEndpoint is the in-memory reference radio. It implements endpoint.Ref.
type RefEndpoint struct {
	air        *Air
	publicAddr bt.Address
	randomAddr bt.Address
	events     *event.Emitter

	mu          sync.Mutex
	cfg         *pairing.Config
	advertising bool
	advAddr     bt.Address
	scanning    bool
	links       []*linkState
	bonds       map[bt.Address]BondRecord
}

var _ endpoint.Ref = (*RefEndpoint)(nil)

// NewRefEndpoint creates a reference radio attached to the medium.
func NewRefEndpoint(air *Air) *RefEndpoint {
	return &RefEndpoint{
		air:        air,
		publicAddr: bt.NewRandomAddress(),
		randomAddr: bt.NewRandomAddress(),
		events:     event.NewEmitter(),
		bonds:      make(map[bt.Address]BondRecord),
	}
}

func (r *RefEndpoint) Address(t bt.AddressType) bt.Address {
	if t == bt.AddressTypeRandom {
		return r.randomAddr
	}
	return r.publicAddr
}

func (r *RefEndpoint) StartAdvertising(ctx context.Context, ownAddressType bt.AddressType) error {
	addr := r.Address(ownAddressType)
	r.mu.Lock()
	if r.advertising {
		r.air.stopAdvertising(r.advAddr)
	}
	r.advertising = true
	r.advAddr = addr
	r.mu.Unlock()

	r.air.startAdvertising(r, addr, nil)
	return nil
}

func (r *RefEndpoint) StopAdvertising() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.advertising {
		r.air.stopAdvertising(r.advAddr)
		r.advertising = false
	}
	return nil
}

func (r *RefEndpoint) StartScanning(ctx context.Context) error {
	r.mu.Lock()
	already := r.scanning
	r.scanning = true
	r.mu.Unlock()

	if !already {
		r.air.startScanning(r)
	}
	return nil
}

func (r *RefEndpoint) StopScanning() error {
	r.mu.Lock()
	already := r.scanning
	r.scanning = false
	r.mu.Unlock()

	if already {
		r.air.stopScanning(r)
	}
	return nil
}

func (r *RefEndpoint) Connect(ctx context.Context, addr bt.Address, transport bt.Transport, ownAddressType bt.AddressType) (endpoint.Link, error) {
	link := &linkState{
		air:     r.air,
		ref:     r,
		refAddr: r.Address(ownAddressType),
		dutAddr: addr,
	}
	if err := r.air.connect(addr, link); err != nil {
		return nil, err
	}
	if !link.established {
		// The command went out but no connection formed. Block until the
		// caller gives up, as the real controller would.
		<-ctx.Done()
		return nil, ctx.Err()
	}

	r.mu.Lock()
	r.links = append(r.links, link)
	r.mu.Unlock()
	return link, nil
}

func (r *RefEndpoint) SetPairingConfig(cfg *pairing.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// currentPairingConfig returns the installed configuration, or an
// auto-accepting just-works default when none was set.
func (r *RefEndpoint) currentPairingConfig() *pairing.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg != nil {
		return r.cfg
	}
	delegate := pairing.NewDelegate(true, bt.IOCapNoInputNoOutput, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)
	r.cfg = pairing.DefaultConfig(delegate)
	return r.cfg
}

func (r *RefEndpoint) Events() *event.Emitter { return r.events }

// Bond returns the stored bond for the peer, if any.
func (r *RefEndpoint) Bond(peer bt.Address) (BondRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.bonds[peer]
	return rec, ok
}

// RemoveBond drops the stored bond for the peer.
func (r *RefEndpoint) RemoveBond(peer bt.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bonds, peer)
}

func (r *RefEndpoint) storeBond(peer bt.Address, rec BondRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bonds[peer] = rec
}

// deliverAdvertisement implements the medium's scanner callback.
func (r *RefEndpoint) deliverAdvertisement(addr bt.Address, serviceUUIDs []string) {
	r.events.Emit(endpoint.EventAdvertisement, endpoint.Advertisement{
		Address:      addr,
		ServiceUUIDs: serviceUUIDs,
	})
}

// acceptConnection attaches an incoming link and fires the connection
// event before the initiator proceeds.
func (r *RefEndpoint) acceptConnection(link *linkState) {
	link.mu.Lock()
	link.ref = r
	link.mu.Unlock()

	r.mu.Lock()
	r.links = append(r.links, link)
	r.mu.Unlock()

	r.events.Emit(endpoint.EventConnection, endpoint.Link(link))
}

func (r *RefEndpoint) linkClosed(link *linkState) {
	r.mu.Lock()
	for i, l := range r.links {
		if l == link {
			r.links = append(r.links[:i:i], r.links[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.events.Emit(endpoint.EventDisconnection, endpoint.Link(link))
}
