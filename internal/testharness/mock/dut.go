package mock

import (
	"context"
	"io"
	"sync"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
)

// DutEndpoint is the in-memory device under test. It implements
// endpoint.Dut with the coarse command/callback shape of a mobile adapter:
// commands report acceptance, outcomes arrive on the event stream.
type DutEndpoint struct {
	air     *Air
	address bt.Address
	events  *event.Emitter

	mu    sync.Mutex
	links []*linkState
	bonds map[bt.Address]BondRecord
}

var _ endpoint.Dut = (*DutEndpoint)(nil)

// NewDutEndpoint creates a device under test attached to the medium.
func NewDutEndpoint(air *Air) *DutEndpoint {
	return &DutEndpoint{
		air:     air,
		address: bt.NewRandomAddress(),
		events:  event.NewEmitter(),
		bonds:   make(map[bt.Address]BondRecord),
	}
}

// Address returns the DUT's own random static address.
func (d *DutEndpoint) Address() bt.Address { return d.address }

func (d *DutEndpoint) CreateBond(addr bt.Address, transport bt.Transport, addressType bt.AddressType) bool {
	link := d.findLink(addr)
	if link == nil {
		link = &linkState{
			air:          d.air,
			dut:          d,
			refAddr:      addr,
			dutAddr:      d.address,
			dutInitiated: true,
		}
		if err := d.air.connect(addr, link); err != nil {
			return false
		}
		if !link.established {
			// Command accepted, connection never forms, no callbacks.
			return true
		}
		d.mu.Lock()
		d.links = append(d.links, link)
		d.mu.Unlock()
	}

	if link.activeSession() != nil {
		return false
	}
	s := newSMPSession(link, true, false)
	link.setSession(s)
	go s.run()
	return true
}

func (d *DutEndpoint) SetPairingConfirmation(addr bt.Address, accept bool) bool {
	link := d.findLink(addr)
	if link == nil {
		return false
	}
	s := link.activeSession()
	if s == nil {
		return false
	}
	select {
	case s.dutAnswers <- accept:
		return true
	default:
		return false
	}
}

func (d *DutEndpoint) ConnectGATT(ctx context.Context, addr bt.Address, addressType bt.AddressType, transport bt.Transport) (io.Closer, error) {
	link := &linkState{
		air:          d.air,
		dut:          d,
		refAddr:      addr,
		dutAddr:      d.address,
		dutInitiated: true,
	}
	if err := d.air.connect(addr, link); err != nil {
		return nil, err
	}
	if !link.established {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	d.mu.Lock()
	d.links = append(d.links, link)
	d.mu.Unlock()
	return &gattClient{link: link}, nil
}

func (d *DutEndpoint) StartAdvertising(ctx context.Context, serviceUUID string) (endpoint.AdvertisingHandle, error) {
	d.air.startAdvertising(d, d.address, []string{serviceUUID})
	return &advertisingHandle{air: d.air, addr: d.address}, nil
}

func (d *DutEndpoint) Events() *event.Emitter { return d.events }

// BondState reports the DUT's persisted bond state for the peer.
func (d *DutEndpoint) BondState(peer bt.Address) bt.BondState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bonds[peer]; ok {
		return bt.BondBonded
	}
	return bt.BondNone
}

// Bond returns the stored bond for the peer, if any.
func (d *DutEndpoint) Bond(peer bt.Address) (BondRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.bonds[peer]
	return rec, ok
}

// RemoveBond drops the stored bond for the peer.
func (d *DutEndpoint) RemoveBond(peer bt.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bonds, peer)
}

func (d *DutEndpoint) storeBond(peer bt.Address, rec BondRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bonds[peer] = rec
}

func (d *DutEndpoint) findLink(peer bt.Address) *linkState {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range d.links {
		if l.refAddr == peer && !l.isClosed() {
			return l
		}
	}
	return nil
}

func (d *DutEndpoint) emitBondState(peer bt.Address, state bt.BondState) {
	d.events.Emit(endpoint.EventBondStateChanged, endpoint.BondStateChanged{
		Address: peer,
		State:   state,
	})
}

func (d *DutEndpoint) emitPairingRequest(peer bt.Address, variant bt.PairingVariant, pin uint32) {
	d.events.Emit(endpoint.EventPairingRequest, endpoint.PairingRequest{
		Address: peer,
		Variant: variant,
		Pin:     pin,
	})
}

// acceptConnection attaches an incoming link from REF.
func (d *DutEndpoint) acceptConnection(link *linkState) {
	link.mu.Lock()
	link.dut = d
	link.mu.Unlock()

	d.mu.Lock()
	d.links = append(d.links, link)
	d.mu.Unlock()
}

func (d *DutEndpoint) linkClosed(link *linkState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, l := range d.links {
		if l == link {
			d.links = append(d.links[:i:i], d.links[i+1:]...)
			return
		}
	}
}

// gattClient closes the underlying link when released.
type gattClient struct {
	once sync.Once
	link *linkState
}

func (c *gattClient) Close() error {
	c.once.Do(c.link.close)
	return nil
}

// advertisingHandle stops a DUT advertising set.
type advertisingHandle struct {
	once sync.Once
	air  *Air
	addr bt.Address
}

func (h *advertisingHandle) Stop() {
	h.once.Do(func() { h.air.stopAdvertising(h.addr) })
}
