package mock

import (
	"errors"
	"sync"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

// ErrPeerNotReachable is returned when connecting to an address nobody is
// advertising on.
var ErrPeerNotReachable = errors.New("mock: peer not advertising")

// Air is the shared radio medium. Radios register advertisements and
// scanners with it; connections are created through it so that test hooks
// can inject loss.
type Air struct {
	mu sync.Mutex

	advertisements map[bt.Address]*advertisement
	scanners       []scanner

	// dropConnects makes the next N connection attempts vanish: the
	// command is accepted but no link is created and no event fires,
	// as when the baseband misses a CONNECT_IND.
	dropConnects int
}

type advertisement struct {
	owner        connectable
	address      bt.Address
	serviceUUIDs []string
}

// connectable is a radio that can accept an incoming connection on an
// advertised address.
type connectable interface {
	acceptConnection(link *linkState)
}

// scanner receives advertisement reports while scanning.
type scanner interface {
	deliverAdvertisement(addr bt.Address, serviceUUIDs []string)
}

// NewAir creates an empty medium.
func NewAir() *Air {
	return &Air{advertisements: make(map[bt.Address]*advertisement)}
}

// DropConnections makes the next n connection attempts disappear without a
// trace. Test hook for exercising establishment retries.
func (a *Air) DropConnections(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropConnects = n
}

// ActiveServiceUUIDs returns the service UUIDs currently on the air, for
// asserting that retries do not leak stale advertisements.
func (a *Air) ActiveServiceUUIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var uuids []string
	for _, adv := range a.advertisements {
		uuids = append(uuids, adv.serviceUUIDs...)
	}
	return uuids
}

func (a *Air) startAdvertising(owner connectable, addr bt.Address, serviceUUIDs []string) {
	a.mu.Lock()
	adv := &advertisement{owner: owner, address: addr, serviceUUIDs: serviceUUIDs}
	a.advertisements[addr] = adv
	scanners := append([]scanner(nil), a.scanners...)
	a.mu.Unlock()

	for _, s := range scanners {
		s.deliverAdvertisement(addr, serviceUUIDs)
	}
}

func (a *Air) stopAdvertising(addr bt.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.advertisements, addr)
}

func (a *Air) startScanning(s scanner) {
	a.mu.Lock()
	a.scanners = append(a.scanners, s)
	current := make([]*advertisement, 0, len(a.advertisements))
	for _, adv := range a.advertisements {
		current = append(current, adv)
	}
	a.mu.Unlock()

	for _, adv := range current {
		s.deliverAdvertisement(adv.address, adv.serviceUUIDs)
	}
}

func (a *Air) stopScanning(s scanner) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, cur := range a.scanners {
		if cur == s {
			a.scanners = append(a.scanners[:i:i], a.scanners[i+1:]...)
			return
		}
	}
}

// connect creates a link to the radio advertising on target. The link is
// handed to the acceptor before being returned, so the acceptor's
// connection event fires before the initiator proceeds.
func (a *Air) connect(target bt.Address, link *linkState) error {
	a.mu.Lock()
	if a.dropConnects > 0 {
		a.dropConnects--
		a.mu.Unlock()
		return nil // command accepted, connection never forms
	}
	adv, ok := a.advertisements[target]
	a.mu.Unlock()

	if !ok {
		return ErrPeerNotReachable
	}
	link.established = true
	adv.owner.acceptConnection(link)
	return nil
}
