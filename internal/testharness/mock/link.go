package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
)

// ErrLinkClosed is returned by link operations after a disconnect.
var ErrLinkClosed = errors.New("mock: link closed")

// linkState is the shared state of one simulated connection. The REF side
// sees it through the endpoint.Link interface; the DUT side drives it
// through the owning DutEndpoint.
type linkState struct {
	air *Air

	refAddr bt.Address
	dutAddr bt.Address

	// dutInitiated mirrors the connection direction: true when the DUT
	// opened the link.
	dutInitiated bool

	// established is cleared by the medium when the connection attempt
	// was dropped.
	established bool

	mu      sync.Mutex
	ref     *RefEndpoint
	dut     *DutEndpoint
	closed  bool
	session *smpSession
}

var _ endpoint.Link = (*linkState)(nil)

func (l *linkState) PeerAddress() bt.Address { return l.dutAddr }

func (l *linkState) Transport() bt.Transport { return bt.TransportLE }

func (l *linkState) Outgoing() bool { return l.dutInitiated }

// RequestPairing delivers a security request to the DUT, which reacts by
// initiating pairing itself. The DUT surfaces a consent prompt before the
// method prompt in this flow.
func (l *linkState) RequestPairing() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	if l.session != nil {
		l.mu.Unlock()
		return errors.New("mock: pairing already in progress")
	}
	dut := l.dut
	l.mu.Unlock()

	if dut == nil {
		return errors.New("mock: no peer on link")
	}
	s := newSMPSession(l, true, true)
	l.setSession(s)
	go s.run()
	return nil
}

// Pair drives pairing with REF as initiator and blocks until the
// negotiation settles.
func (l *linkState) Pair(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLinkClosed
	}
	s := l.session
	if s == nil {
		s = newSMPSession(l, false, false)
		l.session = s
		l.mu.Unlock()
		go s.run()
	} else {
		l.mu.Unlock()
	}

	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *linkState) Disconnect(ctx context.Context) error {
	l.close()
	return nil
}

// ReadRemoteFeatures always succeeds on an open link. The real stack uses
// this query to flush an in-flight connection indication; the mock only
// checks liveness.
func (l *linkState) ReadRemoteFeatures(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}
	return nil
}

func (l *linkState) setSession(s *smpSession) {
	l.mu.Lock()
	l.session = s
	l.mu.Unlock()
}

func (l *linkState) clearSession() {
	l.mu.Lock()
	l.session = nil
	l.mu.Unlock()
}

func (l *linkState) activeSession() *smpSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// close tears the link down. Any outstanding pairing observes cancellation
// and both endpoints drop the link.
func (l *linkState) close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	session := l.session
	ref := l.ref
	dut := l.dut
	l.mu.Unlock()

	if session != nil {
		session.cancel()
	}
	if ref != nil {
		ref.linkClosed(l)
	}
	if dut != nil {
		dut.linkClosed(l)
	}
}

func (l *linkState) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *linkState) String() string {
	dir := "incoming"
	if l.dutInitiated {
		dir = "outgoing"
	}
	return fmt.Sprintf("link(%s<->%s, %s)", l.refAddr, l.dutAddr, dir)
}
