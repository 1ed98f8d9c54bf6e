package mock

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
)

// smpSession simulates one pairing negotiation over a link. It emits the
// DUT's bond-state and prompt callbacks, drives the REF delegate, and
// settles into a single result that an outstanding Pair call observes.
type smpSession struct {
	link *linkState

	// dutInitiated reports which side drives the negotiation.
	dutInitiated bool

	// consentFirst adds the extra consent prompt the DUT surfaces when a
	// security request makes it initiate pairing on an outgoing link.
	consentFirst bool

	ctx    context.Context
	cancel context.CancelFunc

	// dutAnswers receives confirmations fed in via SetPairingConfirmation.
	// Capacity two: consent-first flows answer twice.
	dutAnswers chan bool

	done chan struct{}
	err  error
}

func newSMPSession(link *linkState, dutInitiated, consentFirst bool) *smpSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &smpSession{
		link:         link,
		dutInitiated: dutInitiated,
		consentFirst: consentFirst,
		ctx:          ctx,
		cancel:       cancel,
		dutAnswers:   make(chan bool, 2),
		done:         make(chan struct{}),
	}
}

func (s *smpSession) run() {
	err := s.negotiate()
	s.finish(err)
}

func (s *smpSession) negotiate() error {
	l := s.link
	l.mu.Lock()
	ref, dut := l.ref, l.dut
	l.mu.Unlock()
	if ref == nil || dut == nil {
		return fmt.Errorf("mock: pairing on a half-open link")
	}

	cfg := ref.currentPairingConfig()
	delegate := cfg.Delegate

	dut.emitBondState(l.refAddr, bt.BondBonding)

	if s.consentFirst {
		dut.emitPairingRequest(l.refAddr, bt.VariantConsent, 0)
		accept, err := s.awaitDutAnswer()
		if err != nil {
			return s.cancelled(dut, l)
		}
		if !accept {
			return s.failed(dut, l, endpoint.ReasonUnspecified)
		}
	}

	accepted, err := delegate.AcceptPairing(s.ctx)
	if err != nil {
		return s.cancelled(dut, l)
	}
	if !accepted {
		return s.failed(dut, l, endpoint.ReasonPairingNotSupported)
	}

	method := refMethod(delegate.IOCapability())
	pin := randomPasskey()

	type promptResult struct {
		accept bool
		err    error
	}
	refCh := make(chan promptResult, 1)
	dutCh := make(chan promptResult, 1)

	go func() {
		var accept bool
		var err error
		switch method {
		case bt.MethodNumericComparison:
			accept, err = delegate.CompareNumbers(s.ctx, pin)
		default:
			accept, err = delegate.Confirm(s.ctx)
		}
		refCh <- promptResult{accept, err}
	}()

	go func() {
		variant, promptPin := dutVariant(method, pin)
		dut.emitPairingRequest(l.refAddr, variant, promptPin)
		accept, err := s.awaitDutAnswer()
		dutCh <- promptResult{accept, err}
	}()

	refRes := <-refCh
	dutRes := <-dutCh
	if refRes.err != nil || dutRes.err != nil {
		return s.cancelled(dut, l)
	}
	if !dutRes.accept || !refRes.accept {
		return s.failed(dut, l, failureReason(method))
	}

	keys := delegate.InitiatorKeys() & delegate.ResponderKeys()
	rec := BondRecord{
		LTK:    deriveLTK(pin, l.refAddr, l.dutAddr),
		Keys:   keys,
		Method: method,
	}
	ref.storeBond(l.dutAddr, rec)
	dut.storeBond(l.refAddr, rec)
	dut.emitBondState(l.refAddr, bt.BondBonded)
	return nil
}

func (s *smpSession) awaitDutAnswer() (bool, error) {
	select {
	case accept := <-s.dutAnswers:
		return accept, nil
	case <-s.ctx.Done():
		return false, s.ctx.Err()
	}
}

func (s *smpSession) cancelled(dut *DutEndpoint, l *linkState) error {
	dut.emitBondState(l.refAddr, bt.BondNone)
	return fmt.Errorf("link torn down during pairing: %w", endpoint.ErrPairingCancelled)
}

func (s *smpSession) failed(dut *DutEndpoint, l *linkState, reason uint8) error {
	dut.emitBondState(l.refAddr, bt.BondNone)
	return &endpoint.ProtocolError{Reason: reason}
}

func (s *smpSession) finish(err error) {
	s.err = err
	s.link.clearSession()
	close(s.done)
}

// refMethod maps the REF delegate's IO capability to the confirmation
// method it sees, with the DUT acting as a keyboard-display peer.
func refMethod(ioCap bt.IOCapability) bt.PairingMethod {
	switch ioCap {
	case bt.IOCapDisplayYesNo, bt.IOCapKeyboardDisplay:
		return bt.MethodNumericComparison
	default:
		return bt.MethodJustWorks
	}
}

// dutVariant maps the negotiated method to the prompt variant the DUT
// adapter surfaces, with the displayed pin where the variant has one.
func dutVariant(method bt.PairingMethod, pin uint32) (bt.PairingVariant, uint32) {
	if method == bt.MethodNumericComparison {
		return bt.VariantPasskeyConfirmation, pin
	}
	return bt.VariantConsent, 0
}

func failureReason(method bt.PairingMethod) uint8 {
	if method == bt.MethodNumericComparison {
		return endpoint.ReasonNumericComparisonFailed
	}
	return endpoint.ReasonUnspecified
}

func randomPasskey() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return binary.LittleEndian.Uint32(buf[:]) % 1000000
}

// deriveLTK expands a shared secret for the bond record. Both sides store
// the same key, which is what the outcome checks compare.
func deriveLTK(pin uint32, refAddr, dutAddr bt.Address) []byte {
	secret := make([]byte, 4, 4+len(refAddr)+len(dutAddr))
	binary.LittleEndian.PutUint32(secret, pin)
	secret = append(secret, refAddr...)
	secret = append(secret, dutAddr...)
	r := hkdf.New(sha256.New, secret, []byte("mock-smp-ltk"), nil)
	ltk := make([]byte, 16)
	if _, err := io.ReadFull(r, ltk); err != nil {
		panic(err)
	}
	return ltk
}
