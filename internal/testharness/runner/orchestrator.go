package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

// adapterEvents funnels the DUT's callback stream into queues the
// orchestrator can wait on. Close removes the subscriptions.
type adapterEvents struct {
	watcher *event.Watcher

	Prompts *event.Queue[endpoint.PairingRequest]
	Bonds   *event.Queue[endpoint.BondStateChanged]
}

func watchAdapter(dut endpoint.Dut) *adapterEvents {
	a := &adapterEvents{
		watcher: event.NewWatcher(),
		Prompts: event.NewQueue[endpoint.PairingRequest](),
		Bonds:   event.NewQueue[endpoint.BondStateChanged](),
	}
	a.watcher.On(dut.Events(), endpoint.EventPairingRequest, func(args ...any) {
		if req, ok := args[0].(endpoint.PairingRequest); ok {
			a.Prompts.Put(req)
		}
	})
	a.watcher.On(dut.Events(), endpoint.EventBondStateChanged, func(args ...any) {
		if change, ok := args[0].(endpoint.BondStateChanged); ok {
			a.Bonds.Put(change)
		}
	})
	return a
}

func (a *adapterEvents) Close() { a.watcher.Close() }

// Drain discards buffered events left over from a previous attempt.
func (a *adapterEvents) Drain() {
	a.Prompts.DrainNow()
	a.Bonds.DrainNow()
}

// Outcome is what one orchestrated negotiation actually produced, fed into
// outcome verification.
type Outcome struct {
	// BondState is the DUT's terminal state after the attempt.
	BondState bt.BondState

	// PromptCount is the number of DUT pairing-request events answered or
	// observed before resolution.
	PromptCount int

	// PairTask reports whether REF held an outstanding pairing task.
	PairTask bool

	// PairErr is how that task settled, nil for clean completion.
	PairErr error
}

// Orchestrator drives one pairing negotiation over an established link to
// a terminal DUT bond state and a settled REF pairing task.
type Orchestrator struct {
	ref         endpoint.Ref
	dut         endpoint.Dut
	stepTimeout time.Duration
}

// NewOrchestrator creates an orchestrator bound to one endpoint pair.
func NewOrchestrator(ref endpoint.Ref, dut endpoint.Dut, cfg *Config) *Orchestrator {
	return &Orchestrator{
		ref:         ref,
		dut:         dut,
		stepTimeout: cfg.StepTimeout.Std(),
	}
}

// Pair runs the negotiation for one scenario case. The link must already be
// established; for DUT-initiated pairing over a DUT-initiated connection
// the negotiation is assumed to have been triggered by the bond-create call.
func (o *Orchestrator) Pair(ctx context.Context, c ScenarioCase, link endpoint.Link, adapter *adapterEvents, delegate *pairing.Delegate) (*Outcome, error) {
	refAddr := o.ref.Address(c.RefAddressType)
	outcome := &Outcome{}

	var pairResult chan error
	if c.RefInitiatesPairing() {
		if c.ConnectionDirection == bt.DirectionOutgoing {
			// REF is peripheral here: it can only ask the DUT to initiate,
			// which is what produces the extra consent prompt.
			if err := link.RequestPairing(); err != nil {
				return outcome, Infrastructure(fmt.Errorf("security request: %w", err))
			}
		}
		pairResult = make(chan error, 1)
		go func() { pairResult <- link.Pair(ctx) }()
		outcome.PairTask = true
	}

	if c.DoubleConfirmation() {
		first, err := o.awaitPrompt(ctx, adapter, refAddr)
		if err != nil {
			return outcome, err
		}
		outcome.PromptCount++
		if first.Pin != 0 {
			return outcome, assertionf(uint32(0), first.Pin, "initial confirmation prompt must not carry a value")
		}
		if !o.dut.SetPairingConfirmation(refAddr, true) {
			return outcome, Infrastructure(errors.New("dut did not accept initial confirmation"))
		}
	}

	final, err := o.awaitPrompt(ctx, adapter, refAddr)
	if err != nil {
		return outcome, err
	}
	outcome.PromptCount++

	refPrompt, err := delegate.Events.GetTimeout(ctx, o.stepTimeout)
	if err != nil {
		return outcome, timeoutOrWrap(err, "wait for ref pairing prompt", o.stepTimeout)
	}

	if err := verifyMethods(c.RefIOCapability, final, refPrompt); err != nil {
		return outcome, err
	}

	if err := o.resolve(ctx, c, link, refAddr, refPrompt, delegate); err != nil {
		return outcome, err
	}

	state, err := o.awaitTerminalBond(ctx, adapter, refAddr)
	if err != nil {
		return outcome, err
	}
	outcome.BondState = state

	if pairResult != nil {
		select {
		case settled := <-pairResult:
			outcome.PairErr = settled
		case <-time.After(o.stepTimeout):
			return outcome, &TimeoutError{Op: "wait for ref pairing task", Bound: o.stepTimeout}
		case <-ctx.Done():
			return outcome, ctx.Err()
		}
	}
	return outcome, nil
}

// resolve applies the test variant's action to both sides.
func (o *Orchestrator) resolve(ctx context.Context, c ScenarioCase, link endpoint.Link, refAddr bt.Address, refPrompt pairing.Event, delegate *pairing.Delegate) error {
	switch c.Variant {
	case VariantAccept:
		if !o.dut.SetPairingConfirmation(refAddr, true) {
			return Infrastructure(errors.New("dut did not accept confirmation"))
		}
		delegate.Answers.Put(pairing.Event{Accept: true, Value: refPrompt.Value})

	case VariantReject:
		if !o.dut.SetPairingConfirmation(refAddr, false) {
			return Infrastructure(errors.New("dut did not accept rejection"))
		}
		// REF still answers as accepting: the rejection has to originate
		// from the DUT alone.
		delegate.Answers.Put(pairing.Event{Accept: true, Value: refPrompt.Value})

	case VariantRejected:
		if !o.dut.SetPairingConfirmation(refAddr, true) {
			return Infrastructure(errors.New("dut did not accept confirmation"))
		}
		delegate.Answers.Put(pairing.Event{Accept: false})

	case VariantDisconnected:
		if err := link.Disconnect(ctx); err != nil {
			return Infrastructure(fmt.Errorf("teardown: %w", err))
		}

	default:
		return fmt.Errorf("unhandled test variant %v", c.Variant)
	}
	return nil
}

// awaitPrompt waits for the next DUT pairing request from the REF address,
// discarding prompts from other peers.
func (o *Orchestrator) awaitPrompt(ctx context.Context, adapter *adapterEvents, refAddr bt.Address) (endpoint.PairingRequest, error) {
	deadline := time.Now().Add(o.stepTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return endpoint.PairingRequest{}, &TimeoutError{Op: "wait for dut pairing prompt", Bound: o.stepTimeout}
		}
		req, err := adapter.Prompts.GetTimeout(ctx, remaining)
		if err != nil {
			return endpoint.PairingRequest{}, timeoutOrWrap(err, "wait for dut pairing prompt", o.stepTimeout)
		}
		if req.Address == refAddr {
			return req, nil
		}
	}
}

// awaitTerminalBond waits for the DUT's bond state to settle in NONE or
// BONDED. BONDING is transitional and skipped; once a terminal state is
// observed no further transitions are expected.
func (o *Orchestrator) awaitTerminalBond(ctx context.Context, adapter *adapterEvents, refAddr bt.Address) (bt.BondState, error) {
	deadline := time.Now().Add(o.stepTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, &TimeoutError{Op: "wait for terminal bond state", Bound: o.stepTimeout}
		}
		change, err := adapter.Bonds.GetTimeout(ctx, remaining)
		if err != nil {
			return 0, timeoutOrWrap(err, "wait for terminal bond state", o.stepTimeout)
		}
		if change.Address != refAddr || !change.State.Terminal() {
			continue
		}
		return change.State, nil
	}
}
