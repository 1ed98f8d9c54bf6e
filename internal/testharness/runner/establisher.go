package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
)

// Establisher drives the advertise/scan/connect handshake in either
// direction and returns an established link. A failure anywhere in the
// handshake retries the whole establishment, never a sub-step: every
// attempt starts from "not advertising, not scanning".
type Establisher struct {
	ref         endpoint.Ref
	dut         endpoint.Dut
	stepTimeout time.Duration
	attempts    int
}

// NewEstablisher creates an establisher bound to one endpoint pair.
func NewEstablisher(ref endpoint.Ref, dut endpoint.Dut, cfg *Config) *Establisher {
	return &Establisher{
		ref:         ref,
		dut:         dut,
		stepTimeout: cfg.StepTimeout.Std(),
		attempts:    cfg.EstablishAttempts,
	}
}

// EstablishOutgoing has REF advertise and instructs the DUT to connect,
// either through a bond-create (which also kicks off pairing) or a plain
// client connection.
func (e *Establisher) EstablishOutgoing(ctx context.Context, addrType bt.AddressType, initiateBond bool) (endpoint.Link, error) {
	var link endpoint.Link
	err := retryWithBackoff(ctx, e.retryConfig(), func() error {
		l, err := e.outgoingAttempt(ctx, addrType, initiateBond)
		if err != nil {
			return err
		}
		link = l
		return nil
	})
	return link, err
}

func (e *Establisher) outgoingAttempt(ctx context.Context, addrType bt.AddressType, initiateBond bool) (endpoint.Link, error) {
	watcher := event.NewWatcher()
	defer watcher.Close()

	links := event.NewQueue[endpoint.Link]()
	watcher.On(e.ref.Events(), endpoint.EventConnection, func(args ...any) {
		if l, ok := args[0].(endpoint.Link); ok && l.Transport() == bt.TransportLE {
			links.Put(l)
		}
	})

	if err := e.ref.StartAdvertising(ctx, addrType); err != nil {
		return nil, Infrastructure(fmt.Errorf("ref advertising: %w", err))
	}
	defer e.ref.StopAdvertising()

	refAddr := e.ref.Address(addrType)
	if initiateBond {
		if !e.dut.CreateBond(refAddr, bt.TransportLE, addrType) {
			return nil, Infrastructure(errors.New("dut did not accept bond-create command"))
		}
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
		defer cancel()
		if _, err := e.dut.ConnectGATT(connectCtx, refAddr, addrType, bt.TransportLE); err != nil {
			return nil, e.connectError("dut connect", err)
		}
	}

	link, err := links.GetTimeout(ctx, e.stepTimeout)
	if err != nil {
		return nil, timeoutOrWrap(err, "wait for connection on ref", e.stepTimeout)
	}
	return link, nil
}

// EstablishIncoming has the DUT advertise a fresh correlation token, REF
// scan for it and connect. The token is regenerated per attempt so a retry
// can never latch onto a stale advertisement.
func (e *Establisher) EstablishIncoming(ctx context.Context, addrType bt.AddressType) (endpoint.Link, error) {
	var link endpoint.Link
	err := retryWithBackoff(ctx, e.retryConfig(), func() error {
		l, err := e.incomingAttempt(ctx, addrType)
		if err != nil {
			return err
		}
		link = l
		return nil
	})
	return link, err
}

func (e *Establisher) incomingAttempt(ctx context.Context, addrType bt.AddressType) (endpoint.Link, error) {
	watcher := event.NewWatcher()
	defer watcher.Close()

	reports := event.NewQueue[endpoint.Advertisement]()
	watcher.On(e.ref.Events(), endpoint.EventAdvertisement, func(args ...any) {
		if adv, ok := args[0].(endpoint.Advertisement); ok {
			reports.Put(adv)
		}
	})

	token := uuid.NewString()
	handle, err := e.dut.StartAdvertising(ctx, token)
	if err != nil {
		return nil, Infrastructure(fmt.Errorf("dut advertising: %w", err))
	}
	defer handle.Stop()

	if err := e.ref.StartScanning(ctx); err != nil {
		return nil, Infrastructure(fmt.Errorf("ref scanning: %w", err))
	}
	defer e.ref.StopScanning()

	target, err := e.awaitToken(ctx, reports, token)
	if err != nil {
		return nil, err
	}
	e.ref.StopScanning()

	connectCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()
	link, err := e.ref.Connect(connectCtx, target, bt.TransportLE, addrType)
	if err != nil {
		return nil, e.connectError("ref connect", err)
	}

	// Feature query to flush any in-flight connection indication. The
	// result is irrelevant; the link just has to answer.
	if err := link.ReadRemoteFeatures(connectCtx); err != nil {
		link.Disconnect(ctx)
		return nil, Infrastructure(fmt.Errorf("feature probe: %w", err))
	}
	return link, nil
}

// awaitToken filters scan reports for the advertisement carrying the
// attempt's correlation token.
func (e *Establisher) awaitToken(ctx context.Context, reports *event.Queue[endpoint.Advertisement], token string) (bt.Address, error) {
	deadline := time.Now().Add(e.stepTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", &TimeoutError{Op: "scan for dut advertisement", Bound: e.stepTimeout}
		}
		adv, err := reports.GetTimeout(ctx, remaining)
		if err != nil {
			return "", timeoutOrWrap(err, "scan for dut advertisement", e.stepTimeout)
		}
		if adv.HasService(token) {
			return adv.Address, nil
		}
	}
}

func (e *Establisher) connectError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Bound: e.stepTimeout}
	}
	return Infrastructure(fmt.Errorf("%s: %w", op, err))
}

func (e *Establisher) retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: e.attempts,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}
