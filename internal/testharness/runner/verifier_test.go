package runner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

func scenario(variant TestVariant, connDir, pairDir bt.Direction) ScenarioCase {
	return ScenarioCase{
		Variant:             variant,
		ConnectionDirection: connDir,
		PairingDirection:    pairDir,
		RefIOCapability:     bt.IOCapNoInputNoOutput,
		RefAddressType:      bt.AddressTypePublic,
		KeyDistribution:     bt.DefaultKeyDistribution,
	}
}

func TestExpectedOutcomeTable(t *testing.T) {
	cases := []struct {
		variant TestVariant
		want    Expectation
	}{
		{VariantAccept, Expectation{BondState: bt.BondBonded, ErrClass: ErrClassNone}},
		{VariantReject, Expectation{BondState: bt.BondNone, ErrClass: ErrClassProtocol}},
		{VariantRejected, Expectation{BondState: bt.BondNone, ErrClass: ErrClassProtocol}},
		{VariantDisconnected, Expectation{BondState: bt.BondNone, ErrClass: ErrClassCancelled}},
	}
	for _, tc := range cases {
		got := ExpectedOutcome(scenario(tc.variant, bt.DirectionOutgoing, bt.DirectionOutgoing))
		if got != tc.want {
			t.Errorf("%v: expectation = %+v, want %+v", tc.variant, got, tc.want)
		}
	}
}

func TestVerifyOutcomeAccept(t *testing.T) {
	c := scenario(VariantAccept, bt.DirectionOutgoing, bt.DirectionOutgoing)
	outcome := &Outcome{BondState: bt.BondBonded, PromptCount: 1}
	if err := VerifyOutcome(c, outcome); err != nil {
		t.Errorf("unexpected mismatch: %v", err)
	}
}

func TestVerifyOutcomeWrongBondState(t *testing.T) {
	c := scenario(VariantAccept, bt.DirectionOutgoing, bt.DirectionOutgoing)
	outcome := &Outcome{BondState: bt.BondNone, PromptCount: 1}
	err := VerifyOutcome(c, outcome)
	var ae *AssertionError
	if !errors.As(err, &ae) {
		t.Fatalf("got %v, want AssertionError", err)
	}
	if ae.Expected != bt.BondBonded || ae.Actual != bt.BondNone {
		t.Errorf("mismatch detail = %+v", ae)
	}
}

func TestVerifyOutcomePromptCount(t *testing.T) {
	c := scenario(VariantAccept, bt.DirectionOutgoing, bt.DirectionIncoming)
	outcome := &Outcome{BondState: bt.BondBonded, PromptCount: 1, PairTask: true}
	err := VerifyOutcome(c, outcome)
	var ae *AssertionError
	if !errors.As(err, &ae) {
		t.Fatalf("got %v, want AssertionError", err)
	}
	if ae.Expected != 2 {
		t.Errorf("double confirmation must expect 2 prompts, got %+v", ae)
	}
}

func TestVerifyOutcomePairTaskClasses(t *testing.T) {
	cases := []struct {
		variant TestVariant
		settled error
		ok      bool
	}{
		{VariantAccept, nil, true},
		{VariantAccept, &endpoint.ProtocolError{Reason: endpoint.ReasonUnspecified}, false},
		{VariantReject, &endpoint.ProtocolError{Reason: endpoint.ReasonNumericComparisonFailed}, true},
		{VariantReject, nil, false},
		{VariantRejected, &endpoint.ProtocolError{Reason: endpoint.ReasonConfirmValueFailed}, true},
		{VariantDisconnected, fmt.Errorf("torn down: %w", endpoint.ErrPairingCancelled), true},
		{VariantDisconnected, nil, false},
		{VariantAccept, errors.New("something else entirely"), false},
	}
	for _, tc := range cases {
		c := scenario(tc.variant, bt.DirectionIncoming, bt.DirectionIncoming)
		exp := ExpectedOutcome(c)
		outcome := &Outcome{
			BondState:   exp.BondState,
			PromptCount: 1,
			PairTask:    true,
			PairErr:     tc.settled,
		}
		err := VerifyOutcome(c, outcome)
		if tc.ok && err != nil {
			t.Errorf("%v settled with %v: unexpected mismatch %v", tc.variant, tc.settled, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%v settled with %v: mismatch not reported", tc.variant, tc.settled)
		}
	}
}

func TestVerifyMethodsMapping(t *testing.T) {
	pin := uint32(123456)

	err := verifyMethods(bt.IOCapNoInputNoOutput,
		endpoint.PairingRequest{Variant: bt.VariantConsent},
		pairing.Event{Method: bt.MethodJustWorks})
	if err != nil {
		t.Errorf("consent/just-works: %v", err)
	}

	err = verifyMethods(bt.IOCapDisplayYesNo,
		endpoint.PairingRequest{Variant: bt.VariantPasskeyConfirmation, Pin: pin},
		pairing.Event{Method: bt.MethodNumericComparison, Value: pairing.Uint32(pin)})
	if err != nil {
		t.Errorf("confirmation/numeric-comparison: %v", err)
	}
}

func TestVerifyMethodsMismatches(t *testing.T) {
	var ae *AssertionError

	err := verifyMethods(bt.IOCapNoInputNoOutput,
		endpoint.PairingRequest{Variant: bt.VariantPasskeyConfirmation},
		pairing.Event{Method: bt.MethodJustWorks})
	if !errors.As(err, &ae) {
		t.Errorf("wrong dut variant: got %v, want AssertionError", err)
	}

	err = verifyMethods(bt.IOCapDisplayYesNo,
		endpoint.PairingRequest{Variant: bt.VariantPasskeyConfirmation, Pin: 111111},
		pairing.Event{Method: bt.MethodNumericComparison, Value: pairing.Uint32(222222)})
	if !errors.As(err, &ae) {
		t.Errorf("differing pins: got %v, want AssertionError", err)
	}

	err = verifyMethods(bt.IOCapDisplayYesNo,
		endpoint.PairingRequest{Variant: bt.VariantPasskeyConfirmation, Pin: 111111},
		pairing.Event{Method: bt.MethodNumericComparison})
	if !errors.As(err, &ae) {
		t.Errorf("missing ref value: got %v, want AssertionError", err)
	}
}
