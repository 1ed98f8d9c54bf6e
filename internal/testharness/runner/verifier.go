package runner

import (
	"errors"
	"fmt"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

// expectedPrompts is the fixed IO-capability lookup: which prompt variant
// the DUT must report and which method the REF delegate must report.
func expectedPrompts(ioCap bt.IOCapability) (bt.PairingVariant, bt.PairingMethod) {
	switch ioCap {
	case bt.IOCapDisplayYesNo, bt.IOCapKeyboardDisplay:
		return bt.VariantPasskeyConfirmation, bt.MethodNumericComparison
	default:
		return bt.VariantConsent, bt.MethodJustWorks
	}
}

// verifyMethods checks both sides reported the prompt the REF capability
// implies, and that comparison values agree. A mismatch is a test defect,
// never retried.
func verifyMethods(ioCap bt.IOCapability, dutPrompt endpoint.PairingRequest, refPrompt pairing.Event) error {
	wantVariant, wantMethod := expectedPrompts(ioCap)
	if dutPrompt.Variant != wantVariant {
		return assertionf(wantVariant, dutPrompt.Variant, "dut prompt variant for %s", ioCap)
	}
	if refPrompt.Method != wantMethod {
		return assertionf(wantMethod, refPrompt.Method, "ref prompt method for %s", ioCap)
	}
	if wantMethod == bt.MethodNumericComparison {
		if refPrompt.Value == nil {
			return assertionf("comparison value", nil, "ref numeric-comparison prompt has no value")
		}
		if *refPrompt.Value != dutPrompt.Pin {
			return assertionf(dutPrompt.Pin, *refPrompt.Value, "comparison values differ between endpoints")
		}
	}
	return nil
}

// ErrClass partitions how a REF pairing task is allowed to settle.
type ErrClass int

const (
	// ErrClassNone means the task must complete without error.
	ErrClassNone ErrClass = iota
	// ErrClassProtocol means the peer must report a negotiation failure.
	ErrClassProtocol
	// ErrClassCancelled means the task must observe link teardown.
	ErrClassCancelled
)

func (c ErrClass) String() string {
	switch c {
	case ErrClassNone:
		return "no error"
	case ErrClassProtocol:
		return "protocol error"
	case ErrClassCancelled:
		return "cancellation"
	default:
		return fmt.Sprintf("err_class(%d)", int(c))
	}
}

// Expectation is one row of the expected-outcome table.
type Expectation struct {
	BondState bt.BondState
	ErrClass  ErrClass
}

// ExpectedOutcome returns the terminal state and tolerated error class for
// a case: BONDED exactly for ACCEPT, a protocol error exactly for
// REJECT/REJECTED, cancellation exactly for DISCONNECTED.
func ExpectedOutcome(c ScenarioCase) Expectation {
	exp := Expectation{BondState: bt.BondNone}
	switch c.Variant {
	case VariantAccept:
		exp.BondState = bt.BondBonded
	case VariantReject, VariantRejected:
		exp.ErrClass = ErrClassProtocol
	case VariantDisconnected:
		exp.ErrClass = ErrClassCancelled
	}
	return exp
}

// classifySettlement maps how the REF pairing task actually settled onto
// the error-class partition. The bool is false for an error outside the
// partition.
func classifySettlement(err error) (ErrClass, bool) {
	switch {
	case err == nil:
		return ErrClassNone, true
	case endpoint.IsProtocolError(err):
		return ErrClassProtocol, true
	case errors.Is(err, endpoint.ErrPairingCancelled):
		return ErrClassCancelled, true
	default:
		return 0, false
	}
}

// VerifyOutcome compares the observed outcome against the expected-outcome
// table. The returned error carries the specific mismatch.
func VerifyOutcome(c ScenarioCase, o *Outcome) error {
	exp := ExpectedOutcome(c)

	if o.BondState != exp.BondState {
		return assertionf(exp.BondState, o.BondState, "terminal dut bond state")
	}

	wantPrompts := 1
	if c.DoubleConfirmation() {
		wantPrompts = 2
	}
	if o.PromptCount != wantPrompts {
		return assertionf(wantPrompts, o.PromptCount, "dut confirmation prompt count")
	}

	if o.PairTask {
		class, known := classifySettlement(o.PairErr)
		if !known {
			return assertionf(exp.ErrClass, o.PairErr, "ref pairing task settled with unexpected error")
		}
		if class != exp.ErrClass {
			return assertionf(exp.ErrClass, class, "ref pairing task error class")
		}
	}
	return nil
}
