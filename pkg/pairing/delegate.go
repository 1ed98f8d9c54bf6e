package pairing

import (
	"context"

	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
)

// Event is a pairing prompt surfaced by the delegate, or the answer the
// test feeds back. Value carries the numeric payload for methods that have
// one (the comparison value or a passkey); it is nil for just-works and
// consent prompts and for answers that deliberately withhold a value.
type Event struct {
	Method bt.PairingMethod
	Accept bool
	Value  *uint32
}

// Uint32 is a convenience for building *uint32 event payloads.
func Uint32(v uint32) *uint32 { return &v }

// Delegate is the reference stack's pairing policy object. The stack calls
// the confirmation methods during negotiation; each call enqueues a prompt
// on Events and blocks until the test enqueues an answer on Answers. The
// harness enforces a strict 1:1 prompt/answer discipline: at most one
// prompt is outstanding at a time.
//
// A delegate's lifetime spans a single test case.
type Delegate struct {
	// AutoAccept short-circuits the initial consent check without
	// surfacing a prompt.
	AutoAccept bool

	// Events receives one prompt per confirmation callback.
	Events *event.Queue[Event]

	// Answers supplies the response to the outstanding prompt.
	Answers *event.Queue[Event]

	ioCapability  bt.IOCapability
	initiatorKeys bt.KeyDistribution
	responderKeys bt.KeyDistribution
}

// NewDelegate creates a delegate with the given IO capability and
// key-distribution masks.
func NewDelegate(autoAccept bool, ioCapability bt.IOCapability, initiatorKeys, responderKeys bt.KeyDistribution) *Delegate {
	return &Delegate{
		AutoAccept:    autoAccept,
		Events:        event.NewQueue[Event](),
		Answers:       event.NewQueue[Event](),
		ioCapability:  ioCapability,
		initiatorKeys: initiatorKeys,
		responderKeys: responderKeys,
	}
}

// IOCapability returns the delegate's declared IO capability.
func (d *Delegate) IOCapability() bt.IOCapability { return d.ioCapability }

// InitiatorKeys returns the key-distribution mask offered as initiator.
func (d *Delegate) InitiatorKeys() bt.KeyDistribution { return d.initiatorKeys }

// ResponderKeys returns the key-distribution mask offered as responder.
func (d *Delegate) ResponderKeys() bt.KeyDistribution { return d.responderKeys }

// AcceptPairing is called by the stack before negotiation starts.
func (d *Delegate) AcceptPairing(ctx context.Context) (bool, error) {
	if d.AutoAccept {
		return true, nil
	}
	answer, err := d.Answers.Get(ctx)
	if err != nil {
		return false, err
	}
	return answer.Accept, nil
}

// Confirm surfaces a just-works prompt and waits for the answer.
func (d *Delegate) Confirm(ctx context.Context) (bool, error) {
	return d.ask(ctx, Event{Method: bt.MethodJustWorks})
}

// CompareNumbers surfaces a numeric-comparison prompt carrying the 6-digit
// value and waits for the answer.
func (d *Delegate) CompareNumbers(ctx context.Context, number uint32) (bool, error) {
	return d.ask(ctx, Event{Method: bt.MethodNumericComparison, Value: Uint32(number)})
}

// GetNumber surfaces a passkey-entry prompt and waits for the typed value.
// A nil value in the answer rejects the pairing.
func (d *Delegate) GetNumber(ctx context.Context) (*uint32, error) {
	d.Events.Put(Event{Method: bt.MethodPasskeyEntryRequest})
	answer, err := d.Answers.Get(ctx)
	if err != nil {
		return nil, err
	}
	return answer.Value, nil
}

// DisplayNumber surfaces a passkey-notification prompt. The flow continues
// once the test acknowledges it; there is nothing to accept or reject.
func (d *Delegate) DisplayNumber(ctx context.Context, number uint32) error {
	d.Events.Put(Event{Method: bt.MethodPasskeyEntryNotification, Value: Uint32(number)})
	_, err := d.Answers.Get(ctx)
	return err
}

func (d *Delegate) ask(ctx context.Context, prompt Event) (bool, error) {
	d.Events.Put(prompt)
	answer, err := d.Answers.Get(ctx)
	if err != nil {
		return false, err
	}
	return answer.Accept, nil
}
