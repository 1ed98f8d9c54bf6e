package pairing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

func TestConfirmSurfacesPromptAndReturnsAnswer(t *testing.T) {
	d := NewDelegate(true, bt.IOCapNoInputNoOutput, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)

	done := make(chan bool, 1)
	go func() {
		ok, err := d.Confirm(context.Background())
		if err != nil {
			t.Errorf("Confirm: %v", err)
		}
		done <- ok
	}()

	prompt, err := d.Events.GetTimeout(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("no prompt surfaced: %v", err)
	}
	if prompt.Method != bt.MethodJustWorks || prompt.Value != nil {
		t.Fatalf("prompt = %+v, want just_works with no value", prompt)
	}

	d.Answers.Put(Event{Method: bt.MethodJustWorks, Accept: true})
	if ok := <-done; !ok {
		t.Fatal("Confirm returned false for an accepting answer")
	}
}

func TestCompareNumbersCarriesValueBothWays(t *testing.T) {
	d := NewDelegate(true, bt.IOCapDisplayYesNo, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)

	result := make(chan bool, 1)
	go func() {
		ok, _ := d.CompareNumbers(context.Background(), 123456)
		result <- ok
	}()

	prompt, err := d.Events.GetTimeout(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("no prompt surfaced: %v", err)
	}
	if prompt.Method != bt.MethodNumericComparison {
		t.Fatalf("prompt method = %s", prompt.Method)
	}
	if prompt.Value == nil || *prompt.Value != 123456 {
		t.Fatalf("prompt did not carry the comparison value: %+v", prompt)
	}

	d.Answers.Put(Event{Method: bt.MethodNumericComparison, Accept: false})
	if ok := <-result; ok {
		t.Fatal("CompareNumbers returned true for a rejecting answer")
	}
}

func TestGetNumberNilValueMeansReject(t *testing.T) {
	d := NewDelegate(true, bt.IOCapKeyboardOnly, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)

	got := make(chan *uint32, 1)
	go func() {
		v, _ := d.GetNumber(context.Background())
		got <- v
	}()
	if _, err := d.Events.GetTimeout(context.Background(), time.Second); err != nil {
		t.Fatalf("no prompt surfaced: %v", err)
	}
	d.Answers.Put(Event{Method: bt.MethodPasskeyEntryRequest})
	if v := <-got; v != nil {
		t.Fatalf("expected nil passkey, got %d", *v)
	}
}

func TestConfirmObservesCancellation(t *testing.T) {
	d := NewDelegate(true, bt.IOCapNoInputNoOutput, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() {
		_, err := d.Confirm(ctx)
		errs <- err
	}()
	if _, err := d.Events.GetTimeout(context.Background(), time.Second); err != nil {
		t.Fatalf("no prompt surfaced: %v", err)
	}
	cancel()
	if err := <-errs; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAutoAcceptSkipsPrompt(t *testing.T) {
	d := NewDelegate(true, bt.IOCapNoInputNoOutput, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)
	ok, err := d.AcceptPairing(context.Background())
	if err != nil || !ok {
		t.Fatalf("AcceptPairing = (%v, %v), want (true, nil)", ok, err)
	}
	if d.Events.Len() != 0 {
		t.Fatal("auto-accept surfaced a prompt")
	}
}
